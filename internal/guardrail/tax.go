package guardrail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/ledger"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// DefaultTaxMinConfidence drops ledger rows extracted with less confidence.
const DefaultTaxMinConfidence = 0.55

// Ledger is the read side of the tax ledger.
type Ledger interface {
	Rows(ctx context.Context, year int, silo string) ([]ledger.Row, error)
}

// TaxMetric maps a question shape to ledger field codes.
type TaxMetric struct {
	Name    string
	Label   string
	Pattern *regexp.Regexp
	Fields  []string
	// Sum adds values across employers and forms instead of requiring a
	// single value.
	Sum bool
}

// taxMetrics is ordered from most to least specific.
var taxMetrics = []TaxMetric{
	{"state_withholding", "State income tax withheld", regexp.MustCompile(`(?i)\bstate\b[^?]*\b(tax|withh\w*)\b`), []string{"W2_BOX_17"}, true},
	{"state_wages", "State wages", regexp.MustCompile(`(?i)\bstate wages\b`), []string{"W2_BOX_16"}, true},
	{"social_security_tax", "Social security tax withheld", regexp.MustCompile(`(?i)\bsocial security tax\b`), []string{"W2_BOX_4"}, false},
	{"social_security_wages", "Social security wages", regexp.MustCompile(`(?i)\bsocial security\b`), []string{"W2_BOX_3"}, false},
	{"medicare_tax", "Medicare tax withheld", regexp.MustCompile(`(?i)\bmedicare tax\b`), []string{"W2_BOX_6"}, false},
	{"medicare_wages", "Medicare wages", regexp.MustCompile(`(?i)\bmedicare\b`), []string{"W2_BOX_5"}, false},
	{"payroll_tax", "Payroll taxes withheld", regexp.MustCompile(`(?i)\bpayroll( tax(es)?)?\b|\bfica\b`), []string{"W2_BOX_4", "W2_BOX_6"}, true},
	{"federal_withholding", "Federal income tax withheld", regexp.MustCompile(`(?i)\bwithh\w*|\bfederal (income )?tax\b`), []string{"W2_BOX_2"}, false},
	{"agi", "Adjusted gross income", regexp.MustCompile(`(?i)\bagi\b|\badjusted gross\b`), []string{"1040_LINE_11"}, false},
	{"refund", "Refund", regexp.MustCompile(`(?i)\brefund\b`), []string{"1040_LINE_34"}, false},
	{"wages", "Wages", regexp.MustCompile(`(?i)\bwages\b|\bsalary\b|\bw-?2\b`), []string{"W2_BOX_1"}, true},
}

var (
	boxRe      = regexp.MustCompile(`(?i)\bbox\s*(\d{1,2}[a-z]?)\b`)
	employerRe = regexp.MustCompile(`(?i)\b(?:from|at|by|for)\s+([a-z0-9&.' \-]+?)(?:\s+(?:in|for|during|on|tax year)\b|[?.!,]|$)`)
	fieldNumRe = regexp.MustCompile(`_(\d+)[A-Z]?$`)
)

// TaxQuestion is a parsed tax-domain question.
type TaxQuestion struct {
	Year      int
	Metric    TaxMetric
	Form      string
	Employer  []string
	Box       string
	// Interpretation records how the metric was chosen: "box" or the
	// metric name.
	Interpretation string
}

// ParseTaxQuestion extracts the year, metric, form, employer tokens and
// box number from query.
func ParseTaxQuestion(query string) (TaxQuestion, bool) {
	years := lexicon.Years(query)
	if len(years) == 0 {
		return TaxQuestion{}, false
	}
	tq := TaxQuestion{Year: years[len(years)-1]}
	if f, ok := FormIn(query); ok {
		tq.Form = f.Code
	}
	if m := boxRe.FindStringSubmatch(query); m != nil {
		tq.Box = strings.ToUpper(m[1])
		tq.Metric = TaxMetric{Name: "box_" + strings.ToLower(m[1]), Label: "W-2 box " + strings.ToLower(m[1]), Fields: []string{"W2_BOX_" + tq.Box}}
		tq.Interpretation = "box"
	} else {
		for _, m := range taxMetrics {
			if m.Pattern.MatchString(query) {
				tq.Metric = m
				tq.Interpretation = m.Name
				break
			}
		}
	}
	if tq.Metric.Name == "" {
		return TaxQuestion{}, false
	}
	if m := employerRe.FindStringSubmatch(query); m != nil {
		for _, w := range lexicon.ContentWords(m[1]) {
			if len(lexicon.Years(w)) == 0 && !metricNoise[w] {
				tq.Employer = append(tq.Employer, w)
			}
		}
	}
	return tq, true
}

var metricNoise = map[string]bool{
	"tax":    true, "taxes": true, "year": true, "w2": true, "federal": true, "state": true,
	"income": true, "paycheck": true, "paychecks": true, "job": true, "employer": true, "wages": true,
}

// TaxResolver answers tax questions from the ledger. It returns nil when
// the question has no recognizable metric or no ledger exists.
type TaxResolver struct {
	ledger        Ledger
	minConfidence float64
}

// NewTaxResolver creates a resolver. A non-positive minConfidence uses
// DefaultTaxMinConfidence.
func NewTaxResolver(l Ledger, minConfidence float64) *TaxResolver {
	if minConfidence <= 0 {
		minConfidence = DefaultTaxMinConfidence
	}
	return &TaxResolver{ledger: l, minConfidence: minConfidence}
}

type taxValue struct {
	cents int64
	row   ledger.Row
}

// Resolve answers query within slug, or across all silos when slug is
// empty.
func (r *TaxResolver) Resolve(ctx context.Context, slug, query string) (*Outcome, error) {
	if r == nil || r.ledger == nil {
		return nil, nil
	}
	tq, ok := ParseTaxQuestion(query)
	if !ok {
		return nil, nil
	}

	rows, err := r.ledger.Rows(ctx, tq.Year, slug)
	if errors.Is(err, ledger.ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(tq.Metric.Fields))
	for _, f := range tq.Metric.Fields {
		want[f] = true
	}

	var kept []taxValue
	silos := make(map[string]bool)
	for _, row := range rows {
		if !want[row.FieldCode] || row.Confidence < r.minConfidence {
			continue
		}
		if len(tq.Employer) > 0 && !employerMatches(row, tq.Employer) {
			continue
		}
		cents, ok := parseCents(row.NormalizedDecimal)
		if !ok || layoutArtifact(cents, row) {
			continue
		}
		kept = append(kept, taxValue{cents: cents, row: row})
		silos[row.Silo] = true
	}

	what := fmt.Sprintf("%s for %d", strings.ToLower(tq.Metric.Label[:1])+tq.Metric.Label[1:], tq.Year)
	if len(tq.Employer) > 0 {
		what += " (" + strings.Join(tq.Employer, " ") + ")"
	}
	if len(kept) == 0 {
		return abstain(NameTax, ReasonTaxNoMatch,
			fmt.Sprintf("I could not find a confident ledger value for %s. I am not estimating it from other documents.", what)), nil
	}
	if slug == "" && len(silos) > 1 {
		names := make([]string, 0, len(silos))
		for s := range silos {
			names = append(names, s)
		}
		sort.Strings(names)
		return abstain(NameTax, ReasonTaxAmbiguousScope, fmt.Sprintf(
			"Tax records for %d exist in several silos (%s). Name the silo to use.", tq.Year, strings.Join(names, ", "))), nil
	}

	groups := groupTaxValues(kept)
	if tq.Metric.Sum {
		return sumOutcome(tq, what, groups), nil
	}

	distinct := make(map[int64]bool)
	for _, g := range groups {
		distinct[g.cents] = true
	}
	if len(distinct) == 1 {
		return matched(NameTax, fmt.Sprintf("%s: %s.", capitalize(what), formatCents(groups[0].cents)), rowHits(groups)...), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I found conflicting ledger values for %s:", what)
	for _, g := range groups {
		fmt.Fprintf(&sb, "\n- %s (%s)", formatCents(g.cents), citeRow(g.row))
	}
	sb.WriteString("\nTell me which document to use.")
	return abstain(NameTax, ReasonTaxConflict, sb.String(), rowHits(groups)...), nil
}

// groupTaxValues keeps one value per (source, page, field_code), the most
// confident, ordered by that key.
func groupTaxValues(values []taxValue) []taxValue {
	type key struct {
		source string
		page   int
		field  string
	}
	best := make(map[key]taxValue)
	var order []key
	for _, v := range values {
		k := key{v.row.Source, v.row.Page, v.row.FieldCode}
		cur, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = v
			continue
		}
		if v.row.Confidence > cur.row.Confidence || (v.row.Confidence == cur.row.Confidence && v.cents < cur.cents) {
			best[k] = v
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.source != b.source {
			return a.source < b.source
		}
		if a.page != b.page {
			return a.page < b.page
		}
		return a.field < b.field
	})
	out := make([]taxValue, len(order))
	for i, k := range order {
		out[i] = best[k]
	}
	return out
}

// sumOutcome adds one value per (entity, field). Copies of the same form
// across documents count once; differing copies conflict.
func sumOutcome(tq TaxQuestion, what string, groups []taxValue) *Outcome {
	type key struct{ entity, field string }
	per := make(map[key]taxValue)
	var order []key
	var conflicts []taxValue
	for _, g := range groups {
		k := key{strings.ToLower(g.row.EntityName), g.row.FieldCode}
		cur, ok := per[k]
		switch {
		case !ok:
			per[k] = g
			order = append(order, k)
		case cur.cents != g.cents:
			conflicts = append(conflicts, cur, g)
		}
	}
	if len(conflicts) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "I found conflicting ledger values for %s:", what)
		for _, c := range conflicts {
			fmt.Fprintf(&sb, "\n- %s (%s)", formatCents(c.cents), citeRow(c.row))
		}
		sb.WriteString("\nTell me which document to use.")
		return abstain(NameTax, ReasonTaxConflict, sb.String(), rowHits(conflicts)...)
	}

	var total int64
	used := make([]taxValue, 0, len(order))
	for _, k := range order {
		total += per[k].cents
		used = append(used, per[k])
	}
	answer := fmt.Sprintf("%s: %s.", capitalize(what), formatCents(total))
	if len(used) > 1 {
		parts := make([]string, len(used))
		for i, u := range used {
			parts[i] = fmt.Sprintf("%s %s", entityLabel(u.row), formatCents(u.cents))
		}
		answer += " Sum of " + strings.Join(parts, " + ") + "."
	}
	return matched(NameTax, answer, rowHits(used)...)
}

func employerMatches(row ledger.Row, employer []string) bool {
	tokens := make(map[string]bool)
	for _, t := range row.EntityTokens {
		tokens[strings.ToLower(t)] = true
	}
	for t := range lexicon.TokenSet(row.EntityName) {
		tokens[t] = true
	}
	for _, e := range employer {
		if tokens[e] {
			return true
		}
	}
	return false
}

// layoutArtifact rejects values that are really the box or line number,
// the tax year, or a tiny integer printed next to a label.
func layoutArtifact(cents int64, row ledger.Row) bool {
	if cents%100 != 0 {
		return false
	}
	whole := cents / 100
	if m := fieldNumRe.FindStringSubmatch(row.FieldCode); m != nil {
		if n, _ := strconv.ParseInt(m[1], 10, 64); n == whole {
			return true
		}
	}
	if whole >= 1950 && whole <= 2099 && (whole == int64(row.TaxYear) || whole == int64(row.TaxYear)+1) {
		return true
	}
	return whole > 0 && whole < 100 && !strings.Contains(row.NormalizedDecimal, ".")
}

// parseCents parses a plain decimal such as "1234.5" or "-12" into cents.
func parseCents(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// formatCents renders cents as $1,234.56.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

func entityLabel(row ledger.Row) string {
	if row.EntityName != "" {
		return row.EntityName
	}
	return lexicon.ShortPath(row.Source)
}

func citeRow(row ledger.Row) string {
	s := lexicon.ShortPath(row.Source)
	if row.Page > 0 {
		s += fmt.Sprintf(", page %d", row.Page)
	}
	if row.EntityName != "" {
		s = row.EntityName + ", " + s
	}
	return s
}

// rowHits turns ledger rows into footer evidence.
func rowHits(values []taxValue) []vectordb.Hit {
	hits := make([]vectordb.Hit, 0, len(values))
	for _, v := range values {
		hits = append(hits, vectordb.Hit{
			ID:       v.row.TraceRef,
			Document: v.row.FieldLabel + ": " + v.row.NormalizedDecimal,
			Metadata: vectordb.Metadata{Source: v.row.Source, Page: v.row.Page, Silo: v.row.Silo, DocType: "tax_ledger"},
		})
	}
	return hits
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
