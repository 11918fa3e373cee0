package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

const csvRowMarker = "CSV row"

var (
	rankQueryRe = regexp.MustCompile(`(?i)\b(?:rank(?:ed|ing)?|ranks)\s+(?:(?:number|no\.?|#)\s*)?(\d{1,4})\b|#(\d{1,4})\s+rank\w*`)
	csvRowRe    = regexp.MustCompile(`(?i)^\s*CSV row\s+(\d+)\s*:\s*(.*)$`)
	numericRe   = regexp.MustCompile(`^[\s$%\d.,\-]+$`)
)

// ParseRank returns the rank number a query asks about.
func ParseRank(query string) (int, bool) {
	m := rankQueryRe.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

type csvRow struct {
	hit    vectordb.Hit
	text   string
	fields [][2]string
}

func parseCSVRow(line string) ([][2]string, bool) {
	m := csvRowRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	var fields [][2]string
	for _, part := range strings.Split(m[2], "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields = append(fields, [2]string{strings.TrimSpace(k), strings.TrimSpace(v)})
	}
	return fields, len(fields) > 0
}

func (r csvRow) rank() (int, bool) {
	for _, f := range r.fields {
		if strings.EqualFold(f[0], "rank") {
			n, err := strconv.Atoi(strings.TrimSpace(f[1]))
			return n, err == nil
		}
	}
	return 0, false
}

// name picks the field that identifies the row: one whose column is named
// in the query, else the first non-numeric value.
func (r csvRow) name(queryWords map[string]bool) string {
	for _, f := range r.fields {
		if strings.EqualFold(f[0], "rank") {
			continue
		}
		for _, t := range lexicon.Tokens(f[0]) {
			if queryWords[t] {
				return f[1]
			}
		}
	}
	for _, f := range r.fields {
		if !strings.EqualFold(f[0], "rank") && !numericRe.MatchString(f[1]) {
			return f[1]
		}
	}
	return ""
}

// CSVRank answers "what was ranked N" from extracted CSV rows. A year in
// the query prefers rows whose source or text mentions it.
func CSVRank(ctx context.Context, store vectordb.Store, slug, query string) (*Outcome, error) {
	want, ok := ParseRank(query)
	if !ok {
		return nil, nil
	}

	hits, err := store.Get(ctx, vectordb.GetRequest{
		Where:         scopeWhere(slug),
		WhereDocument: vectordb.Contains(csvRowMarker),
	})
	if err != nil {
		return nil, fmt.Errorf("loading csv rows: %w", err)
	}

	var rows []csvRow
	for _, h := range hits {
		for _, line := range strings.Split(h.Document, "\n") {
			fields, ok := parseCSVRow(line)
			if !ok {
				continue
			}
			r := csvRow{hit: h, text: strings.TrimSpace(line), fields: fields}
			if n, ok := r.rank(); ok && n == want {
				rows = append(rows, r)
			}
		}
	}
	if years := lexicon.Years(query); len(years) > 0 {
		y := strconv.Itoa(years[0])
		var inYear []csvRow
		for _, r := range rows {
			if strings.Contains(r.hit.Metadata.Source, y) || strings.Contains(r.text, y) {
				inYear = append(inYear, r)
			}
		}
		if len(inYear) > 0 {
			rows = inYear
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].hit.Metadata.Source != rows[j].hit.Metadata.Source {
			return rows[i].hit.Metadata.Source < rows[j].hit.Metadata.Source
		}
		return rows[i].text < rows[j].text
	})
	best := rows[0]
	name := best.name(lexicon.TokenSet(query))
	if name == "" {
		name = best.text
	}
	return matched(NameCSVRank, fmt.Sprintf("Rank %d: %s", want, name), best.hit), nil
}
