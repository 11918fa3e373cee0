package guardrail

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// incomeFallbackCap bounds the year documents handed to the LLM when no
// income line is found; incomeSourceCap bounds each source within them.
const (
	incomeFallbackCap = 24
	incomeSourceCap   = 3
)

var (
	specificIncomeRe = regexp.MustCompile(`(?i)\b(wages?|salary|salaries|business|self[- ]employ\w*|freelanc\w*|consulting|interest|dividends?|rental|capital gains?|bonus\w*|tips)\b`)
	taxDocRe         = regexp.MustCompile(`(?i)\b(1040|w-?2|1099|tax(es)?|return)\b`)
)

// incomeLines are tried in order; later lines are labeled as fallbacks.
var incomeLines = []struct {
	line     string
	label    string
	fallback bool
}{
	{"9", "Total income", false},
	{"11", "Adjusted gross income", true},
}

// IncomeYear answers "how much did I make in YEAR" from the year's Form
// 1040. Without an income line it either asks the user to pick a figure or
// hands the year's documents to the LLM with an enumerate-every-row
// instruction.
func IncomeYear(ctx context.Context, store vectordb.Store, slug, query string) (*Outcome, error) {
	years := lexicon.Years(query)
	if len(years) == 0 {
		return nil, nil
	}
	year := years[len(years)-1]

	docs, err := yearDocs(ctx, store, slug, year)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return abstain(NameIncomeYear, ReasonYearDocsNotIndexed, fmt.Sprintf(
			"I could not find indexed documents for %d in this scope, so I am not estimating income from other years.", year)), nil
	}

	form := forms[0]
	for _, il := range incomeLines {
		for _, d := range docs {
			if !form.Mentioned(d.Metadata.Source) && !form.Mentioned(d.Document) {
				continue
			}
			v, ok := form.ExtractLine(d.Document, il.line)
			if !ok {
				continue
			}
			answer := fmt.Sprintf("%s (Form 1040 line %s, %d): %s.", il.label, il.line, year, v)
			if il.fallback {
				answer += " Line 9 total income was not found, so this is adjusted gross income as a fallback."
			}
			return matched(NameIncomeYear, answer, d), nil
		}
	}

	taxDocs := false
	for _, d := range docs {
		if taxDocRe.MatchString(d.Metadata.Source) || form.Mentioned(d.Document) {
			taxDocs = true
			break
		}
	}
	if taxDocs && !specificIncomeRe.MatchString(query) {
		return abstain(NameIncomeYear, ReasonIncomeDisambiguation, fmt.Sprintf(
			"I found tax documents for %d but no total income line. Which figure do you want: total income, AGI, wages, or business income?", year),
			firstN(docs, 3)...), nil
	}

	return &Outcome{
		Name:             NameIncomeYear,
		NoMatch:          true,
		Reason:           ReasonIncomeNoMatch,
		OverrideEvidence: firstN(perSource(docs, incomeSourceCap), incomeFallbackCap),
		PromptSuffix: fmt.Sprintf("The question is about income in %d. List every income row present in the context for %d "+
			"with its amount and source. Do not use figures from other years and do not add rows together unless the context states a total.", year, year),
	}, nil
}
