package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var lineNumberRe = regexp.MustCompile(`(?i)\bline\s*(\d+[a-z]?)\b`)

// FieldQuery is a parsed "year + form + line" question.
type FieldQuery struct {
	Year int
	Form Form
	Line string
}

// ParseFieldQuery extracts the year, form and line from query.
func ParseFieldQuery(query string) (FieldQuery, bool) {
	years := lexicon.Years(query)
	if len(years) == 0 {
		return FieldQuery{}, false
	}
	form, ok := FormIn(query)
	if !ok {
		return FieldQuery{}, false
	}
	m := lineNumberRe.FindStringSubmatch(query)
	if m == nil {
		return FieldQuery{}, false
	}
	// The latest year named is the one asked about.
	return FieldQuery{Year: years[len(years)-1], Form: form, Line: strings.ToLower(m[1])}, true
}

// FieldLookup resolves a form line for one tax year using only documents
// whose path names that year. It never falls back to other years.
func FieldLookup(ctx context.Context, store vectordb.Store, slug, query string) (*Outcome, error) {
	fq, ok := ParseFieldQuery(query)
	if !ok {
		return nil, nil
	}

	docs, err := yearDocs(ctx, store, slug, fq.Year)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return abstain(NameFieldLookup, ReasonYearDocsNotIndexed, fmt.Sprintf(
			"I could not find indexed tax documents for %d in this scope, so I am not answering %s line %s from other years.",
			fq.Year, fq.Form.Display, fq.Line)), nil
	}

	for _, d := range docs {
		if !fq.Form.Mentioned(d.Metadata.Source) && !fq.Form.Mentioned(d.Document) {
			continue
		}
		if v, ok := fq.Form.ExtractLine(d.Document, fq.Line); ok {
			return matched(NameFieldLookup,
				fmt.Sprintf("%s line %s (%d): %s.", fq.Form.Display, fq.Line, fq.Year, v), d), nil
		}
	}

	return abstain(NameFieldLookup, ReasonMissingLine, fmt.Sprintf(
		"I found %d tax documents, but I could not find %s line %s in their extractable text. I am not inferring it from other years.",
		fq.Year, fq.Form.Display, fq.Line), firstN(docs, 3)...), nil
}

// perSource keeps at most n chunks of each source, in order.
func perSource(hits []vectordb.Hit, n int) []vectordb.Hit {
	seen := map[string]int{}
	var out []vectordb.Hit
	for _, h := range hits {
		if seen[h.Metadata.Source] >= n {
			continue
		}
		seen[h.Metadata.Source]++
		out = append(out, h)
	}
	return out
}

func firstN(hits []vectordb.Hit, n int) []vectordb.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
