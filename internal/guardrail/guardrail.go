// Package guardrail answers narrow, high-stakes questions straight from
// retrieved chunks or the tax ledger. A guardrail either produces the final
// answer, abstains with a typed reason, or hands constrained evidence back
// to the LLM path. A matched guardrail never calls the LLM.
package guardrail

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Guardrail names as recorded in traces.
const (
	NameFieldLookup = "field_lookup"
	NameIncomeYear  = "income_year"
	NameCSVRank     = "csv_rank"
	NameDirectValue = "direct_value"
	NameTax         = "tax_resolver"
)

// Abstention and fallthrough reasons.
const (
	ReasonYearDocsNotIndexed   = "year_docs_not_indexed"
	ReasonMissingLine          = "missing_line_in_year_docs"
	ReasonIncomeNoMatch        = "income_no_match"
	ReasonIncomeDisambiguation = "income_disambiguation"
	ReasonDirectValueConflict  = "direct_value_equal_conflict"
	ReasonTaxConflict          = "tax_conflict"
	ReasonTaxNoMatch           = "tax_no_match"
	ReasonTaxAmbiguousScope    = "tax_ambiguous_scope"
)

// Outcome is the result of a guardrail that applied to the query. A nil
// *Outcome means the guardrail did not apply.
type Outcome struct {
	Name string
	// Matched is set when Answer carries a resolved value.
	Matched bool
	// NoMatch is set for abstentions and fallthroughs.
	NoMatch bool
	Reason  string
	Answer  string
	// Evidence backs the answer and feeds the source footer.
	Evidence []vectordb.Hit
	// OverrideEvidence replaces vector results on fallthrough.
	OverrideEvidence []vectordb.Hit
	PromptSuffix     string
}

// Final reports whether the outcome ends the request without the LLM.
func (o *Outcome) Final() bool {
	return o != nil && o.Answer != ""
}

func matched(name, answer string, evidence ...vectordb.Hit) *Outcome {
	return &Outcome{Name: name, Matched: true, Answer: answer, Evidence: evidence}
}

func abstain(name, reason, answer string, evidence ...vectordb.Hit) *Outcome {
	return &Outcome{Name: name, NoMatch: true, Reason: reason, Answer: answer, Evidence: evidence}
}

// scopeWhere restricts a get to slug, or to nothing when slug is empty.
func scopeWhere(slug string) vectordb.Filter {
	if slug == "" {
		return vectordb.Filter{}
	}
	return vectordb.Eq(vectordb.KeySilo, slug)
}

// yearDocs returns the chunks in scope whose source path contains year,
// ordered by (source, chunk index, id).
func yearDocs(ctx context.Context, store vectordb.Store, slug string, year int) ([]vectordb.Hit, error) {
	hits, err := store.Get(ctx, vectordb.GetRequest{Where: scopeWhere(slug)})
	if err != nil {
		return nil, fmt.Errorf("loading %d documents: %w", year, err)
	}
	y := strconv.Itoa(year)
	var out []vectordb.Hit
	for _, h := range hits {
		if strings.Contains(h.Metadata.Source, y) {
			out = append(out, h)
		}
	}
	sortBySource(out)
	return out, nil
}

func sortBySource(hits []vectordb.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].Metadata, hits[j].Metadata
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return hits[i].ID < hits[j].ID
	})
}
