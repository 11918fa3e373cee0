package guardrail

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var (
	metricWords = map[string]bool{
		"margin": true, "revenue": true, "sales": true, "profit": true, "income": true,
		"cost": true, "costs": true, "price": true, "rate": true, "budget": true,
		"salary": true, "balance": true, "headcount": true, "ebitda": true, "growth": true,
		"spend": true, "churn": true, "score": true, "rent": true, "fee": true,
		"count": true, "total": true, "percentage": true, "ratio": true, "valuation": true,
	}
	// canonical source tokens outrank deprioritized ones.
	canonicalTokens     = []string{"canonical", "final", "official", "approved", "verified", "current", "latest"}
	deprioritizedTokens = []string{"draft", "archive", "archived", "old", "stale", "contradiction", "superseded", "deprecated", "backup", "copy", "wip", "tmp", "scratch"}

	labelValueRe = regexp.MustCompile(`(?m)^[ \t>*\-]*([^\n:]{2,80}?)\s*:\s*([-+]?[$€£]?\d[\d,]*(?:\.\d+)?\s?(?:%|[kmb]\b|million|billion)?)`)
	questionWord = map[string]bool{"what": true, "whats": true, "which": true, "current": true}
)

// SourcePriority scores a source path: +2 per canonical token, -2 per
// deprioritized token.
func SourcePriority(path string) int {
	tokens := lexicon.TokenSet(path)
	score := 0
	for _, t := range canonicalTokens {
		if tokens[t] {
			score += 2
		}
	}
	for _, t := range deprioritizedTokens {
		if tokens[t] {
			score -= 2
		}
	}
	return score
}

// MetricSignature is the entity and metric a direct value question names.
type MetricSignature struct {
	Entity []string
	Metric string
}

// ParseMetricSignature returns the signature of query: its content words
// around one metric word. It needs at least one entity word.
func ParseMetricSignature(query string) (MetricSignature, bool) {
	var sig MetricSignature
	for _, w := range lexicon.ContentWords(query) {
		if questionWord[w] {
			continue
		}
		if metricWords[w] && sig.Metric == "" {
			sig.Metric = w
			continue
		}
		if len(lexicon.Years(w)) > 0 {
			continue
		}
		sig.Entity = append(sig.Entity, w)
	}
	return sig, sig.Metric != "" && len(sig.Entity) > 0
}

func (s MetricSignature) matches(label string) bool {
	tokens := lexicon.TokenSet(label)
	if !tokens[s.Metric] {
		return false
	}
	for _, e := range s.Entity {
		if !tokens[e] {
			return false
		}
	}
	return true
}

type candidate struct {
	label    string
	value    string
	priority int
	hit      vectordb.Hit
}

// DirectValue picks one value for a "what is X's metric" question from
// label: value lines in hits. Source priority decides between differing
// values; a tie between differing values abstains.
func DirectValue(query string, hits []vectordb.Hit) *Outcome {
	sig, ok := ParseMetricSignature(query)
	if !ok {
		return nil
	}

	var cands []candidate
	for _, h := range hits {
		for _, m := range labelValueRe.FindAllStringSubmatch(h.Document, -1) {
			label := strings.TrimSpace(m[1])
			if !sig.matches(label) {
				continue
			}
			cands = append(cands, candidate{
				label:    label,
				value:    strings.TrimSpace(m[2]),
				priority: SourcePriority(h.Metadata.Source),
				hit:      h,
			})
		}
	}
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].priority != cands[j].priority {
			return cands[i].priority > cands[j].priority
		}
		return cands[i].hit.Metadata.Source < cands[j].hit.Metadata.Source
	})

	top := cands[0]
	var rivals []candidate
	for _, c := range cands[1:] {
		if c.priority == top.priority && c.value != top.value {
			rivals = append(rivals, c)
		}
	}
	if len(rivals) == 0 {
		return matched(NameDirectValue, fmt.Sprintf("%s: %s", top.label, top.value), top.hit)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I don't have enough evidence to choose between conflicting values for %s %s:", strings.Join(sig.Entity, " "), sig.Metric)
	evidence := []vectordb.Hit{top.hit}
	fmt.Fprintf(&sb, "\n- %s (%s)", top.value, lexicon.ShortPath(top.hit.Metadata.Source))
	for _, r := range rivals {
		fmt.Fprintf(&sb, "\n- %s (%s)", r.value, lexicon.ShortPath(r.hit.Metadata.Source))
		evidence = append(evidence, r.hit)
	}
	return abstain(NameDirectValue, ReasonDirectValueConflict, sb.String(), evidence...)
}
