package retrieval

import (
	"regexp"
	"sort"
	"time"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var recencyRe = regexp.MustCompile(`(?i)\b(latest|current|currently|recent|recently|newest|most recent|now|nowadays|today|this (year|month|week)|last (year|month|week)|these days)\b`)

// ImpliesRecency reports whether query asks for recent material or names a
// year or time phrase.
func ImpliesRecency(query string) bool {
	return recencyRe.MatchString(query) || len(lexicon.Years(query)) > 0
}

// docTypeBonus nudges summary-like documents ahead of raw material at equal
// relevance.
var docTypeBonus = map[string]float64{
	"summary":     0.03,
	"report":      0.03,
	"resume":      0.02,
	"spreadsheet": 0.01,
	"note":        0.01,
}

// missingDistance scores lexical-only chunks in the tie-break.
const missingDistance = 1.0

// recency maps age to (0, 1]: 1 for now, 0.5 after one year.
func recency(mtime, now time.Time) float64 {
	years := now.Sub(mtime).Hours() / (24 * 365)
	if years < 0 {
		years = 0
	}
	return 1 / (1 + years)
}

// RecencyTieBreak re-sorts hits by 1/(1+d) + weight·recency(mtime) +
// doc_type bonus, then id.
func RecencyTieBreak(hits []vectordb.Hit, now time.Time, weight float64) []vectordb.Hit {
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		d := h.Distance
		if !h.HasDistance {
			d = missingDistance
		}
		score := 1 / (1 + d)
		if h.Metadata.Mtime > 0 {
			score += weight * recency(h.Metadata.ModTime(), now)
		}
		score += docTypeBonus[h.Metadata.DocType]
		scores[h.ID] = score
	}
	out := append([]vectordb.Hit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		if scores[out[i].ID] != scores[out[j].ID] {
			return scores[out[i].ID] > scores[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out
}
