package retrieval

import (
	"sort"

	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant.
const DefaultRRFK = 60

// FuseRRF merges two ranked lists with Reciprocal Rank Fusion:
// score = Σ 1/(k + rank), rank starting at 1. A chunk present in both
// lists keeps its vector distance. Ties fall back to distance (chunks
// with one first) and then id.
func FuseRRF(vector, lexical []vectordb.Hit, k int) []vectordb.Hit {
	if k <= 0 {
		k = DefaultRRFK
	}
	scores := make(map[string]float64)
	byID := make(map[string]vectordb.Hit)
	var order []string

	add := func(list []vectordb.Hit) {
		for rank, h := range list {
			scores[h.ID] += 1.0 / float64(k+rank+1)
			if cur, ok := byID[h.ID]; !ok {
				byID[h.ID] = h
				order = append(order, h.ID)
			} else if !cur.HasDistance && h.HasDistance {
				byID[h.ID] = h
			}
		}
	}
	add(vector)
	add(lexical)

	out := make([]vectordb.Hit, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := scores[out[i].ID], scores[out[j].ID]
		if si != sj {
			return si > sj
		}
		if out[i].HasDistance != out[j].HasDistance {
			return out[i].HasDistance
		}
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// rankLexical orders lexical hits by the number of anchors they contain,
// then id.
func rankLexical(hits []vectordb.Hit, anchors []string) []vectordb.Hit {
	counts := make(map[string]int, len(hits))
	for _, h := range hits {
		counts[h.ID] = anchorMatches(h.Document, anchors)
	}
	out := append([]vectordb.Hit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		if counts[out[i].ID] != counts[out[j].ID] {
			return counts[out[i].ID] > counts[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// dedupByID keeps the first occurrence of each chunk.
func dedupByID(hits []vectordb.Hit) []vectordb.Hit {
	seen := make(map[string]bool, len(hits))
	out := hits[:0:0]
	for _, h := range hits {
		if !seen[h.ID] {
			seen[h.ID] = true
			out = append(out, h)
		}
	}
	return out
}

// sortByDistance orders hits by distance, chunks without one last, then id.
func sortByDistance(hits []vectordb.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].HasDistance != hits[j].HasDistance {
			return hits[i].HasDistance
		}
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
}

// TopDistance returns the smallest distance among hits that carry one.
func TopDistance(hits []vectordb.Hit) (float64, bool) {
	best, ok := 0.0, false
	for _, h := range hits {
		if h.HasDistance && (!ok || h.Distance < best) {
			best, ok = h.Distance, true
		}
	}
	return best, ok
}
