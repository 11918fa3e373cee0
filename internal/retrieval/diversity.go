package retrieval

import (
	"sort"

	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// yearModeSourceCap applies when explicit years reorder the results.
const yearModeSourceCap = 3

// SourceCap is the most chunks one source may contribute for tag.
func SourceCap(tag intent.Tag) int {
	switch tag {
	case intent.EvidenceProfile:
		return 2
	case intent.Aggregate:
		return 6
	case intent.Reflect:
		return 4
	case intent.FieldLookup:
		return 8
	}
	return 3
}

// CapPerSource drops chunks beyond the per-source cap, keeping order. In
// year mode the cap is at most 3; every source still keeps its first chunk.
func CapPerSource(hits []vectordb.Hit, tag intent.Tag, yearMode bool) []vectordb.Hit {
	limit := SourceCap(tag)
	if yearMode {
		limit = min(limit, yearModeSourceCap)
	}
	return capBy(hits, limit, func(h vectordb.Hit) string { return h.Metadata.Source })
}

// CapPerSilo drops chunks beyond limit per silo, keeping order.
func CapPerSilo(hits []vectordb.Hit, limit int) []vectordb.Hit {
	if limit <= 0 {
		return hits
	}
	return capBy(hits, limit, func(h vectordb.Hit) string { return h.Metadata.Silo })
}

func capBy(hits []vectordb.Hit, limit int, key func(vectordb.Hit) string) []vectordb.Hit {
	counts := make(map[string]int)
	out := make([]vectordb.Hit, 0, len(hits))
	for _, h := range hits {
		k := key(h)
		if counts[k] >= limit {
			continue
		}
		counts[k]++
		out = append(out, h)
	}
	return out
}

// DedupChunkHash keeps the first chunk of each chunk_hash. Chunks without a
// hash are all kept.
func DedupChunkHash(hits []vectordb.Hit) []vectordb.Hit {
	seen := make(map[string]bool)
	out := make([]vectordb.Hit, 0, len(hits))
	for _, h := range hits {
		if hash := h.Metadata.ChunkHash; hash != "" {
			if seen[hash] {
				continue
			}
			seen[hash] = true
		}
		out = append(out, h)
	}
	return out
}

// SilosByBestDistance returns the distinct silos of hits ordered by their
// best distance, then slug.
func SilosByBestDistance(hits []vectordb.Hit) []string {
	best := make(map[string]vectordb.Hit)
	for _, h := range hits {
		s := h.Metadata.Silo
		if cur, ok := best[s]; !ok || lessDistance(h, cur) {
			best[s] = h
		}
	}
	silos := make([]string, 0, len(best))
	for s := range best {
		silos = append(silos, s)
	}
	sort.Slice(silos, func(i, j int) bool {
		a, b := best[silos[i]], best[silos[j]]
		if a.HasDistance != b.HasDistance || a.Distance != b.Distance {
			return lessDistance(a, b)
		}
		return silos[i] < silos[j]
	})
	return silos
}

// SoftPromotion tunes SoftPromote.
type SoftPromotion struct {
	DominationRatio float64
	Delta           float64
	Max             int
}

// SoftPromote handles a result dominated by one silo: when more than
// DominationRatio of hits come from it, the best chunk of up to Max
// alternate silos whose distance is within Delta of the dominant best
// replaces the dominant silo's tail. pool is the ranked list hits was cut
// from. It returns the new list and how many chunks were promoted.
func SoftPromote(hits, pool []vectordb.Hit, sp SoftPromotion) ([]vectordb.Hit, int) {
	if len(hits) < 2 || sp.Max <= 0 {
		return hits, 0
	}
	counts := make(map[string]int)
	for _, h := range hits {
		counts[h.Metadata.Silo]++
	}
	dominant, top := "", 0
	for s, c := range counts {
		if c > top || (c == top && s < dominant) {
			dominant, top = s, c
		}
	}
	if float64(top)/float64(len(hits)) <= sp.DominationRatio {
		return hits, 0
	}

	dominantBest, ok := 0.0, false
	inHits := make(map[string]bool, len(hits))
	for _, h := range hits {
		inHits[h.ID] = true
		if h.Metadata.Silo == dominant && h.HasDistance && (!ok || h.Distance < dominantBest) {
			dominantBest, ok = h.Distance, true
		}
	}
	if !ok {
		return hits, 0
	}

	bestAlt := make(map[string]vectordb.Hit)
	for _, h := range pool {
		s := h.Metadata.Silo
		if s == dominant || inHits[h.ID] || !h.HasDistance || h.Distance > dominantBest+sp.Delta {
			continue
		}
		if cur, ok := bestAlt[s]; !ok || lessDistance(h, cur) {
			bestAlt[s] = h
		}
	}
	var promoted []vectordb.Hit
	for _, h := range bestAlt {
		promoted = append(promoted, h)
	}
	sortByDistance(promoted)
	if len(promoted) > sp.Max {
		promoted = promoted[:sp.Max]
	}
	// The dominant silo keeps at least one chunk.
	if len(promoted) >= top {
		promoted = promoted[:top-1]
	}
	if len(promoted) == 0 {
		return hits, 0
	}

	out := append([]vectordb.Hit(nil), hits...)
	replaced := 0
	for i := len(out) - 1; i >= 0 && replaced < len(promoted); i-- {
		if out[i].Metadata.Silo == dominant {
			out[i] = promoted[len(promoted)-1-replaced]
			replaced++
		}
	}
	return out, replaced
}
