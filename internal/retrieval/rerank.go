package retrieval

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/guardrail"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/scope"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var (
	agiQueryRe   = regexp.MustCompile(`(?i)\bagi\b|\badjusted gross\b|\btotal income\b`)
	mainReturnRe = regexp.MustCompile(`(?i)\b1040\b|federal[^/]*return|tax return`)
	overviewRe   = regexp.MustCompile(`(?i)\b(overview|readme|what is this (project|repo)|about (this|the) (project|repo)|getting started|setup|install\w*)\b`)
)

// IsAGIQuery reports whether the query asks for adjusted gross or total
// income.
func IsAGIQuery(query string) bool {
	return agiQueryRe.MatchString(query)
}

func yearInPath(source string, years []int) bool {
	for _, y := range years {
		if strings.Contains(source, strconv.Itoa(y)) {
			return true
		}
	}
	return false
}

func boolRank(b bool) int {
	if b {
		return 0
	}
	return 1
}

// YearBoost moves chunks whose source path names a queried year to the
// front; for AGI questions main-return paths come next. Order is otherwise
// preserved.
func YearBoost(hits []vectordb.Hit, years []int, agi bool) []vectordb.Hit {
	out := append([]vectordb.Hit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		yi, yj := boolRank(yearInPath(out[i].Metadata.Source, years)), boolRank(yearInPath(out[j].Metadata.Source, years))
		if yi != yj {
			return yi < yj
		}
		if agi {
			ai, aj := boolRank(mainReturnRe.MatchString(out[i].Metadata.Source)), boolRank(mainReturnRe.MatchString(out[j].Metadata.Source))
			if ai != aj {
				return ai < aj
			}
		}
		return false
	})
	return out
}

// Reranker reorders candidate chunks for a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []vectordb.Hit) ([]vectordb.Hit, error)
}

// OverlapReranker scores chunks by the share of query content words found
// in the chunk text and source path.
type OverlapReranker struct{}

func (OverlapReranker) Rerank(_ context.Context, query string, hits []vectordb.Hit) ([]vectordb.Hit, error) {
	words := lexicon.ContentWords(query)
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.ID] = lexicon.Overlap(words, chunkTokens(h))
	}
	out := append([]vectordb.Hit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		if scores[out[i].ID] != scores[out[j].ID] {
			return scores[out[i].ID] > scores[out[j].ID]
		}
		return lessDistance(out[i], out[j])
	})
	return out, nil
}

// chunkTokens is the token set of a chunk's text and source path.
func chunkTokens(h vectordb.Hit) map[string]bool {
	set := lexicon.TokenSet(h.Document)
	for t := range lexicon.TokenSet(h.Metadata.Source) {
		set[t] = true
	}
	return set
}

func lessDistance(a, b vectordb.Hit) bool {
	if a.HasDistance != b.HasDistance {
		return a.HasDistance
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// stubChars is the length under which a chunk is treated as a stub.
const stubChars = 40

type heuristicKey struct {
	year     int
	agi      int
	priority int
	stub     int
	readme   int
	local    int
}

// HeuristicRerank sorts by (year in path, AGI main return, source
// priority, non-stub, README preference, local copy, distance).
func HeuristicRerank(hits []vectordb.Hit, query string) []vectordb.Hit {
	years := lexicon.Years(query)
	agi := IsAGIQuery(query)
	wantReadme := overviewRe.MatchString(query)

	keys := make(map[string]heuristicKey, len(hits))
	for _, h := range hits {
		src := h.Metadata.Source
		k := heuristicKey{
			year:     boolRank(len(years) > 0 && yearInPath(src, years)),
			agi:      boolRank(agi && mainReturnRe.MatchString(src)),
			priority: -guardrail.SourcePriority(src),
			stub:     1 - boolRank(len(strings.TrimSpace(h.Document)) < stubChars),
			readme:   boolRank(wantReadme && strings.HasPrefix(strings.ToLower(filepath.Base(src)), "readme")),
			local:    boolRank(h.Metadata.IsLocal),
		}
		keys[h.ID] = k
	}

	out := append([]vectordb.Hit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := keys[out[i].ID], keys[out[j].ID]
		switch {
		case a.year != b.year:
			return a.year < b.year
		case a.agi != b.agi:
			return a.agi < b.agi
		case a.priority != b.priority:
			return a.priority < b.priority
		case a.stub != b.stub:
			return a.stub < b.stub
		case a.readme != b.readme:
			return a.readme < b.readme
		case a.local != b.local:
			return a.local < b.local
		}
		return lessDistance(out[i], out[j])
	})
	return out
}

// FiletypeRerank groups chunks by source and moves sources with a hinted
// extension first, then orders sources by best distance. Chunk order
// within a source is kept.
func FiletypeRerank(hits []vectordb.Hit, hint scope.Hint) []vectordb.Hit {
	if hint.IsZero() {
		return hits
	}
	type group struct {
		source    string
		preferred bool
		best      vectordb.Hit
		hits      []vectordb.Hit
	}
	index := make(map[string]int)
	var groups []*group
	for _, h := range hits {
		src := h.Metadata.Source
		i, ok := index[src]
		if !ok {
			i = len(groups)
			index[src] = i
			groups = append(groups, &group{source: src, preferred: hint.Prefers(src), best: h})
		}
		g := groups[i]
		g.hits = append(g.hits, h)
		if lessDistance(h, g.best) {
			g.best = h
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].preferred != groups[j].preferred {
			return groups[i].preferred
		}
		if groups[i].best.HasDistance != groups[j].best.HasDistance || groups[i].best.Distance != groups[j].best.Distance {
			return lessDistance(groups[i].best, groups[j].best)
		}
		return groups[i].source < groups[j].source
	})
	out := make([]vectordb.Hit, 0, len(hits))
	for _, g := range groups {
		out = append(out, g.hits...)
	}
	return out
}
