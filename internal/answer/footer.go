package answer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

const snippetPreviewChars = 120

// FooterRow is one deduplicated source in the footer.
type FooterRow struct {
	Path         string  `json:"path"`
	Lines        []int   `json:"lines,omitempty"`
	Pages        []int   `json:"pages,omitempty"`
	BestDistance float64 `json:"best_distance"`
	HasDistance  bool    `json:"-"`
	Similarity   float64 `json:"similarity"`
	Snippet      string  `json:"snippet"`
}

// AggregateSources merges hits by source path: markers become the
// ascending union, the smallest distance wins and the snippet comes from the
// best chunk. Rows are ordered by (best distance, path), so the result does
// not depend on the order of hits; for distance-ranked hits this is also
// first-seen order.
func AggregateSources(hits []vectordb.Hit) []FooterRow {
	type acc struct {
		row   FooterRow
		best  vectordb.Hit
		lines map[int]bool
		pages map[int]bool
	}
	byPath := make(map[string]*acc)
	for _, h := range hits {
		p := h.Metadata.Source
		if p == "" {
			continue
		}
		a, ok := byPath[p]
		if !ok {
			a = &acc{row: FooterRow{Path: p}, best: h, lines: map[int]bool{}, pages: map[int]bool{}}
			byPath[p] = a
		} else if betterChunk(h, a.best) {
			a.best = h
		}
		if h.Metadata.LineStart > 0 {
			a.lines[h.Metadata.LineStart] = true
		}
		if h.Metadata.Page > 0 {
			a.pages[h.Metadata.Page] = true
		}
	}

	rows := make([]FooterRow, 0, len(byPath))
	for _, a := range byPath {
		r := a.row
		r.Lines = sortedKeys(a.lines)
		r.Pages = sortedKeys(a.pages)
		r.HasDistance = a.best.HasDistance
		if r.HasDistance {
			r.BestDistance = a.best.Distance
			r.Similarity = a.best.Similarity()
		}
		r.Snippet = preview(a.best.Document)
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rowDistance(rows[i]), rowDistance(rows[j])
		if di != dj {
			return di < dj
		}
		return rows[i].Path < rows[j].Path
	})
	return rows
}

// betterChunk orders chunks of one source by distance, then ID.
func betterChunk(a, b vectordb.Hit) bool {
	da, db := hitDistance(a), hitDistance(b)
	if da != db {
		return da < db
	}
	return a.ID < b.ID
}

func hitDistance(h vectordb.Hit) float64 {
	if !h.HasDistance {
		return 1
	}
	return h.Distance
}

func rowDistance(r FooterRow) float64 {
	if !r.HasDistance {
		return 1
	}
	return r.BestDistance
}

func sortedKeys(m map[int]bool) []int {
	if len(m) == 0 {
		return nil
	}
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func preview(doc string) string {
	s := strings.Join(strings.Fields(doc), " ")
	r := []rune(s)
	if len(r) > snippetPreviewChars {
		return strings.TrimSpace(string(r[:snippetPreviewChars])) + "..."
	}
	return s
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// Footer renders the source list appended to every retrieval answer.
func Footer(hits []vectordb.Hit, scheme config.EditorScheme) string {
	rows := AggregateSources(hits)
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:\n")
	for _, r := range rows {
		src := Source{Path: r.Path}
		if len(r.Lines) > 0 {
			src.Line = r.Lines[0]
		}
		if len(r.Pages) > 0 {
			src.Page = r.Pages[0]
		}
		fmt.Fprintf(&b, "• %s", Link(lexicon.ShortPath(r.Path), src, scheme))
		switch {
		case len(r.Pages) > 0:
			fmt.Fprintf(&b, " (page %s)", joinInts(r.Pages))
		case len(r.Lines) > 0:
			fmt.Fprintf(&b, " (line %s)", joinInts(r.Lines))
		}
		if r.HasDistance {
			fmt.Fprintf(&b, " · %.2f", r.Similarity)
		}
		b.WriteString("\n")
		if r.Snippet != "" {
			fmt.Fprintf(&b, "    %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
