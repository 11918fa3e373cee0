// Package assembler turns the final evidence set into the context block and
// prompts sent to the model.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// DefaultSnippetChars is the per-chunk text budget.
const DefaultSnippetChars = 1000

const dateLayout = "2006-01-02"

// Header renders the chunk header line.
func Header(md vectordb.Metadata) string {
	var b strings.Builder
	b.WriteString("file=")
	b.WriteString(lexicon.ShortPath(md.Source))
	switch {
	case md.Page > 0:
		fmt.Fprintf(&b, "(page %d)", md.Page)
	case md.LineStart > 0:
		fmt.Fprintf(&b, "(line %d)", md.LineStart)
	}
	fmt.Fprintf(&b, " mtime=%s silo=%s doc_type=%s", md.ModTime().Format(dateLayout), orUnknown(md.Silo), orUnknown(md.DocType))
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// FormatChunk renders one chunk as its header followed by at most limit
// characters of text.
func FormatChunk(h vectordb.Hit, limit int) string {
	if limit <= 0 {
		limit = DefaultSnippetChars
	}
	text := []rune(strings.TrimSpace(h.Document))
	if len(text) > limit {
		text = text[:limit]
	}
	return Header(h.Metadata) + "\n" + string(text)
}

// Options control context layout.
type Options struct {
	SnippetChars int
	// GroupBySilo emits [SILO GROUP: s] banners, groups ordered by their
	// best distance.
	GroupBySilo bool
	// SiloNames maps slugs to display names for banners.
	SiloNames map[string]string
}

// BuildContext renders hits in order, optionally grouped by silo.
func BuildContext(hits []vectordb.Hit, opts Options) string {
	if !opts.GroupBySilo {
		return joinChunks(hits, opts.SnippetChars)
	}

	groups := make(map[string][]vectordb.Hit)
	best := make(map[string]float64)
	var order []string
	for _, h := range hits {
		s := h.Metadata.Silo
		if _, ok := groups[s]; !ok {
			order = append(order, s)
			best[s] = distanceOf(h)
		}
		groups[s] = append(groups[s], h)
		if d := distanceOf(h); d < best[s] {
			best[s] = d
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if best[order[i]] != best[order[j]] {
			return best[order[i]] < best[order[j]]
		}
		return order[i] < order[j]
	})

	parts := make([]string, 0, len(order))
	for _, s := range order {
		name := s
		if n, ok := opts.SiloNames[s]; ok && n != "" {
			name = n
		}
		parts = append(parts, fmt.Sprintf("[SILO GROUP: %s]\n%s", name, joinChunks(groups[s], opts.SnippetChars)))
	}
	return strings.Join(parts, "\n\n")
}

func joinChunks(hits []vectordb.Hit, limit int) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = FormatChunk(h, limit)
	}
	return strings.Join(parts, "\n\n")
}

func distanceOf(h vectordb.Hit) float64 {
	if !h.HasDistance {
		return 1
	}
	return h.Distance
}

// RecencyHints summarizes the newest and oldest evidence per silo.
func RecencyHints(hits []vectordb.Hit) string {
	type span struct {
		newest, oldest vectordb.Metadata
	}
	spans := make(map[string]*span)
	for _, h := range hits {
		md := h.Metadata
		sp, ok := spans[md.Silo]
		if !ok {
			spans[md.Silo] = &span{newest: md, oldest: md}
			continue
		}
		if md.Mtime > sp.newest.Mtime || (md.Mtime == sp.newest.Mtime && md.Source < sp.newest.Source) {
			sp.newest = md
		}
		if md.Mtime < sp.oldest.Mtime || (md.Mtime == sp.oldest.Mtime && md.Source < sp.oldest.Source) {
			sp.oldest = md
		}
	}
	if len(spans) == 0 {
		return ""
	}
	silos := make([]string, 0, len(spans))
	for s := range spans {
		silos = append(silos, s)
	}
	sort.Strings(silos)

	var b strings.Builder
	b.WriteString("[RECENCY HINTS - WEAK EVIDENCE]")
	for _, s := range silos {
		sp := spans[s]
		fmt.Fprintf(&b, "\nsilo=%s newest=%s (%s) oldest=%s (%s)", orUnknown(s),
			sp.newest.ModTime().Format(dateLayout), lexicon.ShortPath(sp.newest.Source),
			sp.oldest.ModTime().Format(dateLayout), lexicon.ShortPath(sp.oldest.Source))
	}
	return b.String()
}
