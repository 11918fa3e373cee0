package answer

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// editorExts are opened in the configured editor rather than the system
// viewer.
var editorExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".rs": true, ".java": true, ".kt": true, ".c": true, ".h": true, ".cpp": true,
	".rb": true, ".php": true, ".swift": true, ".sh": true, ".sql": true,
	".md": true, ".txt": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".csv": true, ".html": true, ".css": true,
}

// Source is a linkable evidence file.
type Source struct {
	Path string
	Line int
	Page int
}

// SourcesOf returns one Source per distinct path in hits, each carrying the
// smallest line or page marker seen for it, sorted by path.
func SourcesOf(hits []vectordb.Hit) []Source {
	byPath := make(map[string]*Source)
	for _, h := range hits {
		p := h.Metadata.Source
		if p == "" {
			continue
		}
		s, ok := byPath[p]
		if !ok {
			s = &Source{Path: p}
			byPath[p] = s
		}
		if l := h.Metadata.LineStart; l > 0 && (s.Line == 0 || l < s.Line) {
			s.Line = l
		}
		if pg := h.Metadata.Page; pg > 0 && (s.Page == 0 || pg < s.Page) {
			s.Page = pg
		}
	}
	out := make([]Source, 0, len(byPath))
	for _, s := range byPath {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// URL renders the clickable target for s.
func URL(s Source, scheme config.EditorScheme) string {
	path := (&url.URL{Path: s.Path}).EscapedPath()
	path = strings.NewReplacer("(", "%28", ")", "%29").Replace(path)
	ext := strings.ToLower(pathExt(s.Path))

	if scheme != "" && scheme != config.EditorFile && editorExts[ext] {
		line := max(s.Line, 1)
		return fmt.Sprintf("%s://file%s:%d:1", scheme, path, line)
	}
	u := "file://" + path
	switch {
	case s.Page > 0:
		u += fmt.Sprintf("#page=%d", s.Page)
	case s.Line > 0:
		u += fmt.Sprintf("#L%d", s.Line)
	}
	return u
}

func pathExt(p string) string {
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.ContainsRune(p[i:], '/') {
		return ""
	}
	return p[i:]
}

// Link renders a markdown link with the given text.
func Link(text string, s Source, scheme config.EditorScheme) string {
	return "[" + text + "](" + URL(s, scheme) + ")"
}

var existingLinkRe = `\[[^\]\n]*\]\([^)\s]*\)`

// Linkify turns every mention of a source (absolute or short path) into a
// markdown link. Longer mentions win; text already inside a link is left
// alone, so Linkify is idempotent.
func Linkify(text string, sources []Source, scheme config.EditorScheme) string {
	if len(sources) == 0 || text == "" {
		return text
	}
	targets := make(map[string]Source)
	for _, s := range sources {
		for _, m := range []string{s.Path, lexicon.ShortPath(s.Path)} {
			if m == "" {
				continue
			}
			if _, ok := targets[m]; !ok {
				targets[m] = s
			}
		}
	}
	mentions := make([]string, 0, len(targets))
	for m := range targets {
		mentions = append(mentions, m)
	}
	sort.Slice(mentions, func(i, j int) bool {
		if len(mentions[i]) != len(mentions[j]) {
			return len(mentions[i]) > len(mentions[j])
		}
		return mentions[i] < mentions[j]
	})
	alts := make([]string, len(mentions))
	for i, m := range mentions {
		alts[i] = regexp.QuoteMeta(m)
	}
	re := regexp.MustCompile(existingLinkRe + `|` + strings.Join(alts, "|"))

	return re.ReplaceAllStringFunc(text, func(m string) string {
		s, ok := targets[m]
		if !ok {
			return m
		}
		return Link(m, s, scheme)
	})
}
