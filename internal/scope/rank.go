package scope

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
)

// Hint is a set of preferred source extensions inferred from the query.
type Hint struct {
	Extensions []string
}

// IsZero reports whether the hint carries no preference.
func (h Hint) IsZero() bool { return len(h.Extensions) == 0 }

// Prefers reports whether path has a preferred extension.
func (h Hint) Prefers(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range h.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

var presentationRe = regexp.MustCompile(`(?i)\b(powerpoints?|pptx?|slides|slide ?decks?)\b`)

// DetectFiletypeHint returns the preferred extensions named by query.
func DetectFiletypeHint(query string) Hint {
	if presentationRe.MatchString(query) {
		return Hint{Extensions: []string{".pptx", ".ppt"}}
	}
	return Hint{}
}

// Candidate is one silo ranked for a weak-scope retry.
type Candidate struct {
	Slug  string
	Score float64
}

const (
	// sampleFiles bounds the filenames read per silo.
	sampleFiles = 200

	nameWeight = 2.0
	hintBonus  = 0.5
)

// RankSilos scores silos by token overlap of the query with the silo's
// names and with a sample of its filenames, plus a bonus when the silo
// holds files of a hinted extension. Zero-score silos are dropped. Order is
// score descending, then slug.
func RankSilos(query string, silos []silo.Silo, man *silo.Manifest, hint Hint) []Candidate {
	words := lexicon.ContentWords(query)
	var out []Candidate
	for _, s := range silos {
		names := lexicon.TokenSet(s.DisplayName + " " + s.Slug + " " + s.SlugBase())
		score := nameWeight * lexicon.Overlap(words, names)

		files := make(map[string]bool)
		hinted := false
		if man != nil {
			entries := man.Entries(s.Slug)
			if len(entries) > sampleFiles {
				entries = entries[:sampleFiles]
			}
			for _, e := range entries {
				base := strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
				for t := range lexicon.TokenSet(base) {
					files[t] = true
				}
				if !hint.IsZero() && hint.Prefers(e.Path) {
					hinted = true
				}
			}
		}
		score += lexicon.Overlap(words, files)
		if hinted {
			score += hintBonus
		}
		if score > 0 {
			out = append(out, Candidate{Slug: s.Slug, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}
