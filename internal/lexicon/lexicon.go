// Package lexicon holds the small text helpers shared by the router, the
// scope binder, the guardrails and the retrieval stages: tokenization,
// stopwords, year extraction and path shortening.
package lexicon

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var yearRe = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)

// stopwords are ignored when building content-word sets.
var stopwords = map[string]bool{
	"a": true, "about": true, "all": true, "am": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true, "been": true,
	"by": true, "can": true, "could": true, "did": true, "do": true, "does": true,
	"for": true, "from": true, "had": true, "has": true, "have": true, "how": true,
	"i": true, "if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "me": true, "much": true, "my": true, "of": true, "on": true,
	"or": true, "our": true, "please": true, "show": true, "so": true, "tell": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"there": true, "these": true, "this": true, "those": true, "to": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "whom": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
	"many": true, "some": true, "give": true, "find": true, "list": true,
	"whats": true, "s": true, "t": true, "don": true, "doesn": true,
}

// IsStopword reports whether w (lowercase) is a stopword.
func IsStopword(w string) bool {
	return stopwords[w]
}

// Tokens splits s into lowercase alphanumeric tokens, in order.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContentWords returns the distinct non-stopword tokens of s with at least
// two characters, in first-seen order.
func ContentWords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokens(s) {
		if len(t) < 2 || stopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TokenSet returns the set of tokens in s.
func TokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}

// Years returns the distinct four-digit years mentioned in s, ascending.
func Years(s string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range yearRe.FindAllString(s, -1) {
		y, _ := strconv.Atoi(m)
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

// ShortPath renders an absolute path as its last two components, which is
// how sources are cited in prompts, answers and footers.
func ShortPath(path string) string {
	if path == "" {
		return ""
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(strings.Trim(clean, "/"), "/")
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Normalize lowercases s and strips everything that is not a letter or a
// digit. A single trailing "s" is trimmed so "Photos" and "photo" compare
// equal.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 3 && strings.HasSuffix(out, "s") {
		out = strings.TrimSuffix(out, "s")
	}
	return out
}

// Overlap returns |a ∩ b| / |a|, or 0 when a is empty.
func Overlap(a []string, b map[string]bool) float64 {
	if len(a) == 0 {
		return 0
	}
	hit := 0
	for _, t := range a {
		if b[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(a))
}
