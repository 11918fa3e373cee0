package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Stage1K is how many chunks to fetch before reranking and diversity caps
// cut the list down to n.
func Stage1K(tag intent.Tag, n int, useReranker bool, rerankerStage1 int) int {
	var k int
	switch tag {
	case intent.EvidenceProfile, intent.Aggregate:
		k = clamp(n*8, 48, 128)
	case intent.Reflect:
		k = clamp(n*2, 12, 24)
	default:
		if useReranker {
			k = max(100, 5*n)
		} else {
			k = rerankerStage1
		}
	}
	return max(k, n)
}

// synonyms widen the vector query for common personal-finance and life
// terms.
var synonyms = map[string][]string{
	"income":   {"wages", "salary", "earnings"},
	"salary":   {"income", "pay", "compensation"},
	"earn":     {"income", "wages", "salary"},
	"earned":   {"income", "wages", "salary"},
	"job":      {"work", "employment", "role"},
	"resume":   {"experience", "cv"},
	"cv":       {"resume", "experience"},
	"trip":     {"travel", "itinerary"},
	"vacation": {"travel", "trip"},
	"doctor":   {"medical", "health"},
	"car":      {"vehicle", "auto"},
	"rent":     {"lease", "housing"},
	"taxes":    {"tax", "return"},
}

// ExpandQuery appends synonyms of query terms. Exact-answer intents are left
// untouched.
func ExpandQuery(query string, tag intent.Tag) string {
	switch tag {
	case intent.FieldLookup, intent.Capabilities, intent.CodeLanguage:
		return query
	}
	have := lexicon.TokenSet(query)
	var extra []string
	for _, t := range lexicon.Tokens(query) {
		for _, s := range synonyms[t] {
			if !have[s] {
				have[s] = true
				extra = append(extra, s)
			}
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

var (
	yearRangeRe   = regexp.MustCompile(`(?i)\b(?:from|between)\s+((?:19|20)\d{2})\s+(?:to|and|through|until|-)\s+((?:19|20)\d{2})\b|\b((?:19|20)\d{2})\s*[-–]\s*((?:19|20)\d{2})\b`)
	yearVersusRe  = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s+(?:vs\.?|versus|compared to|and)\s+((?:19|20)\d{2})\b`)
	compoundAndRe = regexp.MustCompile(`(?i)\s+and\s+(?:(?:what|how|when|where|who|which|why)\b|(?:did|do|does|is|are|was|were)\s+(?:i|my|we|you)\b)`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

// maxRangeYears bounds the sub-queries a year range produces.
const maxRangeYears = 6

// Decompose splits year ranges, year-versus-year comparisons and compound
// questions into sub-queries. A query that does not split is returned as
// the only element.
func Decompose(query string) []string {
	if m := yearRangeRe.FindStringSubmatchIndex(query); m != nil {
		from, to := submatch(query, m, 1), submatch(query, m, 2)
		if from == "" {
			from, to = submatch(query, m, 3), submatch(query, m, 4)
		}
		lo, _ := strconv.Atoi(from)
		hi, _ := strconv.Atoi(to)
		if lo < hi && hi-lo < maxRangeYears {
			base := collapse(query[:m[0]] + " " + query[m[1]:])
			var out []string
			for y := lo; y <= hi; y++ {
				out = append(out, collapse(base+" "+strconv.Itoa(y)))
			}
			return out
		}
	}
	if m := yearVersusRe.FindStringSubmatchIndex(query); m != nil {
		base := collapse(query[:m[0]] + " " + query[m[1]:])
		return []string{
			collapse(base + " " + submatch(query, m, 1)),
			collapse(base + " " + submatch(query, m, 2)),
		}
	}
	if loc := compoundAndRe.FindStringIndex(query); loc != nil {
		first := collapse(query[:loc[0]])
		second := collapse(strings.TrimPrefix(strings.TrimSpace(query[loc[0]:]), "and"))
		if len(lexicon.ContentWords(first)) > 0 && len(lexicon.ContentWords(second)) > 0 {
			return []string{first, second}
		}
	}
	return []string{query}
}

func submatch(s string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

func collapse(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

// BuildWhere combines the silo filter, an archetype subscope and a source
// restriction with $and.
func BuildWhere(silo string, subscope []string, sources []string) vectordb.Filter {
	var parts []vectordb.Filter
	if silo != "" {
		parts = append(parts, vectordb.Eq(vectordb.KeySilo, silo))
	} else if len(subscope) > 0 {
		parts = append(parts, vectordb.In(vectordb.KeySilo, subscope...))
	}
	if len(sources) > 0 {
		parts = append(parts, vectordb.In(vectordb.KeySource, sources...))
	}
	return vectordb.And(parts...)
}

// profileTriggers are the phrases a profile question looks for verbatim.
var profileTriggers = []string{
	"About me", "about me", "Summary", "Profile", "Experience", "Skills", "Education", "Resume", "Bio",
}

var (
	quotedRe = regexp.MustCompile(`"([^"]{2,80})"|“([^”]{2,80})”`)
	numberRe = regexp.MustCompile(`\b\d[\d,.]*\d\b|\b\d\b`)
)

// maxAnchorWords bounds the content words used as lexical anchors.
const maxAnchorWords = 4

// LexicalAnchors returns the phrases the hybrid lexical pass matches with
// $contains: fixed triggers for profile questions; quoted phrases, numbers
// and content words for lookups. Matching is case-sensitive, so content
// words are tried as written and capitalized.
func LexicalAnchors(query string, tag intent.Tag) []string {
	if tag == intent.EvidenceProfile {
		return append([]string(nil), profileTriggers...)
	}
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	out = append(out, numberRe.FindAllString(query, -1)...)
	words := 0
	for _, w := range lexicon.ContentWords(query) {
		if len(w) < 3 || len(lexicon.Years(w)) > 0 || words >= maxAnchorWords {
			continue
		}
		words++
		out = append(out, w, strings.ToUpper(w[:1])+w[1:])
	}
	return vectordb.Contains(out...).Contains
}

// anchorMatches counts the distinct anchors found in doc, ignoring case.
func anchorMatches(doc string, anchors []string) int {
	lower := strings.ToLower(doc)
	seen := make(map[string]bool)
	for _, a := range anchors {
		la := strings.ToLower(a)
		if !seen[la] && strings.Contains(lower, la) {
			seen[la] = true
		}
	}
	return len(seen)
}
