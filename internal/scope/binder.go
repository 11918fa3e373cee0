// Package scope binds natural-language silo phrases ("in my tax folder") to
// registry slugs and ranks silos for weak-scope retries.
package scope

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
)

// Binding confidences.
const (
	ConfidenceExact      = 1.0
	ConfidenceNormalized = 0.9
	ConfidencePrefix     = 0.8

	// MinConfidence is the lowest confidence applied as a silo filter.
	MinConfidence = ConfidencePrefix
)

// Binding is the outcome of Bind.
type Binding struct {
	Slug         string
	Confidence   float64
	Reason       string
	Phrase       string // matched span, stripped from the query when bound
	CleanedQuery string
}

// Bound reports whether the binding is strong enough to filter on.
func (b Binding) Bound() bool {
	return b.Slug != "" && b.Confidence >= MinConfidence
}

var phraseRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:in|from|within|inside)\s+(?:my|the)\s+([\w.'&-]+(?:\s+[\w.'&-]+){0,3}?)\s+(?:silo|folder|library|collection)\b`),
	regexp.MustCompile(`(?i)\b(?:in|from|within|inside)\s+my\s+([\w.'&-]+(?:\s+[\w.'&-]+){0,3}?)\s*(?:[?.!,]|$|\s(?:about|for|regarding|on|that|which|where|what|when|how|did|do|does|is|are|was|were|with)\b)`),
	regexp.MustCompile(`(?i)\b([\w.'&-]+(?:\s+[\w.'&-]+)?)\s+(?:silo|folder)\b`),
}

type candidate struct {
	phrase string // silo name as written
	span   string // text to strip
}

func candidates(query string) []candidate {
	var out []candidate
	for i, re := range phraseRes {
		for _, m := range re.FindAllStringSubmatchIndex(query, -1) {
			name := strings.TrimSpace(query[m[2]:m[3]])
			span := query[m[0]:m[1]]
			if i == 1 {
				// the trailing boundary word belongs to the question
				span = query[m[0]:m[3]]
			}
			span = strings.TrimRight(span, "?.!, ")

			lower := strings.ToLower(name)
			for _, det := range []string{"my ", "the "} {
				if strings.HasPrefix(lower, det) {
					name = strings.TrimSpace(name[len(det):])
					lower = strings.ToLower(name)
				}
			}
			if name == "" {
				continue
			}
			out = append(out, candidate{phrase: name, span: span})
			// leading sub-phrases, so "tax docs stuff" can still bind "tax docs"
			words := strings.Fields(name)
			for n := len(words) - 1; n >= 1; n-- {
				out = append(out, candidate{phrase: strings.Join(words[:n], " "), span: span})
			}
		}
	}
	return out
}

// Bind resolves a scope phrase in query against silos. The strongest
// confidence across all candidate phrases wins; ties keep the earliest
// candidate.
func Bind(query string, silos []silo.Silo) Binding {
	best := Binding{Reason: "no_phrase", CleanedQuery: query}
	cands := candidates(query)
	if len(cands) == 0 {
		return best
	}
	best.Reason = "no_match"

	for _, c := range cands {
		slug, conf, reason := match(c.phrase, silos)
		if reason == "ambiguous" && best.Confidence == 0 {
			best.Reason = "ambiguous"
			continue
		}
		if conf > best.Confidence {
			best = Binding{Slug: slug, Confidence: conf, Reason: reason, Phrase: c.span}
		}
	}

	if best.Bound() {
		best.CleanedQuery = StripScopePhrase(query, best.Phrase)
	} else {
		best.CleanedQuery = query
	}
	return best
}

// match scores one phrase against every silo.
func match(phrase string, silos []silo.Silo) (string, float64, string) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return "", 0, "no_match"
	}

	var exact, normalized, prefix []string
	np := lexicon.Normalize(p)
	for _, s := range silos {
		names := []string{s.DisplayName, s.Slug, s.SlugBase()}
		for _, n := range names {
			if n != "" && strings.EqualFold(n, p) {
				exact = appendUnique(exact, s.Slug)
			}
		}
		if np == "" {
			continue
		}
		for _, n := range names {
			nn := lexicon.Normalize(n)
			if nn == "" {
				continue
			}
			if nn == np {
				normalized = appendUnique(normalized, s.Slug)
			} else if len(np) >= 3 && strings.HasPrefix(nn, np) {
				prefix = appendUnique(prefix, s.Slug)
			}
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], ConfidenceExact, "exact"
	case len(exact) > 1:
		return "", 0, "ambiguous"
	case len(normalized) == 1:
		return normalized[0], ConfidenceNormalized, "normalized"
	case len(normalized) > 1:
		return "", 0, "ambiguous"
	case len(prefix) == 1:
		return prefix[0], ConfidencePrefix, "prefix"
	case len(prefix) > 1:
		return "", 0, "ambiguous"
	}
	return "", 0, "no_match"
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

var spaceRe = regexp.MustCompile(`\s+`)

// StripScopePhrase removes every case-insensitive occurrence of phrase from
// query and normalizes whitespace. Applying it twice equals applying it
// once.
func StripScopePhrase(query, phrase string) string {
	out := query
	if p := strings.TrimSpace(phrase); p != "" {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p))
		out = re.ReplaceAllString(out, " ")
	}
	out = spaceRe.ReplaceAllString(out, " ")
	out = strings.ReplaceAll(out, " ?", "?")
	out = strings.ReplaceAll(out, " ,", ",")
	out = strings.ReplaceAll(out, " .", ".")
	return strings.TrimSpace(out)
}
