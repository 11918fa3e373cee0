// Package answer cleans model output and renders the source footer.
package answer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/confidence"
)

// Options select the optional post-processing steps.
type Options struct {
	Strict        bool
	LowConfidence bool
	// ConcentratedSilo names the only silo a unified analytical answer drew
	// evidence from. Empty means no note.
	ConcentratedSilo string
	Sources          []Source
	Scheme           config.EditorScheme
}

// ConcentrationNote is appended when unified evidence came from one silo.
func ConcentrationNote(silo string) string {
	return "Evidence concentration note: retrieved evidence was concentrated in one silo (" + silo + ")."
}

// Postprocess applies the cleanup steps in order. Applying it twice gives
// the same result as applying it once.
func Postprocess(text string, opts Options) string {
	text = stripContextHeaders(text)
	text = secondPerson(text)
	if opts.LowConfidence && !opts.Strict {
		text = normalizeTone(text)
	}
	text = normalizeOwnership(text)
	text = reflowNumberedList(text)
	text = capitalizeFirst(text)
	if opts.ConcentratedSilo != "" {
		note := ConcentrationNote(opts.ConcentratedSilo)
		if !strings.Contains(text, note) {
			text = strings.TrimRight(text, " \n") + "\n\n" + note
		}
	}
	return Linkify(text, opts.Sources, opts.Scheme)
}

var headerRe = regexp.MustCompile(`file=([^\n]+?)(?:\((line|page) (\d+)\))? mtime=\d{4}-\d{2}-\d{2} silo=\S+ doc_type=\S*`)

func stripContextHeaders(text string) string {
	return headerRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := headerRe.FindStringSubmatch(m)
		if sub[2] == "" {
			return sub[1]
		}
		return sub[1] + " (" + sub[2] + " " + sub[3] + ")"
	})
}

var (
	thirdPersonVerbRe = regexp.MustCompile(`(?i)\bthe (?:patient|user) (is|was|has)\b`)
	thirdPersonPossRe = regexp.MustCompile(`(?i)\bthe (?:patient|user)(?:'s|’s)`)
	thirdPersonRe     = regexp.MustCompile(`(?i)\bthe (?:patient|user)\b`)
	sentenceStartRe   = regexp.MustCompile(`(^|[.!?]\s+|\n\s*)(you|your)\b`)
)

var verbAgreement = map[string]string{"is": "are", "was": "were", "has": "have"}

func secondPerson(text string) string {
	text = thirdPersonVerbRe.ReplaceAllStringFunc(text, func(m string) string {
		verb := strings.ToLower(m[strings.LastIndexByte(m, ' ')+1:])
		return "you " + verbAgreement[verb]
	})
	text = thirdPersonPossRe.ReplaceAllString(text, "your")
	text = thirdPersonRe.ReplaceAllString(text, "you")
	return sentenceStartRe.ReplaceAllStringFunc(text, func(m string) string {
		i := strings.LastIndex(m, "you")
		return m[:i] + "Y" + m[i+1:]
	})
}

var (
	leadInRe = regexp.MustCompile(`(?i)^\s*(?:based on the (?:provided|given|available) (?:context|documents|information),?\s*|it appears that\s+|it seems that\s+)+`)
	// sentenceRe treats a terminator followed by a non-space (decimals,
	// file extensions) as part of the sentence.
	sentenceRe = regexp.MustCompile(`(?:[^.!?\n]|[.!?][^\s.!?])+[.!?]*`)
	hedgeRe    = regexp.MustCompile(`(?i)\b(it is unclear|it's unclear|not clear|uncertain|may not be (?:complete|accurate)|cannot be certain|not enough (?:evidence|information))\b`)
)

const caveatPrefix = "Caveat: "

func isUncertain(sentence string) bool {
	return confidence.IsUncertainAnswer(sentence) || hedgeRe.MatchString(sentence)
}

// normalizeTone drops hedging lead-ins and folds repeated uncertainty
// sentences into one trailing caveat.
func normalizeTone(text string) string {
	text = leadInRe.ReplaceAllString(text, "")

	var uncertain []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if isUncertain(s) {
			uncertain = append(uncertain, strings.TrimSpace(s))
		}
	}
	if len(uncertain) < 2 {
		return text
	}

	removed := 0
	text = sentenceRe.ReplaceAllStringFunc(text, func(s string) string {
		if !isUncertain(s) {
			return s
		}
		removed++
		return ""
	})
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(strings.Join(strings.Fields(l), " "))
	}
	body := strings.TrimSpace(collapseBlankLines(strings.Join(lines, "\n")))
	caveat := caveatPrefix + strings.TrimPrefix(uncertain[0], caveatPrefix)
	if body == "" {
		return caveat
	}
	return body + "\n\n" + caveat
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

var (
	authoredByYouRe = regexp.MustCompile(`(?i)\bauthored by you\b`)
	someoneElseRe   = regexp.MustCompile(`(?i)(?:\b(?:was|were|is)\s+)?(?:\b(?:written|authored|created)\s+)?\bby someone else\b|\bsomeone else\b`)
)

func normalizeOwnership(text string) string {
	if !authoredByYouRe.MatchString(text) || !someoneElseRe.MatchString(text) {
		return text
	}
	return someoneElseRe.ReplaceAllString(text, "ownership is uncertain")
}

var listMarkerRe = regexp.MustCompile(`(?:^|\s)(\d{1,2})\.\s`)

// reflowNumberedList splits "1. a 2. b 3. c" written on one line into one
// item per line. A run must start at 1 and count up without gaps.
func reflowNumberedList(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		out = append(out, splitInlineList(line)...)
	}
	return strings.Join(out, "\n")
}

func splitInlineList(line string) []string {
	locs := listMarkerRe.FindAllStringSubmatchIndex(line, -1)
	var cuts []int
	want := 1
	for _, loc := range locs {
		n := 0
		for _, c := range line[loc[2]:loc[3]] {
			n = n*10 + int(c-'0')
		}
		if n != want {
			if n == 1 {
				cuts, want = nil, 1
			} else {
				continue
			}
		}
		cuts = append(cuts, loc[2])
		want++
	}
	if len(cuts) < 2 {
		return []string{line}
	}
	var parts []string
	if head := strings.TrimSpace(line[:cuts[0]]); head != "" {
		parts = append(parts, head)
	}
	for i, c := range cuts {
		end := len(line)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		parts = append(parts, strings.TrimSpace(line[c:end]))
	}
	return parts
}

var leadingPathRe = regexp.MustCompile(`^[\s*_\[]*[\w.-]*[/.]\w`)

// capitalizeFirst upper-cases the first letter unless the text opens with a
// file path.
func capitalizeFirst(text string) string {
	if leadingPathRe.MatchString(text) {
		return text
	}
	for i, r := range text {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return text[:i] + string(unicode.ToUpper(r)) + text[i+len(string(r)):]
			}
			return text
		}
	}
	return text
}
