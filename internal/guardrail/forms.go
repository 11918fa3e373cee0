package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// Form describes one tax form: how it is mentioned and the shapes its line
// values take in extracted text. Each shape is a regexp template with one
// %s verb for the quoted line number and one capture group for the value.
type Form struct {
	Code    string
	Display string
	Mention *regexp.Regexp
	Shapes  []string
}

const amount = `(\(?-?\$?\s*\d[\d,]*(?:\.\d{1,2})?\)?)`

var (
	// "line 9: 7,522" and "Line 9 Total income .... 7,522"
	labelFirstShape = `(?im)\bline\s*%s\b[ \t]*[:.\-]?[ \t]*(?:[a-z][^:\d\n]{0,60}?[:\t ][ \t]*)?\$?[ \t]*` + amount
	// "9 | Total income | 7,522" and tab-separated rows
	rowTableShape = `(?im)^[ \t]*%s[ \t]*[|\t][^|\t\n]*[|\t][ \t]*\$?[ \t]*` + amount + `[ \t]*\|?[ \t]*$`
)

// forms is ordered: the first form mentioned in a query wins.
var forms = []Form{
	{
		Code:    "1040",
		Display: "Form 1040",
		Mention: regexp.MustCompile(`(?i)\b(?:form\s*)?1040(?:-?sr)?\b`),
		Shapes:  []string{labelFirstShape, rowTableShape},
	},
	{
		Code:    "Schedule C",
		Display: "Schedule C",
		Mention: regexp.MustCompile(`(?i)\bschedule\s+c\b`),
		Shapes:  []string{labelFirstShape, rowTableShape},
	},
	{
		Code:    "Schedule 1",
		Display: "Schedule 1",
		Mention: regexp.MustCompile(`(?i)\bschedule\s+1\b`),
		Shapes:  []string{labelFirstShape, rowTableShape},
	},
	{
		Code:    "1099",
		Display: "Form 1099",
		Mention: regexp.MustCompile(`(?i)\b1099(?:-[a-z]+)?\b`),
		Shapes:  []string{labelFirstShape, rowTableShape},
	},
	{
		Code:    "W-2",
		Display: "Form W-2",
		Mention: regexp.MustCompile(`(?i)\bw-?2\b`),
		Shapes:  []string{labelFirstShape, rowTableShape},
	},
}

// FormIn returns the first known form mentioned in s.
func FormIn(s string) (Form, bool) {
	for _, f := range forms {
		if f.Mention.MatchString(s) {
			return f, true
		}
	}
	return Form{}, false
}

// Mentioned reports whether text refers to the form.
func (f Form) Mentioned(text string) bool {
	return f.Mention.MatchString(text)
}

// ExtractLine returns the first value for line found in text, trying each
// shape in order.
func (f Form) ExtractLine(text, line string) (string, bool) {
	for _, shape := range f.Shapes {
		re, err := regexp.Compile(fmt.Sprintf(shape, regexp.QuoteMeta(line)))
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return cleanAmount(m[1]), true
		}
	}
	return "", false
}

func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(s), "")
}
