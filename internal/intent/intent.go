// Package intent classifies a query into one dispatch tag.
package intent

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
)

// Tag is the routing outcome for one query.
type Tag string

const (
	Capabilities      Tag = "CAPABILITIES"
	FileList          Tag = "FILE_LIST"
	MetadataAggregate Tag = "METADATA_AGGREGATE"
	Timeline          Tag = "TIMELINE"
	Structure         Tag = "STRUCTURE"
	StructureExtCount Tag = "STRUCTURE_EXT_COUNT"
	CodeLanguage      Tag = "CODE_LANGUAGE"
	FieldLookup       Tag = "FIELD_LOOKUP"
	MoneyYearTotal    Tag = "MONEY_YEAR_TOTAL"
	TaxQuery          Tag = "TAX_QUERY"
	ProjectCount      Tag = "PROJECT_COUNT"
	Reflect           Tag = "REFLECT"
	EvidenceProfile   Tag = "EVIDENCE_PROFILE"
	Aggregate         Tag = "AGGREGATE"
	Lookup            Tag = "LOOKUP"
)

// RequiresScope reports whether the tag is a catalog handler that needs a
// silo.
func (t Tag) RequiresScope() bool {
	switch t {
	case FileList, MetadataAggregate, Timeline, Structure, StructureExtCount, CodeLanguage, ProjectCount:
		return true
	}
	return false
}

// Analytical reports whether the tag synthesizes across many sources.
func (t Tag) Analytical() bool {
	return t == Aggregate || t == EvidenceProfile || t == Reflect
}

var (
	capabilitiesRe = regexp.MustCompile(`^\s*(help|capabilities|what can you do|what are your capabilities|what do you support|what can i ask( you)?)\s*[?.!]*\s*$`)
	fileNounRe     = regexp.MustCompile(`\b(files?|documents?|docs)\b`)
	fileListRe     = regexp.MustCompile(`\b(files?|documents?|docs)\b[^?]*\b(from|in|during|modified|created|dated|changed)\b`)
	howManyRe      = regexp.MustCompile(`\bhow many\b`)
	byDimensionRe  = regexp.MustCompile(`\b(by|per)\s+(year|month|quarter|extension|file ?type|type|folder|directory)\b`)
	aggregateVerb  = regexp.MustCompile(`\b(count|counts|breakdown|break down|group|grouped|distribution|how many)\b`)
	timelineRe     = regexp.MustCompile(`\b(timeline|chronolog\w*)\b`)
	structureRe    = regexp.MustCompile(`\b(structure|outline|layout|directory tree|folder tree|snapshot|inventory)\b|\b(recent|recently (changed|modified|added)|latest|newest) files\b|\bwhat('s| is) in (this|my|the) (silo|folder|library)\b`)
	extCountRe     = regexp.MustCompile(`\bhow many\b[^?]*?(\.[a-z0-9]{1,5}\b|\b(` + extWords + `)\b)\s*(files?|documents?)?`)
	languageRe     = regexp.MustCompile(`\b(programming|coding|code)\s+languages?\b|\b(what|which|main|primary|dominant|most (used|common))\b[^?]*\blanguages?\b`)
	projectCountRe = regexp.MustCompile(`\bhow many\b[^?]*\b(projects|repos|repositories|codebases)\b`)
	formRe         = regexp.MustCompile(`\bform\s*[a-z0-9-]+\b|\b1040(-?sr)?\b|\bw-?2\b|\b1099(-[a-z]+)?\b|\bschedule\s+[a-z0-9]+\b`)
	lineRe         = regexp.MustCompile(`\bline\s*\d+[a-z]?\b`)
	incomeRe       = regexp.MustCompile(`\b(income|earn|earned|earnings|make|made)\b`)
	taxSpecificRe  = regexp.MustCompile(`\b(withh\w*|box|w-?2|1099|federal tax|state tax|refund|agi|adjusted gross|deductions?|tax(es)? paid|payroll)\b`)
	taxQueryRe     = regexp.MustCompile(`\b(withh\w*|box\s*\d+[a-z]?|w-?2|1099|federal (income )?tax|state (income )?tax|social security|medicare|payroll( tax)?|wages)\b`)
	reflectRe      = regexp.MustCompile(`\b(reflect|reflection|lessons learned|what (have|did) i learn\w*|patterns in my|looking back|retrospective)\b`)
	profileRe      = regexp.MustCompile(`\b(who am i|about me|my (background|profile|skills|experience|interests|strengths)|what do (you|my files|my documents) (know|say) about me|summari[sz]e (me|my life))\b`)
	aggregateRe    = regexp.MustCompile(`\b(how many|total|sum of|list (all|every)|all (the|my)|across|every|compare|comparison|overview|summari[sz]e)\b`)
)

const extWords = `pdfs?|docx?|xlsx?|pptx?|csvs?|txt|md|markdown|py|python|go|js|ts|jpe?g|jpgs|png|pngs|images?|spreadsheets?|presentations?`

type rule struct {
	match func(q string, years []int) bool
	tag   Tag
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{func(q string, _ []int) bool { return capabilitiesRe.MatchString(q) }, Capabilities},
	{func(q string, y []int) bool {
		return len(y) > 0 && fileListRe.MatchString(q) && !howManyRe.MatchString(q) && !byDimensionRe.MatchString(q)
	}, FileList},
	{func(q string, _ []int) bool {
		return fileNounRe.MatchString(q) && byDimensionRe.MatchString(q) && aggregateVerb.MatchString(q)
	}, MetadataAggregate},
	{func(q string, _ []int) bool { return timelineRe.MatchString(q) }, Timeline},
	{func(q string, _ []int) bool { return structureRe.MatchString(q) }, Structure},
	{func(q string, _ []int) bool { return extCountRe.MatchString(q) && !projectCountRe.MatchString(q) }, StructureExtCount},
	{func(q string, y []int) bool {
		return languageRe.MatchString(q) && len(y) <= 1 && !projectCountRe.MatchString(q) && !fileListRe.MatchString(q)
	}, CodeLanguage},
	{func(q string, y []int) bool { return len(y) > 0 && formRe.MatchString(q) && lineRe.MatchString(q) }, FieldLookup},
	{func(q string, y []int) bool {
		return len(y) > 0 && incomeRe.MatchString(q) && !formRe.MatchString(q) && !lineRe.MatchString(q) && !taxSpecificRe.MatchString(q)
	}, MoneyYearTotal},
	{func(q string, y []int) bool { return len(y) > 0 && taxQueryRe.MatchString(q) }, TaxQuery},
	{func(q string, _ []int) bool { return projectCountRe.MatchString(q) }, ProjectCount},
	{func(q string, _ []int) bool { return reflectRe.MatchString(q) }, Reflect},
	{func(q string, _ []int) bool { return profileRe.MatchString(q) }, EvidenceProfile},
	{func(q string, _ []int) bool { return aggregateRe.MatchString(q) }, Aggregate},
}

// Route classifies query. It is pure and case-insensitive.
func Route(query string) Tag {
	q := strings.ToLower(strings.TrimSpace(query))
	years := lexicon.Years(q)
	for _, r := range rules {
		if r.match(q, years) {
			return r.tag
		}
	}
	return Lookup
}
