package intent

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
)

// StructureMode selects the structure snapshot variant.
type StructureMode string

const (
	ModeOutline   StructureMode = "outline"
	ModeRecent    StructureMode = "recent"
	ModeInventory StructureMode = "inventory"
	ModeExtCount  StructureMode = "ext_count"
)

// Dimension is a metadata aggregation axis.
type Dimension string

const (
	ByYear      Dimension = "year"
	ByMonth     Dimension = "month"
	ByQuarter   Dimension = "quarter"
	ByExtension Dimension = "extension"
	ByFolder    Dimension = "folder"
)

var (
	recentRe    = regexp.MustCompile(`\b(recent|recently|latest|newest|last (modified|changed|touched))\b`)
	inventoryRe = regexp.MustCompile(`\b(inventory|file types|kinds of files)\b`)
	dotExtRe    = regexp.MustCompile(`\.([a-z0-9]{1,5})\b`)
)

// ModeOf returns the structure mode implied by query.
func ModeOf(query string) StructureMode {
	q := strings.ToLower(query)
	switch {
	case extCountRe.MatchString(q):
		return ModeExtCount
	case recentRe.MatchString(q):
		return ModeRecent
	case inventoryRe.MatchString(q):
		return ModeInventory
	}
	return ModeOutline
}

// DimensionOf returns the aggregation axis named by query.
func DimensionOf(query string) (Dimension, bool) {
	m := byDimensionRe.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return "", false
	}
	switch m[2] {
	case "year":
		return ByYear, true
	case "month":
		return ByMonth, true
	case "quarter":
		return ByQuarter, true
	case "folder", "directory":
		return ByFolder, true
	}
	return ByExtension, true
}

// extAliases maps spoken file kinds to extensions.
var extAliases = map[string][]string{
	"pdf": {".pdf"}, "pdfs": {".pdf"},
	"doc": {".doc"}, "docx": {".docx"},
	"xls": {".xls"}, "xlsx": {".xlsx"},
	"ppt": {".ppt"}, "pptx": {".pptx"},
	"csv": {".csv"}, "csvs": {".csv"},
	"txt": {".txt"},
	"md": {".md"}, "markdown": {".md"},
	"py": {".py"}, "python": {".py"},
	"go": {".go"},
	"js": {".js"},
	"ts": {".ts"},
	"jpg": {".jpg", ".jpeg"}, "jpeg": {".jpg", ".jpeg"}, "jpgs": {".jpg", ".jpeg"},
	"png": {".png"}, "pngs": {".png"},
	"image": {".jpg", ".jpeg", ".png", ".gif", ".heic"}, "images": {".jpg", ".jpeg", ".png", ".gif", ".heic"},
	"spreadsheet": {".xlsx", ".xls", ".csv"}, "spreadsheets": {".xlsx", ".xls", ".csv"},
	"presentation": {".pptx", ".ppt"}, "presentations": {".pptx", ".ppt"},
}

// ExtensionsOf returns the extensions an extension-count query asks about.
func ExtensionsOf(query string) []string {
	q := strings.ToLower(query)
	if m := dotExtRe.FindStringSubmatch(q); m != nil {
		if exts, ok := extAliases[m[1]]; ok {
			return exts
		}
		return []string{"." + m[1]}
	}
	for _, t := range lexicon.Tokens(q) {
		if exts, ok := extAliases[t]; ok {
			return exts
		}
	}
	return nil
}

// YearRange returns the inclusive year range mentioned in query.
func YearRange(query string) (from, to int, ok bool) {
	years := lexicon.Years(query)
	if len(years) == 0 {
		return 0, 0, false
	}
	return years[0], years[len(years)-1], true
}

var timelineNoise = map[string]bool{
	"timeline": true, "chronological": true, "chronologically": true, "chronology": true,
	"files": true, "file": true, "documents": true, "document": true, "docs": true,
	"between": true, "during": true, "order": true, "silo": true, "folder": true,
}

// TimelineKeyword returns the first content word of a timeline query that
// can filter paths, or "".
func TimelineKeyword(query string) string {
	for _, w := range lexicon.ContentWords(query) {
		if timelineNoise[w] || len(lexicon.Years(w)) > 0 {
			continue
		}
		if strings.IndexFunc(w, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
			continue
		}
		return w
	}
	return ""
}
