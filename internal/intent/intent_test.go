package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		query string
		want  Tag
	}{
		{"What can you do?", Capabilities},
		{"what files are from 2022", FileList},
		{"list documents modified in 2021", FileList},
		{"count files by year", MetadataAggregate},
		{"how many documents per extension", MetadataAggregate},
		{"show a timeline of my tax files 2019 to 2022", Timeline},
		{"give me an outline of this silo", Structure},
		{"recent files", Structure},
		{"how many pdf files are there", StructureExtCount},
		{"how many .docx files", StructureExtCount},
		{"what programming language do I use most", CodeLanguage},
		{"which language did I code in during 2023", CodeLanguage},
		{"on 2024 form 1040 what is line 9 total income", FieldLookup},
		{"how much did I earn in 2023", MoneyYearTotal},
		{"what was my total income in 2022", MoneyYearTotal},
		{"how much federal tax was withheld in 2023 by Acme", TaxQuery},
		{"what is box 2 on my 2023 w-2", TaxQuery},
		{"how many projects have I worked on", ProjectCount},
		{"reflect on my writing habits", Reflect},
		{"what do my files say about me", EvidenceProfile},
		{"compare the two proposals", Aggregate},
		{"what restaurant was ranked number 1 in 2020", Lookup},
		{"What is Aster Grill operating margin?", Lookup},
		{"", Lookup},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.query))
		})
	}
}

func TestRouteIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Route("what files are from 2022"), Route("WHAT FILES ARE FROM 2022"))
}

func TestFieldLookupBeatsMoneyYear(t *testing.T) {
	// both rules match; the earlier one wins
	assert.Equal(t, FieldLookup, Route("2024 form 1040 line 11 income"))
}

func TestRequiresScope(t *testing.T) {
	assert.True(t, FileList.RequiresScope())
	assert.True(t, ProjectCount.RequiresScope())
	assert.False(t, Capabilities.RequiresScope())
	assert.False(t, Lookup.RequiresScope())
}

func TestModeOf(t *testing.T) {
	assert.Equal(t, ModeRecent, ModeOf("show recent files"))
	assert.Equal(t, ModeInventory, ModeOf("file inventory"))
	assert.Equal(t, ModeExtCount, ModeOf("how many pdf files"))
	assert.Equal(t, ModeOutline, ModeOf("outline"))
}

func TestDimensionOf(t *testing.T) {
	d, ok := DimensionOf("count files by quarter")
	assert.True(t, ok)
	assert.Equal(t, ByQuarter, d)

	d, _ = DimensionOf("files grouped by file type")
	assert.Equal(t, ByExtension, d)

	_, ok = DimensionOf("count files")
	assert.False(t, ok)
}

func TestExtensionsOf(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, ExtensionsOf("how many PDFs"))
	assert.Equal(t, []string{".docx"}, ExtensionsOf("how many .docx files"))
	assert.Equal(t, []string{".pptx", ".ppt"}, ExtensionsOf("how many presentations"))
	assert.Nil(t, ExtensionsOf("how many things"))
}

func TestYearRangeAndKeyword(t *testing.T) {
	from, to, ok := YearRange("timeline 2022 to 2019")
	assert.True(t, ok)
	assert.Equal(t, 2019, from)
	assert.Equal(t, 2022, to)

	assert.Equal(t, "tax", TimelineKeyword("timeline of tax files 2019 to 2022"))
	assert.Equal(t, "", TimelineKeyword("timeline 2020"))
}
