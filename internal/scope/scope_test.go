package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/silo"
)

var testSilos = []silo.Silo{
	{Slug: "tax-docs-1a2b3c4d", DisplayName: "Tax Docs"},
	{Slug: "photos", DisplayName: "Photos"},
	{Slug: "stuff-deadbeef", DisplayName: "Stuff"},
	{Slug: "work-notes", DisplayName: "Work Notes"},
	{Slug: "work-archive", DisplayName: "Work Archive"},
}

func TestBind(t *testing.T) {
	tests := []struct {
		query      string
		slug       string
		confidence float64
		reason     string
		cleaned    string
	}{
		{"what is in my tax docs folder about 2021?", "tax-docs-1a2b3c4d", 1.0, "exact", "what is about 2021?"},
		{"find receipts in my stuff silo", "stuff-deadbeef", 1.0, "exact", "find receipts"},
		{"beach pictures from my photo folder", "photos", 0.9, "normalized", "beach pictures"},
		{"what did I write in my taxdocs about refunds", "tax-docs-1a2b3c4d", 0.9, "normalized", "what did I write about refunds"},
		{"notes in my phot folder", "photos", 0.8, "prefix", "notes"},
		{"anything in my work folder", "", 0, "ambiguous", "anything in my work folder"},
		{"what is my margin", "", 0, "no_phrase", "what is my margin"},
		{"stuff in my garden folder", "", 0, "no_match", "stuff in my garden folder"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			b := Bind(tt.query, testSilos)
			assert.Equal(t, tt.slug, b.Slug)
			assert.InDelta(t, tt.confidence, b.Confidence, 1e-9)
			assert.Equal(t, tt.reason, b.Reason)
			assert.Equal(t, tt.cleaned, b.CleanedQuery)
		})
	}
}

func TestStripScopePhraseIdempotent(t *testing.T) {
	q := "what is in my tax docs folder about 2021?"
	once := StripScopePhrase(q, "in my tax docs folder")
	assert.Equal(t, "what is about 2021?", once)
	assert.Equal(t, once, StripScopePhrase(once, "in my tax docs folder"))
	assert.Equal(t, "a b", StripScopePhrase("  a   b ", ""))
}

func TestDetectFiletypeHint(t *testing.T) {
	for _, q := range []string{"the PowerPoint about Q3", "my slides on pricing", "that slide deck", "the pptx"} {
		assert.Equal(t, []string{".pptx", ".ppt"}, DetectFiletypeHint(q).Extensions, q)
	}
	assert.True(t, DetectFiletypeHint("the spreadsheet").IsZero())

	h := DetectFiletypeHint("slides")
	assert.True(t, h.Prefers("/a/Deck.PPTX"))
	assert.False(t, h.Prefers("/a/notes.docx"))
}

func TestRankSilos(t *testing.T) {
	man := &silo.Manifest{Silos: map[string]silo.ManifestSilo{
		"stuff-deadbeef": {Path: "/s", Files: map[string]silo.ManifestFile{
			"/s/pricing review.pptx": {}, "/s/misc.txt": {},
		}},
		"work-notes": {Path: "/w", Files: map[string]silo.ManifestFile{
			"/w/pricing review.docx": {},
		}},
		"photos": {Path: "/p", Files: map[string]silo.ManifestFile{
			"/p/beach.jpg": {},
		}},
	}}

	ranked := RankSilos("what did the pricing review slides say", testSilos, man, DetectFiletypeHint("slides"))
	require.NotEmpty(t, ranked)
	assert.Equal(t, "stuff-deadbeef", ranked[0].Slug)
	assert.Equal(t, "work-notes", ranked[1].Slug)
	for _, c := range ranked {
		assert.NotEqual(t, "photos", c.Slug)
	}
}
