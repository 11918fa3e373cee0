package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/mock"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

type fileInfo struct {
	name  string
	size  int64
	mtime time.Time
}

func (f fileInfo) Name() string       { return f.name }
func (f fileInfo) Size() int64        { return f.size }
func (f fileInfo) Mode() fs.FileMode  { return 0o644 }
func (f fileInfo) ModTime() time.Time { return f.mtime }
func (f fileInfo) IsDir() bool        { return false }
func (f fileInfo) Sys() any           { return nil }

// statFrom serves file info straight from the manifest, so every entry is
// fresh.
func statFrom(man *silo.Manifest) silo.StatFunc {
	return func(name string) (fs.FileInfo, error) {
		for _, s := range man.Silos {
			if f, ok := s.Files[name]; ok {
				return fileInfo{name: name, size: f.Size, mtime: time.Unix(int64(f.Mtime), 0)}, nil
			}
		}
		return nil, os.ErrNotExist
	}
}

func at(year int, month time.Month, day int) float64 {
	return float64(time.Date(year, month, day, 12, 0, 0, 0, time.Local).Unix())
}

type fixture struct {
	stores *silo.Stores
	stat   silo.StatFunc
}

func newFixture(files map[string]silo.ManifestFile) fixture {
	man := &silo.Manifest{Silos: map[string]silo.ManifestSilo{
		"docs": {Path: "/lib", Files: files},
	}}
	return fixture{
		stores: &silo.Stores{
			Registry:     silo.NewRegistry(silo.Silo{Slug: "docs", DisplayName: "Docs", Path: "/lib", FilesIndexed: len(files)}),
			Manifest:     man,
			FileRegistry: &silo.FileRegistry{ByHash: map[string][]silo.FileRef{}},
		},
		stat: statFrom(man),
	}
}

func (f fixture) catalog(opts ...Option) *Catalog {
	return New(f.stores, append([]Option{WithStat(f.stat)}, opts...)...)
}

func TestFileListByYear(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/c.txt":      {Mtime: at(2022, 3, 1), Size: 1, Hash: "c"},
		"/lib/a.txt":      {Mtime: at(2022, 7, 1), Size: 1, Hash: "a"},
		"/lib/sub/b.pdf":  {Mtime: at(2022, 11, 1), Size: 1, Hash: "b"},
		"/lib/later.docx": {Mtime: at(2023, 1, 5), Size: 1, Hash: "d"},
	})

	r, err := f.catalog().FileListByYear(Request{Slug: "docs"}, 2022)
	require.NoError(t, err)
	assert.Equal(t, "/lib/a.txt\n/lib/c.txt\n/lib/sub/b.pdf", r.Render(true))
	assert.Equal(t, 4, r.ScannedCount)
	assert.Equal(t, 3, r.MatchedCount)
	assert.False(t, r.CapApplied)
	assert.Equal(t, "docs", r.Scope)
}

func TestFileListByYearCap(t *testing.T) {
	files := map[string]silo.ManifestFile{}
	for i := 0; i < 60; i++ {
		files["/lib/f"+string(rune('A'+i%26))+string(rune('a'+i/26))+".txt"] = silo.ManifestFile{Mtime: at(2021, 5, 5), Size: 1}
	}
	r, err := newFixture(files).catalog().FileListByYear(Request{Slug: "docs"}, 2021)
	require.NoError(t, err)
	assert.Len(t, r.Lines, FileListCap)
	assert.True(t, r.CapApplied)
	assert.Equal(t, 60, r.MatchedCount)
}

func TestStaleCatalog(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/a.txt": {Mtime: at(2022, 3, 1), Size: 1},
	})
	c := New(f.stores, WithStat(func(string) (fs.FileInfo, error) { return nil, os.ErrNotExist }))

	_, err := c.FileListByYear(Request{Slug: "docs"}, 2022)
	var stale *StaleError
	require.True(t, errors.As(err, &stale))
	assert.Contains(t, stale.Reason, "missing_file")

	r, err := c.FileListByYear(Request{Slug: "docs", Force: true}, 2022)
	require.NoError(t, err)
	assert.True(t, r.Stale)
	assert.Equal(t, []string{"/lib/a.txt"}, r.Lines)
}

func TestStructure(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/a.pdf":       {Mtime: at(2022, 1, 10), Size: 1, Hash: "same"},
		"/lib/copy/a.pdf":  {Mtime: at(2022, 1, 11), Size: 1, Hash: "same"},
		"/lib/notes.md":    {Mtime: at(2023, 6, 1), Size: 1, Hash: "n"},
		"/lib/deck.pptx":   {Mtime: at(2021, 2, 2), Size: 1, Hash: "d"},
		"/lib/.git/config": {Mtime: at(2020, 1, 1), Size: 1, Hash: "g"},
	})
	c := f.catalog(WithIgnore([]string{"**/.git/**"}))
	req := Request{Slug: "docs"}

	t.Run("outline", func(t *testing.T) {
		r, err := c.Structure(req, intent.ModeOutline, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.pdf (2 copies)", "deck.pptx", "notes.md"}, r.Lines)
		assert.Equal(t, 4, r.ScannedCount)
	})

	t.Run("recent", func(t *testing.T) {
		r, err := c.Structure(req, intent.ModeRecent, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-06-01 notes.md", "2022-01-11 a.pdf", "2022-01-10 a.pdf", "2021-02-02 deck.pptx"}, r.Lines)
	})

	t.Run("inventory", func(t *testing.T) {
		r, err := c.Structure(req, intent.ModeInventory, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{".md: 1", ".pdf: 1", ".pptx: 1"}, r.Lines)
	})

	t.Run("ext count", func(t *testing.T) {
		r, err := c.Structure(req, intent.ModeExtCount, []string{".pdf"})
		require.NoError(t, err)
		assert.Equal(t, "2", r.Render(true))

		_, err = c.Structure(req, intent.ModeExtCount, nil)
		assert.Error(t, err)
	})
}

func TestMetadataAggregate(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/x/a.pdf": {Mtime: at(2022, 1, 10), Size: 1},
		"/lib/x/b.pdf": {Mtime: at(2022, 5, 10), Size: 1},
		"/lib/y/c.txt": {Mtime: at(2021, 8, 10), Size: 1},
		"/lib/d.txt":   {Mtime: at(2023, 8, 10), Size: 1},
	})
	c := f.catalog()

	r, err := c.MetadataAggregate(Request{Slug: "docs"}, intent.ByYear)
	require.NoError(t, err)
	assert.Equal(t, []string{"2022: 2", "2021: 1", "2023: 1"}, r.Lines)

	r, err = c.MetadataAggregate(Request{Slug: "docs"}, intent.ByQuarter)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-Q3: 1", "2022-Q1: 1", "2022-Q2: 1", "2023-Q3: 1"}, r.Lines)

	r, err = c.MetadataAggregate(Request{Slug: "docs"}, intent.ByFolder)
	require.NoError(t, err)
	assert.Equal(t, []string{"x: 2", ".: 1", "y: 1"}, r.Lines)

	r, err = c.MetadataAggregate(Request{Slug: "docs"}, intent.ByExtension)
	require.NoError(t, err)
	assert.Equal(t, []string{".pdf: 2", ".txt: 2"}, r.Lines)
}

func TestTimeline(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/tax/2020.pdf": {Mtime: at(2020, 4, 1), Size: 1},
		"/lib/tax/2021.pdf": {Mtime: at(2021, 4, 1), Size: 1},
		"/lib/trip/map.png": {Mtime: at(2020, 6, 1), Size: 1},
		"/lib/tax/2024.pdf": {Mtime: at(2024, 4, 1), Size: 1},
	})
	r, err := f.catalog().Timeline(Request{Slug: "docs"}, TimelineRange{From: 2020, To: 2021, Keyword: "tax"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-04-01 tax/2020.pdf", "2021-04-01 tax/2021.pdf"}, r.Lines)
	assert.Equal(t, []string{"/lib/tax/2020.pdf", "/lib/tax/2021.pdf"}, r.Files)
}

func TestCodeLanguage(t *testing.T) {
	f := newFixture(map[string]silo.ManifestFile{
		"/lib/api/main.go":   {Mtime: at(2023, 2, 1), Size: 1},
		"/lib/api/server.go": {Mtime: at(2023, 3, 1), Size: 1},
		"/lib/api/util.go":   {Mtime: at(2022, 3, 1), Size: 1},
		"/lib/api/zz.go":     {Mtime: at(2023, 3, 1), Size: 1},
		"/lib/tools/run.py":  {Mtime: at(2023, 3, 1), Size: 1},
		"/lib/README.md":     {Mtime: at(2023, 3, 1), Size: 1},
	})
	c := f.catalog()

	r, err := c.CodeLanguage(Request{Slug: "docs"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Most used language in Docs: Go (4 of 5 code files).", r.Title)
	assert.Equal(t, []string{"/lib/api/main.go", "/lib/api/server.go", "/lib/api/util.go"}, r.Files)
	assert.Equal(t, "Breakdown: Go: 4, Python: 1", r.Lines[len(r.Lines)-1])

	r, err = c.CodeLanguage(Request{Slug: "docs"}, 2022)
	require.NoError(t, err)
	assert.Equal(t, 1, r.MatchedCount)
	assert.Equal(t, []string{"/lib/api/util.go"}, r.Files)
}

func TestProjectCount(t *testing.T) {
	files := map[string]silo.ManifestFile{
		"/lib/api/main.go":   {Mtime: at(2023, 2, 1), Size: 1},
		"/lib/web/app.ts":    {Mtime: at(2023, 2, 1), Size: 1},
		"/lib/notes/todo.md": {Mtime: at(2023, 2, 1), Size: 1},
		"/lib/script.py":     {Mtime: at(2023, 2, 1), Size: 1},
	}

	t.Run("file registry", func(t *testing.T) {
		f := newFixture(files)
		f.stores.FileRegistry.ByHash = map[string][]silo.FileRef{
			"h1": {{Silo: "docs", Path: "/lib/api/main.go"}},
			"h2": {{Silo: "docs", Path: "/lib/web/app.ts"}, {Silo: "other", Path: "/x/y/z.go"}},
			"h3": {{Silo: "docs", Path: "/lib/notes/todo.md"}},
			"h4": {{Silo: "docs", Path: "/lib/script.py"}},
		}
		r, err := f.catalog().ProjectCount(context.Background(), Request{Slug: "docs"})
		require.NoError(t, err)
		assert.Equal(t, 2, r.MatchedCount)
		assert.Equal(t, []string{"- api", "- web"}, r.Lines)
	})

	t.Run("chunk metadata fallback", func(t *testing.T) {
		f := newFixture(files)
		store := &mock.Corpus{Chunks: []vectordb.Hit{
			{ID: "1", Metadata: vectordb.Metadata{Source: "/lib/api/main.go", Silo: "docs"}},
			{ID: "2", Metadata: vectordb.Metadata{Source: "/lib/api/main.go", Silo: "docs"}},
			{ID: "3", Metadata: vectordb.Metadata{Source: "/other/cli/x.go", Silo: "other"}},
		}}
		r, err := f.catalog(WithVectors(store)).ProjectCount(context.Background(), Request{Slug: "docs"})
		require.NoError(t, err)
		assert.Equal(t, 1, r.MatchedCount)
		assert.Contains(t, r.Title, "chunk metadata")
	})
}

func TestIgnored(t *testing.T) {
	assert.True(t, Ignored(".git/config", []string{"**/.git/**"}))
	assert.True(t, Ignored("a/b/.DS_Store", []string{"**/.DS_Store"}))
	assert.True(t, Ignored("x/cache.pyc", []string{"*.pyc"}))
	assert.False(t, Ignored("a/b.txt", nil))
}
