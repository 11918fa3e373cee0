package silo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) ManifestFile {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return ManifestFile{Mtime: float64(mtime.Unix()), Size: int64(len(content)), Hash: "h-" + filepath.Base(path)}
}

func TestLoadStores(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RegistryFileName), []byte(`{
		"stuff-deadbeef": {"display_name": "Stuff", "path": "/data/stuff", "files_indexed": 2, "chunks_count": 9}
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(`{
		"silos": {"stuff-deadbeef": {"path": "/data/stuff", "files": {
			"/data/stuff/b.txt": {"mtime": 1700000000, "size": 3, "hash": "x"},
			"/data/stuff/a.txt": {"mtime": 1600000000, "size": 4, "hash": "y"}
		}}}
	}`), 0o644))

	st, err := Open(DefaultPaths(dir))
	require.NoError(t, err)

	s, ok := st.Registry.Get("stuff-deadbeef")
	require.True(t, ok)
	assert.Equal(t, "stuff", s.SlugBase())
	assert.Equal(t, "Stuff", s.Name())

	entries := st.Manifest.Entries("stuff-deadbeef")
	require.Len(t, entries, 2)
	assert.Equal(t, "/data/stuff/a.txt", entries[0].Path)
	assert.Equal(t, "a.txt", entries[0].RelPath("/data/stuff"))
	assert.Empty(t, st.FileRegistry.ByHash)
}

func TestResolve(t *testing.T) {
	reg := NewRegistry(
		Silo{Slug: "stuff-deadbeef", DisplayName: "Old Stuff"},
		Silo{Slug: "taxes"},
	)

	s, err := reg.Resolve("stuff")
	require.NoError(t, err)
	assert.Equal(t, "stuff-deadbeef", s.Slug)

	s, err = reg.Resolve("old stuff")
	require.NoError(t, err)
	assert.Equal(t, "stuff-deadbeef", s.Slug)

	_, err = reg.Resolve("nope")
	assert.True(t, errors.Is(err, ErrUnknownSilo))
}

func TestCheckFreshness(t *testing.T) {
	root := t.TempDir()
	when := time.Date(2022, 6, 15, 12, 0, 0, 0, time.UTC)
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	fa := writeFile(t, a, "alpha", when)
	fb := writeFile(t, b, "beta", when)

	man := &Manifest{Silos: map[string]ManifestSilo{
		"docs": {Path: root, Files: map[string]ManifestFile{a: fa, b: fb}},
	}}
	reg := NewRegistry(Silo{Slug: "docs", FilesIndexed: 2})

	assert.False(t, CheckFreshness(reg, man, "docs", nil).Stale)

	t.Run("changed size", func(t *testing.T) {
		require.NoError(t, os.WriteFile(b, []byte("beta-changed"), 0o644))
		require.NoError(t, os.Chtimes(b, when, when))
		f := CheckFreshness(reg, man, "docs", nil)
		assert.True(t, f.Stale)
		assert.Contains(t, f.Reason, "changed_file")
	})

	t.Run("missing file", func(t *testing.T) {
		require.NoError(t, os.Remove(a))
		f := CheckFreshness(reg, man, "docs", nil)
		assert.True(t, f.Stale)
		assert.Equal(t, "missing_file: "+a, f.Reason)
	})

	t.Run("count parity", func(t *testing.T) {
		f := CheckFreshness(NewRegistry(Silo{Slug: "docs", FilesIndexed: 5}), man, "docs", nil)
		assert.True(t, f.Stale)
		assert.Contains(t, f.Reason, "count_mismatch")
	})

	t.Run("no manifest section", func(t *testing.T) {
		f := CheckFreshness(reg, man, "other", nil)
		assert.True(t, f.Stale)
	})
}
