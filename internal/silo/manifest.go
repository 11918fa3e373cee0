package silo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ManifestFile is the freshness key of one indexed file.
type ManifestFile struct {
	Mtime float64 `json:"mtime"`
	Size  int64   `json:"size"`
	Hash  string  `json:"hash"`
}

// ModTime converts the manifest mtime (seconds since the epoch) to local
// time.
func (f ManifestFile) ModTime() time.Time {
	sec := int64(f.Mtime)
	nsec := int64((f.Mtime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).Local()
}

// ManifestSilo is the per-silo part of the manifest.
type ManifestSilo struct {
	Path  string                  `json:"path"`
	Files map[string]ManifestFile `json:"files"`
}

// Entry is a manifest file together with its absolute path.
type Entry struct {
	Path string
	ManifestFile
}

// RelPath returns the entry path relative to root, or the absolute path if
// it is not under root.
func (e Entry) RelPath(root string) string {
	if root == "" {
		return e.Path
	}
	rel, err := filepath.Rel(root, e.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return e.Path
	}
	return filepath.ToSlash(rel)
}

// Ext returns the lowercase extension of the entry path.
func (e Entry) Ext() string {
	return strings.ToLower(filepath.Ext(e.Path))
}

// Manifest is the read-only file manifest: slug → path → (mtime, size, hash).
type Manifest struct {
	Silos map[string]ManifestSilo `json:"silos"`
}

// LoadManifest reads the manifest JSON at path. A missing file yields an
// empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Silos: map[string]ManifestSilo{}}, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Silos == nil {
		m.Silos = map[string]ManifestSilo{}
	}
	return &m, nil
}

// Has reports whether the manifest has a section for slug.
func (m *Manifest) Has(slug string) bool {
	_, ok := m.Silos[slug]
	return ok
}

// Root returns the silo root recorded in the manifest.
func (m *Manifest) Root(slug string) string {
	return m.Silos[slug].Path
}

// Entries returns the files of slug sorted by path.
func (m *Manifest) Entries(slug string) []Entry {
	ms, ok := m.Silos[slug]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(ms.Files))
	for p, f := range ms.Files {
		out = append(out, Entry{Path: p, ManifestFile: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
