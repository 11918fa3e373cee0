package silo

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// FileRef is one occurrence of a content hash.
type FileRef struct {
	Silo string `json:"silo"`
	Path string `json:"path"`
}

// FileRegistry maps content hash → occurrences across silos.
type FileRegistry struct {
	ByHash map[string][]FileRef `json:"by_hash"`
}

// LoadFileRegistry reads the file registry JSON at path. A missing file
// yields an empty registry.
func LoadFileRegistry(path string) (*FileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileRegistry{ByHash: map[string][]FileRef{}}, nil
		}
		return nil, fmt.Errorf("reading file registry %s: %w", path, err)
	}

	var fr FileRegistry
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("parsing file registry %s: %w", path, err)
	}
	if fr.ByHash == nil {
		fr.ByHash = map[string][]FileRef{}
	}
	return &fr, nil
}

// PathsForSilo returns the distinct paths recorded for slug, sorted.
func (fr *FileRegistry) PathsForSilo(slug string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, refs := range fr.ByHash {
		for _, ref := range refs {
			if ref.Silo == slug && !seen[ref.Path] {
				seen[ref.Path] = true
				out = append(out, ref.Path)
			}
		}
	}
	sort.Strings(out)
	return out
}
