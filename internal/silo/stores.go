package silo

import (
	"fmt"
	"path/filepath"
)

// Default file names inside the database directory.
const (
	RegistryFileName     = "llmli_registry.json"
	ManifestFileName     = "llmli_file_manifest.json"
	FileRegistryFileName = "llmli_file_registry.json"
)

// Paths locates the three JSON stores.
type Paths struct {
	Registry     string
	Manifest     string
	FileRegistry string
}

// DefaultPaths returns the store paths inside dbDir.
func DefaultPaths(dbDir string) Paths {
	return Paths{
		Registry:     filepath.Join(dbDir, RegistryFileName),
		Manifest:     filepath.Join(dbDir, ManifestFileName),
		FileRegistry: filepath.Join(dbDir, FileRegistryFileName),
	}
}

// Stores bundles the read-only views used by one request.
type Stores struct {
	Registry     *Registry
	Manifest     *Manifest
	FileRegistry *FileRegistry
}

// Open loads all three stores. Missing files load as empty stores.
func Open(p Paths) (*Stores, error) {
	reg, err := LoadRegistry(p.Registry)
	if err != nil {
		return nil, fmt.Errorf("opening silo stores: %w", err)
	}
	man, err := LoadManifest(p.Manifest)
	if err != nil {
		return nil, fmt.Errorf("opening silo stores: %w", err)
	}
	fr, err := LoadFileRegistry(p.FileRegistry)
	if err != nil {
		return nil, fmt.Errorf("opening silo stores: %w", err)
	}
	return &Stores{Registry: reg, Manifest: man, FileRegistry: fr}, nil
}
