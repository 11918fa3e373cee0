package silo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ErrUnknownSilo is returned when a slug is not present in the registry.
var ErrUnknownSilo = errors.New("unknown silo")

// hashSuffixRe matches the short content hash appended to some slugs,
// e.g. "stuff-deadbeef".
var hashSuffixRe = regexp.MustCompile(`-[0-9a-f]{6,12}$`)

// Silo is one registry entry: a named, rooted collection of indexed files.
type Silo struct {
	Slug           string         `json:"-"`
	DisplayName    string         `json:"display_name"`
	Path           string         `json:"path"`
	FilesIndexed   int            `json:"files_indexed"`
	ChunksCount    int            `json:"chunks_count"`
	Updated        string         `json:"updated"`
	LanguageStats  map[string]int `json:"language_stats,omitempty"`
	PromptOverride string         `json:"prompt_override,omitempty"`
}

// SlugBase returns the slug without its short hash suffix.
func (s Silo) SlugBase() string {
	return SlugBase(s.Slug)
}

// Name returns the display name, falling back to the slug.
func (s Silo) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Slug
}

// SlugBase strips a trailing "-<hex>" hash from slug.
func SlugBase(slug string) string {
	return hashSuffixRe.ReplaceAllString(slug, "")
}

// Registry is a read-only view of the silo registry file, which maps
// slug → silo attributes.
type Registry struct {
	silos map[string]Silo
}

// NewRegistry builds a registry from the given silos. Used by tests and by
// callers that already hold registry data.
func NewRegistry(silos ...Silo) *Registry {
	r := &Registry{silos: make(map[string]Silo, len(silos))}
	for _, s := range silos {
		r.silos[s.Slug] = s
	}
	return r
}

// LoadRegistry reads the registry JSON at path. A missing file yields an
// empty registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(), nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	var raw map[string]Silo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	r := &Registry{silos: make(map[string]Silo, len(raw))}
	for slug, s := range raw {
		s.Slug = slug
		r.silos[slug] = s
	}
	return r, nil
}

// Get returns the silo for slug.
func (r *Registry) Get(slug string) (Silo, bool) {
	s, ok := r.silos[slug]
	return s, ok
}

// Resolve finds a silo by slug, slug base or display name
// (case-insensitive). It returns ErrUnknownSilo when nothing matches.
func (r *Registry) Resolve(name string) (Silo, error) {
	if s, ok := r.silos[name]; ok {
		return s, nil
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, s := range r.List() {
		if strings.ToLower(s.Slug) == lower || strings.ToLower(s.SlugBase()) == lower || strings.ToLower(s.DisplayName) == lower {
			return s, nil
		}
	}
	return Silo{}, fmt.Errorf("%w: %s", ErrUnknownSilo, name)
}

// List returns all silos sorted by slug.
func (r *Registry) List() []Silo {
	out := make([]Silo, 0, len(r.silos))
	for _, s := range r.silos {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Len returns the number of registered silos.
func (r *Registry) Len() int {
	return len(r.silos)
}
