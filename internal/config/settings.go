package config

import (
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Settings are the values re-read from the environment at the start of
// every request.
type Settings struct {
	RelevanceMaxDistance float64
	DedupChunkHash       bool
	TracePath            string
	Editor               EditorScheme
}

// Settings overlays the current LLMLIBRARIAN_* environment onto c. Invalid
// values fall back to the configured ones.
func (c *Config) Settings() Settings {
	s := Settings{
		RelevanceMaxDistance: c.RelevanceMaxDistance,
		DedupChunkHash:       Truthy(c.DedupChunkHash),
		TracePath:            c.Trace,
		Editor:               c.Editor,
	}
	if s.RelevanceMaxDistance <= 0 {
		s.RelevanceMaxDistance = DefaultRelevanceMaxDistance
	}
	if s.Editor == "" {
		s.Editor = EditorFile
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return s
	}

	if k.Exists("relevance_max_distance") {
		v, err := strconv.ParseFloat(strings.TrimSpace(k.String("relevance_max_distance")), 64)
		if err == nil && v > 0 {
			s.RelevanceMaxDistance = v
		}
	}
	if k.Exists("dedup_chunk_hash") {
		s.DedupChunkHash = Truthy(k.String("dedup_chunk_hash"))
	}
	if k.Exists("trace") {
		s.TracePath = strings.TrimSpace(k.String("trace"))
	}
	if k.Exists("editor") {
		if e := EditorScheme(strings.ToLower(strings.TrimSpace(k.String("editor")))); validEditors[e] {
			s.Editor = e
		}
	}
	return s
}

// Truthy reports whether s is one of 1/true/yes/on, case-insensitively.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
