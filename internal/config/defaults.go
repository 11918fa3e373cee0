package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultModel is the local chat model used when none is configured.
	DefaultModel = "llama3.1:8b"

	// DefaultRelevanceMaxDistance is the relevance gate threshold.
	DefaultRelevanceMaxDistance = 0.9

	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "llmli.yml"
)

// DefaultCatalogIgnore are glob patterns excluded from catalog counts.
var DefaultCatalogIgnore = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.DS_Store",
	"**/__pycache__/**",
	"**/*.pyc",
}

// DefaultQueryTuning returns the tuned defaults.
func DefaultQueryTuning() QueryTuning {
	return QueryTuning{
		RerankerStage1K:    60,
		RRFK:               60,
		LexicalLimit:       200,
		WeakScopeThreshold: 0.70,
		PerSiloCap:         3,
		FanOutMaxSilos:     6,
		FanOutDivisor:      8,
		FanOutMinK:         2,
		DominationRatio:    0.7,
		SoftPromoteDelta:   0.08,
		SoftPromoteMax:     2,
		RecencyWeight:      0.15,
		SnippetChars:       1000,
		LowConfidenceAvg:   0.7,
		ScopedOverlapTop:   0.6,
		ScopedOverlapMin:   0.34,
		MixedNoisySources:  3,
		MixedNoisyTop:      0.35,
		MixedNoisyAvg:      0.45,
		MixedNoisyOverlap:  0.50,
		TaxMinConfidence:   0.55,
	}
}

// DefaultDBPath returns ~/.llmlibrarian/db, or a relative path when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".llmlibrarian", "db")
	}
	return filepath.Join(home, ".llmlibrarian", "db")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:             ProviderOllama,
		Model:                DefaultModel,
		EmbeddingProvider:    ProviderOllama,
		EmbeddingModel:       "nomic-embed-text",
		DBPath:               DefaultDBPath(),
		NResults:             12,
		RelevanceMaxDistance: DefaultRelevanceMaxDistance,
		Editor:               EditorFile,
		CatalogIgnore:        DefaultCatalogIgnore,
		Archetypes:           map[string]Archetype{},
		Query:                DefaultQueryTuning(),
		Server: ServerConfig{
			Addr:           "127.0.0.1:8765",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
	}
}
