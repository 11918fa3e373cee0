package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "LLMLIBRARIAN_"

// envKey maps LLMLIBRARIAN_QUERY__RRF_K to query.rrf_k.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LLMLIBRARIAN_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOllama: true,
	ProviderOpenAI: true,
}

var validEditors = map[EditorScheme]bool{
	EditorFile:   true,
	EditorVSCode: true,
	EditorCursor: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of ollama, openai", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Provider == ProviderOpenAI && c.BaseURL == "" {
		return fmt.Errorf("provider openai requires base_url of a local OpenAI-compatible server")
	}

	if c.EmbeddingProvider != "" && !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q", c.EmbeddingProvider)
	}
	if p, url := c.Embedding(); p == ProviderOpenAI && url == "" {
		return fmt.Errorf("embedding_provider openai requires embedding_base_url of a local OpenAI-compatible server")
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if c.NResults <= 0 {
		return fmt.Errorf("n_results must be positive")
	}

	if c.RelevanceMaxDistance <= 0 {
		return fmt.Errorf("relevance_max_distance must be positive")
	}

	if c.Editor != "" && !validEditors[c.Editor] {
		return fmt.Errorf("invalid editor %q: must be one of file, vscode, cursor", c.Editor)
	}

	for name, a := range c.Archetypes {
		if strings.TrimSpace(a.Prompt) == "" {
			return fmt.Errorf("archetype %q has an empty prompt", name)
		}
	}

	return nil
}

// Embedding returns the query-time embedding backend and its base URL. Both
// fall back to the chat backend.
func (c *Config) Embedding() (ProviderType, string) {
	provider := c.EmbeddingProvider
	if provider == "" {
		provider = c.Provider
	}
	baseURL := c.EmbeddingBaseURL
	if baseURL == "" && provider == c.Provider {
		baseURL = c.BaseURL
	}
	return provider, baseURL
}

// Archetype returns the named archetype.
func (c *Config) Archetype(name string) (Archetype, bool) {
	a, ok := c.Archetypes[name]
	if ok && a.Name == "" {
		a.Name = name
	}
	return a, ok
}
