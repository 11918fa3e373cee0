package config

// ProviderType identifies an LLM or embedding backend.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	// ProviderOpenAI covers any OpenAI-compatible server (llama.cpp, LM
	// Studio, vLLM) reached through base_url.
	ProviderOpenAI ProviderType = "openai"
)

// EditorScheme selects how source links are rendered.
type EditorScheme string

const (
	EditorFile   EditorScheme = "file"
	EditorVSCode EditorScheme = "vscode"
	EditorCursor EditorScheme = "cursor"
)

// Config is the top-level llmli configuration, corresponding to llmli.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url" koanf:"base_url"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingBaseURL  string       `yaml:"embedding_base_url" koanf:"embedding_base_url"`
	DBPath            string       `yaml:"db_path" koanf:"db_path"`
	NResults          int          `yaml:"n_results" koanf:"n_results"`
	UseReranker       bool         `yaml:"use_reranker" koanf:"use_reranker"`

	// Per-request settings, overridable through LLMLIBRARIAN_* at request time.
	RelevanceMaxDistance float64      `yaml:"relevance_max_distance" koanf:"relevance_max_distance"`
	DedupChunkHash       string       `yaml:"dedup_chunk_hash" koanf:"dedup_chunk_hash"`
	Trace                string       `yaml:"trace" koanf:"trace"`
	Editor               EditorScheme `yaml:"editor" koanf:"editor"`

	CatalogIgnore []string             `yaml:"catalog_ignore" koanf:"catalog_ignore"`
	Archetypes    map[string]Archetype `yaml:"archetypes" koanf:"archetypes"`
	Query         QueryTuning          `yaml:"query" koanf:"query"`
	Server        ServerConfig         `yaml:"server" koanf:"server"`
}

// Archetype is a named prompt persona optionally restricted to silos.
type Archetype struct {
	Name   string   `yaml:"name" koanf:"name"`
	Prompt string   `yaml:"prompt" koanf:"prompt"`
	Silos  []string `yaml:"silos" koanf:"silos"`
}

// QueryTuning holds the empirically tuned retrieval and confidence
// thresholds. Every value is echoed into the trace record.
type QueryTuning struct {
	RerankerStage1K    int     `yaml:"reranker_stage1_k" koanf:"reranker_stage1_k" json:"reranker_stage1_k"`
	RRFK               int     `yaml:"rrf_k" koanf:"rrf_k" json:"rrf_k"`
	LexicalLimit       int     `yaml:"lexical_limit" koanf:"lexical_limit" json:"lexical_limit"`
	WeakScopeThreshold float64 `yaml:"weak_scope_threshold" koanf:"weak_scope_threshold" json:"weak_scope_threshold"`
	PerSiloCap         int     `yaml:"per_silo_cap" koanf:"per_silo_cap" json:"per_silo_cap"`
	FanOutMaxSilos     int     `yaml:"fanout_max_silos" koanf:"fanout_max_silos" json:"fanout_max_silos"`
	FanOutDivisor      int     `yaml:"fanout_divisor" koanf:"fanout_divisor" json:"fanout_divisor"`
	FanOutMinK         int     `yaml:"fanout_min_k" koanf:"fanout_min_k" json:"fanout_min_k"`
	DominationRatio    float64 `yaml:"domination_ratio" koanf:"domination_ratio" json:"domination_ratio"`
	SoftPromoteDelta   float64 `yaml:"soft_promote_delta" koanf:"soft_promote_delta" json:"soft_promote_delta"`
	SoftPromoteMax     int     `yaml:"soft_promote_max" koanf:"soft_promote_max" json:"soft_promote_max"`
	RecencyWeight      float64 `yaml:"recency_weight" koanf:"recency_weight" json:"recency_weight"`
	SnippetChars       int     `yaml:"snippet_chars" koanf:"snippet_chars" json:"snippet_chars"`
	LowConfidenceAvg   float64 `yaml:"low_confidence_avg" koanf:"low_confidence_avg" json:"low_confidence_avg"`
	ScopedOverlapTop   float64 `yaml:"scoped_overlap_top" koanf:"scoped_overlap_top" json:"scoped_overlap_top"`
	ScopedOverlapMin   float64 `yaml:"scoped_overlap_min" koanf:"scoped_overlap_min" json:"scoped_overlap_min"`
	MixedNoisySources  int     `yaml:"mixed_noisy_sources" koanf:"mixed_noisy_sources" json:"mixed_noisy_sources"`
	MixedNoisyTop      float64 `yaml:"mixed_noisy_top" koanf:"mixed_noisy_top" json:"mixed_noisy_top"`
	MixedNoisyAvg      float64 `yaml:"mixed_noisy_avg" koanf:"mixed_noisy_avg" json:"mixed_noisy_avg"`
	MixedNoisyOverlap  float64 `yaml:"mixed_noisy_overlap" koanf:"mixed_noisy_overlap" json:"mixed_noisy_overlap"`
	TaxMinConfidence   float64 `yaml:"tax_min_confidence" koanf:"tax_min_confidence" json:"tax_min_confidence"`
}

// ServerConfig holds settings for `llmli serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
