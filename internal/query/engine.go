// Package query sequences one question through routing, scope binding,
// deterministic handlers, retrieval and the model.
package query

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/llmlibrarian/internal/answer"
	"github.com/ziadkadry99/llmlibrarian/internal/catalog"
	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/guardrail"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/llm"
	"github.com/ziadkadry99/llmlibrarian/internal/logging"
	"github.com/ziadkadry99/llmlibrarian/internal/retrieval"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/trace"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Defaults applied to empty request fields.
const (
	DefaultNResults = 12
	DefaultModel    = "llama3.1:8b"
)

// Branches recorded in responses and traces.
const (
	BranchCapabilities = "capabilities"
	BranchCatalog      = "catalog"
	BranchGuardrail    = "guardrail"
	BranchRetrieval    = "retrieval"
	BranchGate         = "relevance_gate"
)

// Request is one ask.
type Request struct {
	Archetype string `json:"archetype,omitempty"`
	Query     string `json:"query"`
	NResults  int    `json:"n_results,omitempty"`
	Model     string `json:"model,omitempty"`
	Silo      string `json:"silo,omitempty"`
	Strict    bool   `json:"strict,omitempty"`
	// Quiet drops banners and footers; catalog answers become bare lines.
	Quiet           bool  `json:"quiet,omitempty"`
	Explain         bool  `json:"explain,omitempty"`
	Force           bool  `json:"force,omitempty"`
	ExplicitUnified bool  `json:"explicit_unified,omitempty"`
	NoColor         bool  `json:"no_color,omitempty"`
	UseReranker     *bool `json:"use_reranker,omitempty"`
}

// Response is the rendered answer plus what produced it.
type Response struct {
	RequestID string             `json:"request_id"`
	Answer    string             `json:"answer"`
	Body      string             `json:"body"`
	Warning   string             `json:"warning,omitempty"`
	Footer    string             `json:"footer,omitempty"`
	Sources   []answer.FooterRow `json:"sources,omitempty"`
	Intent    intent.Tag         `json:"intent"`
	Branch    string             `json:"branch"`
	Silo      string             `json:"silo,omitempty"`
	Guardrail string             `json:"guardrail,omitempty"`
	Reason    string             `json:"guardrail_reason,omitempty"`
	LLMCalled bool               `json:"llm_called"`
	Catalog   *catalog.Result    `json:"catalog,omitempty"`
	Explain   *Explanation       `json:"explain,omitempty"`
}

// Engine answers questions over one index.
type Engine struct {
	cfg      *config.Config
	stores   *silo.Stores
	store    vectordb.Store
	provider llm.Provider
	catalog  *catalog.Catalog
	pipeline *retrieval.Pipeline
	ledger   guardrail.Ledger
	sink     trace.Sink
	logger   *slog.Logger
	now      func() time.Time
	stat     silo.StatFunc
	reranker retrieval.Reranker
	load     StoresLoader
}

// StoresLoader opens the silo registry, manifest and file registry. The
// engine calls it once per request so a re-index between requests is seen.
type StoresLoader func() (*silo.Stores, error)

// Option configures an Engine.
type Option func(*Engine)

// WithLedger enables the tax resolver.
func WithLedger(l guardrail.Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithTraceSink overrides the per-request trace file.
func WithTraceSink(s trace.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for prompts, recency and traces.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStat replaces os.Stat in catalog freshness checks.
func WithStat(stat silo.StatFunc) Option {
	return func(e *Engine) { e.stat = stat }
}

// WithReranker replaces the in-process reranker.
func WithReranker(r retrieval.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// WithStoresLoader reopens the stores for every request instead of reading
// the ones passed to New.
func WithStoresLoader(fn StoresLoader) Option {
	return func(e *Engine) { e.load = fn }
}

// New creates an Engine.
func New(cfg *config.Config, stores *silo.Stores, store vectordb.Store, provider llm.Provider, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		stores:   stores,
		store:    store,
		provider: provider,
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	e.catalog = e.newCatalog(stores)
	popts := []retrieval.Option{retrieval.WithLogger(e.logger), retrieval.WithClock(e.now)}
	if e.reranker != nil {
		popts = append(popts, retrieval.WithReranker(e.reranker))
	}
	e.pipeline = retrieval.New(store, cfg.Query, popts...)
	return e
}

func (e *Engine) newCatalog(stores *silo.Stores) *catalog.Catalog {
	return catalog.New(stores,
		catalog.WithIgnore(e.cfg.CatalogIgnore),
		catalog.WithStat(e.stat),
		catalog.WithVectors(e.store),
	)
}

// snapshot returns an engine bound to freshly loaded stores. Without a
// loader it is e itself.
func (e *Engine) snapshot() (*Engine, error) {
	if e.load == nil {
		return e, nil
	}
	stores, err := e.load()
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	c := *e
	c.stores = stores
	c.catalog = e.newCatalog(stores)
	return &c, nil
}

// Silos returns the registry listing with freshness.
func (e *Engine) Silos() ([]SiloStatus, error) {
	e, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	var out []SiloStatus
	for _, s := range e.stores.Registry.List() {
		f := silo.CheckFreshness(e.stores.Registry, e.stores.Manifest, s.Slug, e.stat)
		out = append(out, SiloStatus{
			Slug:         s.Slug,
			Name:         s.Name(),
			Path:         s.Path,
			FilesIndexed: s.FilesIndexed,
			ChunksCount:  s.ChunksCount,
			Stale:        f.Stale,
			StaleReason:  f.Reason,
		})
	}
	return out, nil
}

// SiloStatus is one row of the silo listing.
type SiloStatus struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	FilesIndexed int    `json:"files_indexed"`
	ChunksCount  int    `json:"chunks_count"`
	Stale        bool   `json:"stale"`
	StaleReason  string `json:"stale_reason,omitempty"`
}

// compose joins the banner, body and footer of a response.
func (r *Response) compose(quiet bool) {
	if quiet {
		r.Answer = r.Body
		return
	}
	var parts []string
	if r.Warning != "" {
		parts = append(parts, r.Warning)
	}
	parts = append(parts, r.Body)
	if r.Footer != "" {
		parts = append(parts, r.Footer)
	}
	r.Answer = strings.Join(parts, "\n\n")
}
