package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/embeddings"
	"github.com/ziadkadry99/llmlibrarian/internal/ledger"
	"github.com/ziadkadry99/llmlibrarian/internal/llm"
	"github.com/ziadkadry99/llmlibrarian/internal/logging"
	"github.com/ziadkadry99/llmlibrarian/internal/query"
	"github.com/ziadkadry99/llmlibrarian/internal/retrieval"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `llmli init` to create a config file", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	return logging.New(os.Stderr, verbose)
}

// createEmbedderFromConfig creates the query-time embedder. It must match
// the model the index was built with.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider, baseURL := cfg.Embedding()
	return embeddings.New(string(provider), cfg.EmbeddingModel, baseURL, os.Getenv("OPENAI_API_KEY"))
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.BaseURL)
}

// library is an opened index and the engine over it.
type library struct {
	engine *query.Engine
	ledger *ledger.DB
}

func (l *library) Close() error {
	if l.ledger != nil {
		return l.ledger.Close()
	}
	return nil
}

// openLibrary opens every store under cfg.DBPath and builds the engine.
// The silo stores are reopened on every request; the tax ledger is optional.
func openLibrary(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*library, error) {
	paths := silo.DefaultPaths(cfg.DBPath)
	stores, err := silo.Open(paths)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", cfg.DBPath, err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	chromem, err := vectordb.OpenChromemStore(ctx, embedder, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("loading vector store from %s: %w", cfg.DBPath, err)
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	opts := []query.Option{
		query.WithLogger(logger),
		query.WithReranker(retrieval.OverlapReranker{}),
		query.WithStoresLoader(func() (*silo.Stores, error) { return silo.Open(paths) }),
	}
	lib := &library{}
	switch db, err := ledger.Open(ledger.DefaultPath(cfg.DBPath)); {
	case err == nil:
		lib.ledger = db
		opts = append(opts, query.WithLedger(db))
	case errors.Is(err, ledger.ErrUnavailable):
		logger.Debug("no tax ledger", "db_path", cfg.DBPath)
	default:
		return nil, err
	}

	lib.engine = query.New(cfg, stores,
		logging.NewLoggingStore(chromem, logger),
		logging.NewLoggingProvider(provider, logger),
		opts...)
	return lib, nil
}
