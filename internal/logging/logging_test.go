package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/llm"
	"github.com/ziadkadry99/llmlibrarian/internal/logging"
	"github.com/ziadkadry99/llmlibrarian/internal/mock"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

func TestLoggingStore_Query(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	inner := &mock.Store{
		QueryFn: func(ctx context.Context, req vectordb.QueryRequest) ([]vectordb.Hit, error) {
			return []vectordb.Hit{{ID: "a"}, {ID: "b"}}, nil
		},
	}

	store := logging.NewLoggingStore(inner, logger)
	hits, err := store.Query(context.Background(), vectordb.QueryRequest{
		Text:     "q",
		NResults: 5,
		Where:    vectordb.Eq(vectordb.KeySilo, "docs"),
	})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
	output := buf.String()
	assert.Contains(t, output, "vector query")
	assert.Contains(t, output, "hits=2")
	assert.Contains(t, output, "n_results=5")
}

func TestLoggingProvider_Complete(t *testing.T) {
	t.Parallel()

	t.Run("logs token counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Provider{
			CompleteFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return &llm.CompletionResponse{Content: "ok", InputTokens: 7, OutputTokens: 3}, nil
			},
		}

		p := logging.NewLoggingProvider(inner, logger)
		resp, err := p.Complete(context.Background(), llm.CompletionRequest{Model: "llama3.1:8b"})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Contains(t, buf.String(), "input_tokens=7")
		assert.Equal(t, "mock", p.Name())
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Provider{
			CompleteFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return nil, errors.New("connection refused")
			},
		}

		_, err := logging.NewLoggingProvider(inner, logger).Complete(context.Background(), llm.CompletionRequest{})

		require.Error(t, err)
		assert.Contains(t, buf.String(), `err="connection refused"`)
	})
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())
	logging.New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
