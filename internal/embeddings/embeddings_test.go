package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		out := ollamaEmbedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{0.6, 0.8, 0})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	e := NewOllamaEmbedder(DefaultOllamaModel, 0, server.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, e.Dimensions())
}

func TestOllamaEmbedder_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaEmbedder("missing", 0, server.URL).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestQueryFunc(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer server.Close()

	fn := QueryFunc(NewOllamaEmbedder("m", 2, server.URL))
	vec, err := fn(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	t.Run("empty vector", func(t *testing.T) {
		empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{}}})
		}))
		defer empty.Close()

		_, err := QueryFunc(NewOllamaEmbedder("m", 2, empty.URL))(context.Background(), "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama/m")
	})
}

func TestCompatEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		// Answer out of order.
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	e, err := New("openai", "", server.URL+"/v1", "")
	require.NoError(t, err)
	assert.Equal(t, "openai/nomic-embed-text", e.Name())
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, 2, e.Dimensions())
}

func TestNewCompatRequiresBaseURL(t *testing.T) {
	_, err := New("openai", "nomic-embed-text", "", "sk-test")
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("carrier-pigeon", "", "", "")
	assert.Error(t, err)

	e, err := New("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
}
