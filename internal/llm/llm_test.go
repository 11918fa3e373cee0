package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_SendsDeterministicOptions(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &raw))
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:    ollamaMessage{Role: "assistant", Content: "hello"},
			Model:      "llama3.1:8b",
			Done:       true,
			DoneReason: "stop",
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3.1:8b")
	resp, err := p.Complete(context.Background(), Deterministic(CompletionRequest{
		Messages: []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "q"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.Equal(t, "llama3.1:8b", raw["model"])
	assert.Equal(t, false, raw["stream"])
	assert.Equal(t, float64(0), raw["keep_alive"])
	opts := raw["options"].(map[string]any)
	assert.Equal(t, float64(0), opts["temperature"])
	assert.Equal(t, float64(42), opts["seed"])
	assert.Len(t, raw["messages"], 2)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "m").Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNewOllamaProviderAddsScheme(t *testing.T) {
	p := NewOllamaProvider("localhost:11434", "m")
	assert.Equal(t, "http://localhost:11434", p.baseURL)
}

func TestCompatProvider_Complete(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &raw))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","model":"local","choices":[{"index":0,"message":{"role":"assistant","content":"answer"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	}))
	defer server.Close()

	p, err := NewCompatProvider(server.URL, "local", "")
	require.NoError(t, err)
	resp, err := p.Complete(context.Background(), Deterministic(CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 3, resp.InputTokens)
	assert.Equal(t, float64(42), raw["seed"])
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("ollama", "llama3.1:8b", "http://127.0.0.1:1")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProvider("openai", "local", "http://127.0.0.1:2/v1")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider("anthropic", "x", "")
	assert.Error(t, err)

	t.Run("openai without base_url", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		_, err := NewProvider("openai", "gpt-4o", "")
		assert.ErrorIs(t, err, ErrNoBaseURL)
	})
}

func TestDeterministic(t *testing.T) {
	req := Deterministic(CompletionRequest{Model: "m"})
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	assert.Equal(t, 42, *req.Seed)
	assert.Zero(t, *req.KeepAlive)
}
