package embeddings

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoBaseURL is returned when an OpenAI-compatible backend is configured
// without a local server address.
var ErrNoBaseURL = errors.New("openai-compatible provider needs base_url pointing at a local server")

// CompatEmbedder embeds query text through the /embeddings endpoint of a
// local OpenAI-compatible server (llama.cpp, LM Studio, vLLM).
type CompatEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewCompatEmbedder creates an embedder for the server at baseURL. Most
// local servers ignore apiKey.
func NewCompatEmbedder(baseURL, model, apiKey string) (*CompatEmbedder, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatEmbedder{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (e *CompatEmbedder) Name() string {
	return "openai/" + e.model
}

// Dimensions is learned from the first response.
func (e *CompatEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *CompatEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request to %s: %w", e.model, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("server returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	// Servers may answer out of order; Index ties each vector to its input.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("server returned embedding with bad index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	if e.dimensions == 0 && len(out[0]) > 0 {
		e.dimensions = len(out[0])
	}
	return out, nil
}
