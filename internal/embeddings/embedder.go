package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
// The query core only embeds query text; chunk vectors are produced at
// ingest time with the same model.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New builds the embedder named by provider. baseURL applies to ollama
// and to OpenAI-compatible servers.
func New(provider, model, baseURL, apiKey string) (Embedder, error) {
	switch provider {
	case "", "ollama":
		if model == "" {
			model = DefaultOllamaModel
		}
		return NewOllamaEmbedder(model, 0, baseURL), nil
	case "openai":
		if model == "" {
			model = DefaultOllamaModel
		}
		e, err := NewCompatEmbedder(baseURL, model, apiKey)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
