package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNoBaseURL is returned when the OpenAI-compatible backend has no local
// server address. There is no cloud default.
var ErrNoBaseURL = errors.New("openai-compatible provider needs base_url pointing at a local server")

// Provider is a local chat backend. The engine sends at most one
// deterministic completion per question.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend in traces and logs.
	Name() string
}

// NewProvider builds the backend named by providerType: "ollama" (the
// default) or "openai" for an OpenAI-compatible server at baseURL.
func NewProvider(providerType, model, baseURL string) (Provider, error) {
	switch providerType {
	case "", "ollama":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaProvider(host, model), nil

	case "openai":
		p, err := NewCompatProvider(baseURL, model, os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
