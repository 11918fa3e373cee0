package mock

import (
	"context"
	"sync"

	"github.com/ziadkadry99/llmlibrarian/internal/llm"
)

var _ llm.Provider = (*Provider)(nil)

// Provider is a mock implementation of llm.Provider that records calls.
type Provider struct {
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.CompleteFn == nil {
		return &llm.CompletionResponse{Content: "mock response", FinishReason: "stop"}, nil
	}
	return p.CompleteFn(ctx, req)
}

func (p *Provider) Name() string { return "mock" }

// Calls returns the requests received so far.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.calls...)
}
