package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ziadkadry99/llmlibrarian/internal/llm"
)

// Ensure LoggingProvider implements llm.Provider.
var _ llm.Provider = (*LoggingProvider)(nil)

// LoggingProvider wraps an llm.Provider with logging.
type LoggingProvider struct {
	next   llm.Provider
	logger *slog.Logger
}

// NewLoggingProvider creates a new LoggingProvider.
func NewLoggingProvider(next llm.Provider, logger *slog.Logger) *LoggingProvider {
	return &LoggingProvider{next: next, logger: logger}
}

// Complete delegates to the wrapped provider and logs the call.
func (p *LoggingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (resp *llm.CompletionResponse, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"provider", p.next.Name(),
			"model", req.Model,
			"messages", len(req.Messages),
			"duration", time.Since(begin),
		}
		if resp != nil {
			attrs = append(attrs, "input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens)
		}
		if err != nil {
			p.logger.Error("llm completion", append(attrs, "err", err)...)
			return
		}
		p.logger.Info("llm completion", attrs...)
	}(time.Now())
	return p.next.Complete(ctx, req)
}

// Name delegates to the wrapped provider.
func (p *LoggingProvider) Name() string {
	return p.next.Name()
}
