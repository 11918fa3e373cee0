package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Ensure LoggingStore implements vectordb.Store.
var _ vectordb.Store = (*LoggingStore)(nil)

// LoggingStore wraps a vectordb.Store with debug logging.
type LoggingStore struct {
	next   vectordb.Store
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next vectordb.Store, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// Query delegates to the wrapped store and logs the operation.
func (s *LoggingStore) Query(ctx context.Context, req vectordb.QueryRequest) (hits []vectordb.Hit, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("vector query",
			"n_results", req.NResults,
			"where", req.Where.String(),
			"contains", len(req.WhereDocument.Contains),
			"hits", len(hits),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Query(ctx, req)
}

// Get delegates to the wrapped store and logs the operation.
func (s *LoggingStore) Get(ctx context.Context, req vectordb.GetRequest) (hits []vectordb.Hit, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("vector get",
			"where", req.Where.String(),
			"contains", len(req.WhereDocument.Contains),
			"limit", req.Limit,
			"hits", len(hits),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Get(ctx, req)
}

// Count delegates to the wrapped store.
func (s *LoggingStore) Count() int {
	return s.next.Count()
}
