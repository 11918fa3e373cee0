package mock

import (
	"context"

	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var _ vectordb.Store = (*Store)(nil)

// Store is a mock implementation of vectordb.Store.
type Store struct {
	QueryFn func(ctx context.Context, req vectordb.QueryRequest) ([]vectordb.Hit, error)
	GetFn   func(ctx context.Context, req vectordb.GetRequest) ([]vectordb.Hit, error)
	CountFn func() int
}

func (s *Store) Query(ctx context.Context, req vectordb.QueryRequest) ([]vectordb.Hit, error) {
	return s.QueryFn(ctx, req)
}

func (s *Store) Get(ctx context.Context, req vectordb.GetRequest) ([]vectordb.Hit, error) {
	return s.GetFn(ctx, req)
}

func (s *Store) Count() int {
	return s.CountFn()
}
