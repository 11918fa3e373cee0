package vectordb

import "context"

// QueryRequest is a nearest-neighbour query over chunk text.
type QueryRequest struct {
	Text          string
	NResults      int
	Where         Filter
	WhereDocument DocFilter
}

// GetRequest selects chunks by filter alone. Limit 0 returns all matches.
type GetRequest struct {
	Where         Filter
	WhereDocument DocFilter
	Limit         int
}

// Store is the read surface of the chunk index.
type Store interface {
	// Query returns up to NResults hits ordered by ascending distance.
	Query(ctx context.Context, req QueryRequest) ([]Hit, error)

	// Get returns matching hits ordered by ID, without distances.
	Get(ctx context.Context, req GetRequest) ([]Hit, error)

	// Count returns the total number of chunks in the store.
	Count() int
}

// Writer is implemented by stores that can be populated, for tests and
// fixtures.
type Writer interface {
	AddDocuments(ctx context.Context, docs []Document) error
}
