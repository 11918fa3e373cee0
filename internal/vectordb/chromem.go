package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/llmlibrarian/internal/embeddings"
)

const (
	collectionName = "llmli"

	// DBFileName is the exported chromem database inside the db directory.
	DBFileName = "chromem.gob.gz"
)

// probeText seeds the query embedding used for filter-only gets. Gets
// ignore similarity, so any fixed text works.
const probeText = "document"

// ChromemStore implements Store using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc

	probeMu sync.Mutex
	probe   []float32
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.QueryFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// OpenChromemStore loads the store exported under dir. A missing export
// yields an empty store.
func OpenChromemStore(ctx context.Context, embedder embeddings.Embedder, dir string) (*ChromemStore, error) {
	s, err := NewChromemStore(embedder)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, DBFileName)); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err := s.Load(ctx, dir); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

// Query runs one chromem query per equality branch of the filter and per
// contains phrase, then merges the branches by ID keeping the nearest.
func (s *ChromemStore) Query(ctx context.Context, req QueryRequest) ([]Hit, error) {
	if req.NResults <= 0 {
		req.NResults = 10
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	limit := req.NResults
	if limit > count {
		limit = count
	}

	embedding, err := s.embedFunc(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.fanOut(ctx, embedding, limit, req.Where, req.WhereDocument)
	if err != nil {
		return nil, err
	}
	sortByDistance(hits)
	if len(hits) > req.NResults {
		hits = hits[:req.NResults]
	}
	return hits, nil
}

// Get returns every chunk matching the filters, ordered by ID.
func (s *ChromemStore) Get(ctx context.Context, req GetRequest) ([]Hit, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	embedding, err := s.probeEmbedding(ctx)
	if err != nil {
		return nil, err
	}

	hits, err := s.fanOut(ctx, embedding, count, req.Where, req.WhereDocument)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Distance = 0
		hits[i].HasDistance = false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func (s *ChromemStore) fanOut(ctx context.Context, embedding []float32, limit int, where Filter, doc DocFilter) ([]Hit, error) {
	var docClauses []map[string]string
	if doc.IsZero() {
		docClauses = []map[string]string{nil}
	}
	for _, p := range doc.Contains {
		docClauses = append(docClauses, map[string]string{"$contains": p})
	}

	byID := make(map[string]Hit)
	for _, eq := range where.Equalities() {
		for _, wd := range docClauses {
			results, err := s.collection.QueryEmbedding(ctx, embedding, limit, eq, wd)
			if err != nil {
				return nil, fmt.Errorf("chromem query: %w", err)
			}
			for _, r := range results {
				h := Hit{
					ID:          r.ID,
					Document:    r.Content,
					Metadata:    mapToMetadata(r.Metadata),
					Distance:    1 - float64(r.Similarity),
					HasDistance: true,
				}
				if prev, ok := byID[h.ID]; !ok || h.Distance < prev.Distance {
					byID[h.ID] = h
				}
			}
		}
	}

	hits := make([]Hit, 0, len(byID))
	for _, h := range byID {
		hits = append(hits, h)
	}
	return hits, nil
}

func (s *ChromemStore) probeEmbedding(ctx context.Context) ([]float32, error) {
	s.probeMu.Lock()
	defer s.probeMu.Unlock()
	if s.probe != nil {
		return s.probe, nil
	}
	v, err := s.embedFunc(ctx, probeText)
	if err != nil {
		return nil, fmt.Errorf("embed probe: %w", err)
	}
	s.probe = v
	return v, nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, DBFileName), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, DBFileName), "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// sortByDistance orders hits by ascending distance, ties broken by ID.
func sortByDistance(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
}
