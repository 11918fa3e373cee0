package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

var _ vectordb.Store = (*Corpus)(nil)

// Corpus is an in-memory vectordb.Store over fixed chunks. Query distances
// come from DistanceFn when set, otherwise from each chunk's preset
// Distance. Filters are honored.
type Corpus struct {
	Chunks     []vectordb.Hit
	DistanceFn func(query string, h vectordb.Hit) float64

	mu      sync.Mutex
	queries []vectordb.QueryRequest
	gets    []vectordb.GetRequest
}

func (c *Corpus) Query(_ context.Context, req vectordb.QueryRequest) ([]vectordb.Hit, error) {
	c.mu.Lock()
	c.queries = append(c.queries, req)
	c.mu.Unlock()

	var out []vectordb.Hit
	for _, h := range c.match(req.Where, req.WhereDocument) {
		if c.DistanceFn != nil {
			h.Distance = c.DistanceFn(req.Text, h)
		}
		h.HasDistance = true
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if req.NResults > 0 && len(out) > req.NResults {
		out = out[:req.NResults]
	}
	return out, nil
}

func (c *Corpus) Get(_ context.Context, req vectordb.GetRequest) ([]vectordb.Hit, error) {
	c.mu.Lock()
	c.gets = append(c.gets, req)
	c.mu.Unlock()

	out := c.match(req.Where, req.WhereDocument)
	for i := range out {
		out[i].Distance = 0
		out[i].HasDistance = false
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (c *Corpus) Count() int {
	return len(c.Chunks)
}

// Queries returns the query requests received so far.
func (c *Corpus) Queries() []vectordb.QueryRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]vectordb.QueryRequest(nil), c.queries...)
}

// Gets returns the get requests received so far.
func (c *Corpus) Gets() []vectordb.GetRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]vectordb.GetRequest(nil), c.gets...)
}

func (c *Corpus) match(where vectordb.Filter, doc vectordb.DocFilter) []vectordb.Hit {
	var out []vectordb.Hit
	for _, h := range c.Chunks {
		if !where.Matches(h.Metadata.Map()) || !doc.Matches(h.Document) {
			continue
		}
		out = append(out, h)
	}
	return out
}
