package embeddings

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// QueryFunc adapts e to the hook chromem calls when a collection is queried
// by text. The index was built with the same model, so an empty vector is an
// error rather than a silent miss.
func QueryFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, query string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embedding query with %s: %w", e.Name(), err)
		}
		if len(vecs) == 0 || len(vecs[0]) == 0 {
			return nil, fmt.Errorf("embedding query with %s: empty vector", e.Name())
		}
		return vecs[0], nil
	}
}
