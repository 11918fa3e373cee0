package vectordb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Similar texts produce similar vectors because shared characters
// contribute to the same positions.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func seededStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(newMockEmbedder(64))
	require.NoError(t, err)

	docs := []Document{
		{ID: "a1", Content: "Aster Grill operating margin was 12 percent", Metadata: Metadata{Source: "/s/a.txt", Silo: "alpha", DocType: "other"}},
		{ID: "a2", Content: "Menu pricing notes for the grill", Metadata: Metadata{Source: "/s/b.txt", Silo: "alpha", DocType: "other"}},
		{ID: "b1", Content: "Form 1040 line 9 total income 7,522", Metadata: Metadata{Source: "/t/2024/return.pdf", Silo: "tax", DocType: "tax_return", Page: 1}},
		{ID: "c1", Content: "Photos from the beach trip", Metadata: Metadata{Source: "/p/beach.jpg", Silo: "photos", DocType: "image"}},
	}
	require.NoError(t, store.AddDocuments(context.Background(), docs))
	return store
}

func TestChromemStore_Query(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	assert.Equal(t, 4, store.Count())

	hits, err := store.Query(ctx, QueryRequest{Text: "grill margin", NResults: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for i, h := range hits {
		assert.True(t, h.HasDistance)
		if i > 0 {
			assert.LessOrEqual(t, hits[i-1].Distance, h.Distance)
		}
	}
}

func TestChromemStore_QueryNResultsAboveCount(t *testing.T) {
	hits, err := seededStore(t).Query(context.Background(), QueryRequest{Text: "anything", NResults: 100})
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestChromemStore_QueryInFilter(t *testing.T) {
	hits, err := seededStore(t).Query(context.Background(), QueryRequest{
		Text:     "notes",
		NResults: 10,
		Where:    In(KeySilo, "tax", "photos"),
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, []string{"tax", "photos"}, h.Metadata.Silo)
	}
}

func TestChromemStore_QueryAndFilter(t *testing.T) {
	hits, err := seededStore(t).Query(context.Background(), QueryRequest{
		Text:     "notes",
		NResults: 10,
		Where:    And(Eq(KeySilo, "alpha"), In(KeyDocType, "other", "code")),
	})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestChromemStore_GetContains(t *testing.T) {
	hits, err := seededStore(t).Get(context.Background(), GetRequest{
		WhereDocument: Contains("line 9", "beach"),
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b1", hits[0].ID)
	assert.Equal(t, "c1", hits[1].ID)
	assert.False(t, hits[0].HasDistance)
	assert.Equal(t, 1, hits[0].Metadata.Page)
}

func TestChromemStore_GetLimit(t *testing.T) {
	hits, err := seededStore(t).Get(context.Background(), GetRequest{Where: Eq(KeySilo, "alpha"), Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)
}

func TestChromemStore_Empty(t *testing.T) {
	store, err := NewChromemStore(newMockEmbedder(16))
	require.NoError(t, err)
	hits, err := store.Query(context.Background(), QueryRequest{Text: "x", NResults: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, seededStore(t).Persist(ctx, dir))

	loaded, err := OpenChromemStore(ctx, newMockEmbedder(64), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Count())

	hits, err := loaded.Get(ctx, GetRequest{Where: Eq(KeySilo, "tax")})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/t/2024/return.pdf", hits[0].Metadata.Source)
	assert.Equal(t, "tax_return", hits[0].Metadata.DocType)
}

func TestOpenChromemStoreMissingExport(t *testing.T) {
	store, err := OpenChromemStore(context.Background(), newMockEmbedder(8), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, store.Count())
}
