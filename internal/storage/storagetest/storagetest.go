// Package storagetest runs the DocumentStore contract against a backend.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens an empty store. dimension 0 means unsized.
type Factory func(t *testing.T, dimension int) storage.DocumentStore

// Run exercises every DocumentStore guarantee against stores from open.
func Run(t *testing.T, open Factory) {
	t.Run("AddAndGet", func(t *testing.T) { testAddAndGet(t, open) })
	t.Run("UniqueIDs", func(t *testing.T) { testUniqueIDs(t, open) })
	t.Run("RankingAndLimit", func(t *testing.T) { testRankingAndLimit(t, open) })
	t.Run("TiesKeepInsertionOrder", func(t *testing.T) { testTies(t, open) })
	t.Run("FilteredQuery", func(t *testing.T) { testFilteredQuery(t, open) })
	t.Run("EmptyCollection", func(t *testing.T) { testEmpty(t, open) })
	t.Run("DimensionChecks", func(t *testing.T) { testDimension(t, open) })
	t.Run("InvalidMetadata", func(t *testing.T) { testInvalidMetadata(t, open) })
	t.Run("MetadataTypes", func(t *testing.T) { testMetadataTypes(t, open) })
	t.Run("ZeroVectors", func(t *testing.T) { testZeroVectors(t, open) })
	t.Run("ConcurrentAdds", func(t *testing.T) { testConcurrentAdds(t, open) })
}

func newStore(t *testing.T, open Factory, dimension int) storage.DocumentStore {
	t.Helper()
	s := open(t, dimension)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func add(t *testing.T, s storage.DocumentStore, text string, vec []float32, meta models.Metadata) string {
	t.Helper()
	id, err := s.Add(context.Background(), text, vec, meta)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func ids(hits []models.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func testAddAndGet(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 0)
	a := add(t, s, "alpha", []float32{1, 0, 0}, models.Metadata{"symbolName": "a", "project": "p"})
	b := add(t, s, "beta", []float32{0, 1, 0}, models.Metadata{"symbolName": "b", "project": "p"})
	add(t, s, "gamma", []float32{0, 0, 1}, models.Metadata{"symbolName": "c", "project": "q"})

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.GetByPredicate(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Text)
	assert.Equal(t, "gamma", all[2].Text)

	docs, err := s.GetByPredicate(ctx, storage.Where("project", "p"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a, docs[0].ID)
	assert.Equal(t, b, docs[1].ID)
	assert.Equal(t, "p", docs[0].Metadata["project"])

	docs, err = s.GetByPredicate(ctx, storage.Where("project", "p").And("symbolName", "b"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "beta", docs[0].Text)

	docs, err = s.GetByPredicate(ctx, storage.Where("project", "missing"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testUniqueIDs(t *testing.T, open Factory) {
	s := newStore(t, open, 2)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := add(t, s, "same", []float32{1, 1}, models.Metadata{"n": i})
		assert.False(t, seen[id], "id %s reused", id)
		seen[id] = true
	}
}

func testRankingAndLimit(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	far := add(t, s, "far", []float32{-1, 0}, nil)
	near := add(t, s, "near", []float32{1, 0}, nil)
	mid := add(t, s, "mid", []float32{1, 1}, nil)

	hits, err := s.QuerySimilar(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{near, mid, far}, ids(hits))
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.InDelta(t, 1-1/1.4142135, hits[1].Distance, 1e-4)
	assert.InDelta(t, 2, hits[2].Distance, 1e-5)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}

	hits, err = s.QuerySimilar(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{near, mid}, ids(hits))

	hits, err = s.QuerySimilar(ctx, []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func testTies(t *testing.T, open Factory) {
	s := newStore(t, open, 2)
	first := add(t, s, "one", []float32{0, 1}, nil)
	second := add(t, s, "two", []float32{0, 2}, nil)
	third := add(t, s, "three", []float32{0, 3}, nil)

	hits, err := s.QuerySimilar(context.Background(), []float32{0, 1}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second, third}, ids(hits))
}

func testFilteredQuery(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	// Many close neighbours outside the filter must not hide the match.
	for i := 0; i < 10; i++ {
		add(t, s, "noise", []float32{1, 0}, models.Metadata{"project": "other"})
	}
	want := add(t, s, "wanted", []float32{0, 1}, models.Metadata{"project": "mine", "version": "1.0"})
	add(t, s, "old", []float32{0, 1}, models.Metadata{"project": "mine", "version": "0.9"})

	hits, err := s.QuerySimilar(ctx, []float32{1, 0}, 1, storage.Where("project", "mine").And("version", "1.0"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, want, hits[0].ID)
	assert.Equal(t, "wanted", hits[0].Text)
	assert.Equal(t, "1.0", hits[0].Metadata["version"])
}

func testEmpty(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 0)
	hits, err := s.QuerySimilar(ctx, []float32{1, 2, 3}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	docs, err := s.GetByPredicate(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDimension(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 0)
	_, err := s.Add(ctx, "x", nil, nil)
	assert.ErrorIs(t, err, storage.ErrEmptyEmbedding)

	add(t, s, "x", []float32{1, 2, 3}, nil)
	_, err = s.Add(ctx, "y", []float32{1, 2}, nil)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = s.QuerySimilar(ctx, []float32{1, 2}, 5, nil)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sized := newStore(t, open, 4)
	_, err = sized.Add(ctx, "z", []float32{1, 2, 3}, nil)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func testInvalidMetadata(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	_, err := s.Add(ctx, "x", []float32{1, 0}, models.Metadata{"tags": []string{"a"}})
	assert.ErrorIs(t, err, storage.ErrInvalidMetadata)

	_, err = s.GetByPredicate(ctx, storage.Where("tags", []string{"a"}))
	assert.ErrorIs(t, err, storage.ErrUnsupportedPredicate)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testMetadataTypes(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	add(t, s, "typed", []float32{1, 0}, models.Metadata{
		"startLine": 12,
		"name":      "f",
		"exported":  true,
		"line32":    int32(7),
	})
	add(t, s, "other", []float32{1, 0}, models.Metadata{
		"startLine": "12",
		"exported":  false,
	})

	docs, err := s.GetByPredicate(ctx, storage.Where("startLine", 12))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "typed", docs[0].Text)
	assert.Equal(t, int64(12), docs[0].Metadata["startLine"])
	assert.Equal(t, int64(7), docs[0].Metadata["line32"])
	assert.Equal(t, true, docs[0].Metadata["exported"])
	assert.Equal(t, "f", docs[0].Metadata["name"])

	docs, err = s.GetByPredicate(ctx, storage.Where("exported", false))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "other", docs[0].Text)
}

func testZeroVectors(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	zero := add(t, s, "zero", []float32{0, 0}, nil)
	unit := add(t, s, "unit", []float32{1, 0}, nil)

	hits, err := s.QuerySimilar(ctx, []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{unit, zero}, ids(hits))
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.InDelta(t, 1, hits[1].Distance, 1e-9)

	hits, err = s.QuerySimilar(ctx, []float32{0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{zero, unit}, ids(hits))
	for _, h := range hits {
		assert.InDelta(t, 1, h.Distance, 1e-9)
	}
}

func testConcurrentAdds(t *testing.T, open Factory) {
	ctx := context.Background()
	s := newStore(t, open, 2)
	const writers = 32

	var wg sync.WaitGroup
	idc := make(chan string, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Add(ctx, "doc", []float32{1, float32(i)}, models.Metadata{"i": i})
			assert.NoError(t, err)
			idc <- id
		}(i)
	}
	wg.Wait()
	close(idc)

	seen := map[string]bool{}
	for id := range idc {
		seen[id] = true
	}
	assert.Len(t, seen, writers)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, n)

	docs, err := s.GetByPredicate(ctx, storage.Where("i", 7))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc", docs[0].Text)
}
