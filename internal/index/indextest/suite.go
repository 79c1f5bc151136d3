// Package indextest holds the behavioural suite every VectorIndex backend
// must pass.
package indextest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
)

type Options struct {
	// Querying a collection that was never written fails with ErrNotFound
	// instead of returning an empty result.
	PersistedCollection bool
}

// Factory returns a fresh, empty index. The suite closes it.
type Factory func(t *testing.T) index.VectorIndex

func Entry(id string, vector ...float32) entity.IndexEntry {
	return entity.IndexEntry{
		ID:       id,
		Vector:   vector,
		Document: "doc " + id,
		Metadata: entity.EntryMetadata{Title: "title " + id, ArticleID: "article-" + id},
	}
}

func Run(t *testing.T, newIndex Factory, opts Options) {
	ctx := context.Background()

	open := func(t *testing.T) index.VectorIndex {
		idx := newIndex(t)
		t.Cleanup(func() { _ = idx.Close() })
		return idx
	}

	ids := func(r entity.RetrievalResult) []string {
		out := make([]string, len(r))
		for i, se := range r {
			out[i] = se.Entry.ID
		}
		return out
	}

	t.Run("fresh index", func(t *testing.T) {
		idx := open(t)
		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, idx.Dimension())

		res, err := idx.Query(ctx, entity.Embedding{1, 0}, 3)
		if opts.PersistedCollection {
			assert.ErrorIs(t, err, entity.ErrNotFound)
		} else {
			require.NoError(t, err)
			assert.Empty(t, res)
		}
	})

	t.Run("self similarity", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{
			Entry("a", 1, 0, 0),
			Entry("b", 0, 1, 0),
			Entry("c", 0.7, 0.7, 0.1),
		}))

		res, err := idx.Query(ctx, entity.Embedding{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "b", res[0].Entry.ID)
		assert.InDelta(t, 1.0, res[0].Similarity, 1e-6)
	})

	t.Run("round trips document and metadata", func(t *testing.T) {
		idx := open(t)
		want := Entry("x_0", 0.25, 0.5)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{want}))

		res, err := idx.Query(ctx, entity.Embedding{0.25, 0.5}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, want.ID, res[0].Entry.ID)
		assert.Equal(t, want.Document, res[0].Entry.Document)
		assert.Equal(t, want.Metadata, res[0].Entry.Metadata)
		assert.InDeltaSlice(t, []float32(want.Vector), []float32(res[0].Entry.Vector), 1e-6)
	})

	t.Run("ranking order and ties", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{
			Entry("far", -1, 0),
			Entry("z-same", 1, 1),
			Entry("a-same", 2, 2),
			Entry("near", 1, 0.9),
			Entry("mid", 0, 1),
		}))

		res, err := idx.Query(ctx, entity.Embedding{1, 1}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-same", "z-same", "near", "mid", "far"}, ids(res))
		for i := 1; i < len(res); i++ {
			assert.GreaterOrEqual(t, res[i-1].Similarity, res[i].Similarity)
		}
	})

	t.Run("k bounds", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0), Entry("b", 0, 1)}))

		res, err := idx.Query(ctx, entity.Embedding{1, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, res, 2)

		for _, k := range []int{0, -3} {
			_, err = idx.Query(ctx, entity.Embedding{1, 0}, k)
			assert.ErrorIs(t, err, entity.ErrInvalidArgument)
		}
	})

	t.Run("replace on upsert", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0)}))

		updated := Entry("a", 0, 1)
		updated.Document = "rewritten"
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{updated}))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		res, err := idx.Query(ctx, entity.Embedding{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "rewritten", res[0].Entry.Document)
		assert.InDelta(t, 1.0, res[0].Similarity, 1e-6)
	})

	t.Run("duplicate ids in one call keep the last", func(t *testing.T) {
		idx := open(t)
		first := Entry("dup", 1, 0)
		last := Entry("dup", 0, 1)
		last.Document = "last"
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{first, last}))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		res, err := idx.Query(ctx, entity.Embedding{0, 1}, 1)
		require.NoError(t, err)
		assert.Equal(t, "last", res[0].Entry.Document)
	})

	t.Run("dimension enforcement", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0, 0)}))
		assert.Equal(t, 3, idx.Dimension())

		err := idx.Upsert(ctx, []entity.IndexEntry{Entry("b", 0, 1, 0), Entry("c", 1, 1)})
		assert.ErrorIs(t, err, entity.ErrDimensionMismatch)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "rejected batch must leave the index unchanged")

		_, err = idx.Query(ctx, entity.Embedding{1, 0}, 1)
		assert.ErrorIs(t, err, entity.ErrDimensionMismatch)
	})

	t.Run("mismatched first batch is rejected whole", func(t *testing.T) {
		idx := open(t)
		err := idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0), Entry("b", 1, 0, 0)})
		assert.ErrorIs(t, err, entity.ErrDimensionMismatch)
		assert.Zero(t, idx.Dimension())
	})

	t.Run("empty vector", func(t *testing.T) {
		idx := open(t)
		err := idx.Upsert(ctx, []entity.IndexEntry{{ID: "empty"}})
		assert.ErrorIs(t, err, entity.ErrInvalidArgument)
	})

	t.Run("zero entries is a no-op", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, nil))
		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, idx.Dimension())
	})

	t.Run("delete", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0), Entry("b", 0, 1)}))

		require.NoError(t, idx.Delete(ctx, "a"))
		require.NoError(t, idx.Delete(ctx, "a"))
		require.NoError(t, idx.Delete(ctx, "never-existed"))

		res, err := idx.Query(ctx, entity.Embedding{1, 0}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(res))

		require.NoError(t, idx.Delete(ctx, "b"))
		assert.Equal(t, 2, idx.Dimension(), "dimension survives deleting every entry")
	})

	t.Run("delete article keeps listed chunks", func(t *testing.T) {
		idx := open(t)
		chunk := func(id, article string, vector ...float32) entity.IndexEntry {
			e := Entry(id, vector...)
			e.Metadata.ArticleID = article
			return e
		}
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{
			chunk("A_0", "A", 1, 0),
			chunk("A_1", "A", 0.9, 0.1),
			chunk("A_2", "A", 0.8, 0.2),
			chunk("B_0", "B", 0, 1),
		}))

		require.NoError(t, idx.DeleteArticle(ctx, "A", []string{"A_0"}))
		res, err := idx.Query(ctx, entity.Embedding{1, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"A_0", "B_0"}, ids(res))

		require.NoError(t, idx.DeleteArticle(ctx, "A", nil))
		require.NoError(t, idx.DeleteArticle(ctx, "never-existed", nil))
		res, err = idx.Query(ctx, entity.Embedding{1, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"B_0"}, ids(res))
	})

	t.Run("reset", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("a", 1, 0)}))
		require.NoError(t, idx.Reset(ctx))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, idx.Dimension())

		res, err := idx.Query(ctx, entity.Embedding{1, 0, 0}, 1)
		require.NoError(t, err)
		assert.Empty(t, res)

		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("b", 1, 0, 0)}))
		assert.Equal(t, 3, idx.Dimension())
	})

	t.Run("zero norm", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("zero", 0, 0), Entry("one", 1, 0)}))

		res, err := idx.Query(ctx, entity.Embedding{0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, res, 2)
		for _, se := range res {
			assert.Zero(t, se.Similarity)
		}
		assert.Equal(t, []string{"one", "zero"}, ids(res))
	})

	t.Run("concurrent readers and writers", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Upsert(ctx, []entity.IndexEntry{Entry("seed", 1, 1)}))

		var wg sync.WaitGroup
		for w := range 4 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				batch := []entity.IndexEntry{
					Entry(fmt.Sprintf("w%d_0", w), float32(w), 1),
					Entry(fmt.Sprintf("w%d_1", w), 1, float32(w)),
				}
				assert.NoError(t, idx.Upsert(ctx, batch))
			}()
			go func() {
				defer wg.Done()
				res, err := idx.Query(ctx, entity.Embedding{1, 1}, 100)
				assert.NoError(t, err)
				assert.Equal(t, 1, len(res)%2, "a query must never observe half of a batch")
			}()
		}
		wg.Wait()

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 9, n)
	})
}
