package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
)

type countingEmbedder struct {
	calls   int
	vectors map[string]entity.Embedding
	err     error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (entity.Embedding, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.vectors[text], nil
}

func seeded(t *testing.T) *index.Memory {
	idx := index.NewMemory()
	require.NoError(t, idx.Upsert(context.Background(), []entity.IndexEntry{
		{ID: "cats_0", Vector: entity.Embedding{1, 0}, Document: "the cat sat"},
		{ID: "dogs_0", Vector: entity.Embedding{0, 1}, Document: "dogs run fast"},
	}))
	return idx
}

func TestRetrieve(t *testing.T) {
	emb := &countingEmbedder{vectors: map[string]entity.Embedding{"cats?": {0.9, 0.1}}}
	r := New(emb, seeded(t), 0)

	res, err := r.Retrieve(context.Background(), "cats?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "cats_0", res[0].Entry.ID)
}

func TestRetrieve_InvalidArguments(t *testing.T) {
	r := New(&countingEmbedder{}, seeded(t), 0)

	_, err := r.Retrieve(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = r.Retrieve(context.Background(), "cats?", 0)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestRetrieve_PropagatesEmbeddingFailure(t *testing.T) {
	r := New(&countingEmbedder{err: entity.ErrEmbeddingUnavailable}, seeded(t), 0)

	_, err := r.Retrieve(context.Background(), "cats?", 3)
	assert.ErrorIs(t, err, entity.ErrEmbeddingUnavailable)
}

func TestRetrieve_PropagatesIndexFailure(t *testing.T) {
	emb := &countingEmbedder{vectors: map[string]entity.Embedding{"q": {1, 0, 0}}}
	r := New(emb, seeded(t), 0)

	_, err := r.Retrieve(context.Background(), "q", 3)
	assert.True(t, errors.Is(err, entity.ErrDimensionMismatch))
}

func TestRetrieve_CachesQueryEmbeddings(t *testing.T) {
	emb := &countingEmbedder{vectors: map[string]entity.Embedding{"dogs?": {0, 1}}}
	idx := seeded(t)
	r := New(emb, idx, time.Minute)

	_, err := r.Retrieve(context.Background(), "dogs?", 1)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(context.Background(), []entity.IndexEntry{
		{ID: "dogs_1", Vector: entity.Embedding{0, 2}, Document: "a dog barked"},
	}))

	res, err := r.Retrieve(context.Background(), "dogs?", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.Len(t, res, 2, "cached embedding must still see index updates")
}
