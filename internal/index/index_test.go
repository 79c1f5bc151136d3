package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/futig/news-rag/internal/entity"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine(entity.Embedding{1, 2}, entity.Embedding{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine(entity.Embedding{1, 0}, entity.Embedding{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine(entity.Embedding{1, 0}, entity.Embedding{-3, 0}), 1e-9)
	assert.Zero(t, Cosine(entity.Embedding{0, 0}, entity.Embedding{1, 1}))
}

func TestRank(t *testing.T) {
	scored := entity.RetrievalResult{
		{Entry: entity.IndexEntry{ID: "b"}, Similarity: 0.5},
		{Entry: entity.IndexEntry{ID: "c"}, Similarity: 0.9},
		{Entry: entity.IndexEntry{ID: "a"}, Similarity: 0.5},
	}

	ranked := Rank(scored, 2)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].Entry.ID)
	assert.Equal(t, "a", ranked[1].Entry.ID)
}

func TestDedupe(t *testing.T) {
	in := []entity.IndexEntry{{ID: "a", Document: "1"}, {ID: "b"}, {ID: "a", Document: "2"}}
	out := Dedupe(in)
	assert.Equal(t, []entity.IndexEntry{{ID: "a", Document: "2"}, {ID: "b"}}, out)
}
