package qdrant

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/index/indextest"
)

func TestPointID_IsDeterministicUUID(t *testing.T) {
	a := PointID("article-1_0").GetUuid()
	b := PointID("article-1_0").GetUuid()
	c := PointID("article-1_1").GetUuid()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestFromPoint_RoundTripsPayloadAndVector(t *testing.T) {
	e := indextest.Entry("A_3", 1, 2, 3)
	p := toPoint(e)
	assert.Equal(t, []float32{1, 2, 3}, p.GetVectors().GetVector().GetData())

	t.Run("dense output", func(t *testing.T) {
		got := fromPoint(&pb.ScoredPoint{
			Payload: p.GetPayload(),
			Vectors: &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{Vector: &pb.VectorOutput{
				Vector: &pb.VectorOutput_Dense{Dense: &pb.DenseVector{Data: []float32{1, 2, 3}}},
			}}},
		})
		assert.Equal(t, e, got)
	})

	t.Run("legacy data field", func(t *testing.T) {
		got := fromPoint(&pb.ScoredPoint{
			Payload: p.GetPayload(),
			Vectors: &pb.VectorsOutput{VectorsOptions: &pb.VectorsOutput_Vector{Vector: &pb.VectorOutput{
				Data: []float32{1, 2, 3},
			}}},
		})
		assert.Equal(t, e.Vector, got.Vector)
	})

	t.Run("no vectors requested", func(t *testing.T) {
		got := fromPoint(&pb.ScoredPoint{Payload: p.GetPayload()})
		assert.Equal(t, e.ID, got.ID)
		assert.Empty(t, got.Vector)
	})
}

// Runs against a live server when TEST_QDRANT_HOST is set.
func TestStore(t *testing.T) {
	host := os.Getenv("TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("TEST_QDRANT_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("TEST_QDRANT_PORT")); err == nil {
		port = p
	}

	indextest.Run(t, func(t *testing.T) index.VectorIndex {
		s, err := Open(context.Background(), Config{Host: host, Port: port, Collection: "test_" + uuid.NewString()})
		require.NoError(t, err)
		return s
	}, indextest.Options{PersistedCollection: true})
}

func TestStore_ResetCollectionSurvivesReopen(t *testing.T) {
	host := os.Getenv("TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("TEST_QDRANT_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("TEST_QDRANT_PORT")); err == nil {
		port = p
	}
	ctx := context.Background()
	cfg := Config{Host: host, Port: port, Collection: "test_" + uuid.NewString()}

	reopen := func(t *testing.T) *Store {
		s, err := Open(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("after upsert", func(t *testing.T) {
		s := reopen(t)
		require.NoError(t, s.Upsert(ctx, []entity.IndexEntry{indextest.Entry("a", 1, 0)}))
		require.NoError(t, s.Reset(ctx))
		require.NoError(t, s.Close())

		s = reopen(t)
		assert.Zero(t, s.Dimension())
		res, err := s.Query(ctx, entity.Embedding{1, 0, 0}, 1)
		require.NoError(t, err)
		assert.Empty(t, res)

		require.NoError(t, s.Upsert(ctx, []entity.IndexEntry{indextest.Entry("b", 1, 0, 0)}))
		assert.Equal(t, 3, s.Dimension())
	})

	t.Run("before any upsert", func(t *testing.T) {
		cfg.Collection = "test_" + uuid.NewString()
		s := reopen(t)
		require.NoError(t, s.Reset(ctx))
		require.NoError(t, s.Close())

		s = reopen(t)
		res, err := s.Query(ctx, entity.Embedding{1, 0}, 1)
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestOpen_RequiresCollection(t *testing.T) {
	_, err := Open(context.Background(), Config{Host: "localhost", Port: 6334})
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)
}
