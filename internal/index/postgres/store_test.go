package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/index/indextest"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, RunMigrations(url))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func dropCollection(t *testing.T, pool *pgxpool.Pool, name string) {
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM rag_collections WHERE name = $1`, name)
	})
}

func TestStore(t *testing.T) {
	pool := testPool(t)

	indextest.Run(t, func(t *testing.T) index.VectorIndex {
		name := "test_" + uuid.NewString()
		dropCollection(t, pool, name)
		s, err := New(context.Background(), pool, name)
		require.NoError(t, err)
		return s
	}, indextest.Options{PersistedCollection: true})
}

func TestStore_SharedBetweenInstances(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	name := "test_" + uuid.NewString()
	dropCollection(t, pool, name)

	writer, err := New(ctx, pool, name)
	require.NoError(t, err)
	require.NoError(t, writer.Upsert(ctx, []entity.IndexEntry{indextest.Entry("a", 1, 0)}))

	reader, err := New(ctx, pool, name)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.Dimension())

	res, err := reader.Query(ctx, entity.Embedding{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].Entry.ID)
}

func TestStore_RejectsNewerFormat(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	name := "test_" + uuid.NewString()
	dropCollection(t, pool, name)

	_, err := pool.Exec(ctx, `INSERT INTO rag_collections (name, dimension, format_version) VALUES ($1, 2, $2)`, name, FormatVersion+1)
	require.NoError(t, err)

	_, err = New(ctx, pool, name)
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}
