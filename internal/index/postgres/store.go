// Package postgres is a VectorIndex shared through a Postgres database.
// Vectors live in REAL[] columns; similarity is computed in process.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/index/migration"
	"github.com/futig/news-rag/internal/index/postgres/migrations"
)

const FormatVersion = 1

type Store struct {
	pool       *pgxpool.Pool
	collection string

	mu     sync.RWMutex
	exists bool
	dim    int
}

var _ index.VectorIndex = (*Store)(nil)

// RunMigrations brings the schema at databaseURL up to date.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	return migration.Up(m, migrations.Latest)
}

// New binds a store to one collection. The pool is owned by the caller and
// the schema must already be migrated.
func New(ctx context.Context, pool *pgxpool.Pool, collection string) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", entity.ErrInvalidArgument)
	}

	s := &Store{pool: pool, collection: collection}

	var dim, version int
	err := pool.QueryRow(ctx,
		`SELECT dimension, format_version FROM rag_collections WHERE name = $1`, collection,
	).Scan(&dim, &version)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load collection %q: %w", collection, err)
	}

	if version > FormatVersion {
		return nil, fmt.Errorf("%w: collection %q has format %d, this build reads up to %d", entity.ErrUnsupportedFormat, collection, version, FormatVersion)
	}

	s.exists = true
	s.dim = dim
	return s, nil
}

func (s *Store) Upsert(ctx context.Context, entries []entity.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := index.ValidateUpsert(entries, s.dim)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	// Another process may have established a different dimension.
	var stored int
	err = tx.QueryRow(ctx, `
		INSERT INTO rag_collections (name, dimension, format_version) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET dimension = CASE
			WHEN rag_collections.dimension = 0 THEN EXCLUDED.dimension
			ELSE rag_collections.dimension END
		RETURNING dimension`,
		s.collection, dim, FormatVersion,
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	if stored != dim {
		return fmt.Errorf("%w: collection %q has dimension %d, batch has %d", entity.ErrDimensionMismatch, s.collection, stored, dim)
	}

	batch := &pgx.Batch{}
	for _, e := range index.Dedupe(entries) {
		batch.Queue(`
			INSERT INTO rag_entries (collection, id, embedding, document, title, article_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (collection, id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				document = EXCLUDED.document,
				title = EXCLUDED.title,
				article_id = EXCLUDED.article_id,
				updated_at = NOW()`,
			s.collection, e.ID, []float32(e.Vector), e.Document, e.Metadata.Title, e.Metadata.ArticleID,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	s.exists = true
	s.dim = dim
	return nil
}

func (s *Store) Query(ctx context.Context, vector entity.Embedding, k int) (entity.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := index.ValidateQuery(vector, k, s.dim); err != nil {
		return nil, err
	}
	if !s.exists {
		return nil, fmt.Errorf("%w: collection %q", entity.ErrNotFound, s.collection)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, embedding, document, title, article_id FROM rag_entries WHERE collection = $1`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var scored entity.RetrievalResult
	for rows.Next() {
		var (
			e   entity.IndexEntry
			vec []float32
		)
		if err := rows.Scan(&e.ID, &vec, &e.Document, &e.Metadata.Title, &e.Metadata.ArticleID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Vector = vec
		scored = append(scored, entity.ScoredEntry{Entry: e, Similarity: index.Cosine(vector, e.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return index.Rank(scored, k), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pool.Exec(ctx, `DELETE FROM rag_entries WHERE collection = $1 AND id = $2`, s.collection, id); err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, articleID string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep == nil {
		keep = []string{}
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM rag_entries WHERE collection = $1 AND article_id = $2 AND NOT (id = ANY($3))`,
		s.collection, articleID, keep,
	); err != nil {
		return fmt.Errorf("delete entries of article %q: %w", articleID, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_entries WHERE collection = $1`, s.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Reset drops the collection and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rag_collections WHERE name = $1`, s.collection); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO rag_collections (name, dimension, format_version) VALUES ($1, 0, $2)`, s.collection, FormatVersion,
	); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	s.exists = true
	s.dim = 0
	return nil
}

func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Close is a no-op; the pool belongs to the caller.
func (s *Store) Close() error { return nil }
