// Package sqlite is a VectorIndex persisted in a single SQLite file.
// Vectors are stored as little-endian float32 blobs and searched
// exhaustively in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/index/migration"
	"github.com/futig/news-rag/internal/index/sqlite/migrations"
)

// FormatVersion is written to every collection this build creates.
const FormatVersion = 1

const fileName = "index.db"

type Store struct {
	db         *sql.DB
	path       string
	collection string

	mu     sync.RWMutex
	exists bool
	dim    int
}

var _ index.VectorIndex = (*Store)(nil)

// Open opens (creating if needed) the index file in dir and binds the store
// to one named collection. The collection itself is created on first upsert.
func Open(ctx context.Context, dir, collection string) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", entity.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	path := filepath.Join(dir, fileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, collection: collection}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	return migration.Up(m, migrations.Latest)
}

func (s *Store) load(ctx context.Context) error {
	var dim, version int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, format_version FROM collections WHERE name = ?`, s.collection,
	).Scan(&dim, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load collection %q: %w", s.collection, err)
	}
	if version > FormatVersion {
		return fmt.Errorf("%w: collection %q has format %d, this build reads up to %d", entity.ErrUnsupportedFormat, s.collection, version, FormatVersion)
	}

	s.exists = true
	s.dim = dim
	return nil
}

// Path returns the index file location.
func (s *Store) Path() string {
	return s.path
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, format_version) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET dimension = excluded.dimension`,
		s.collection, dim, FormatVersion,
	); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (collection, id, vector, document, title, article_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			document = excluded.document,
			title = excluded.title,
			article_id = excluded.article_id`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range index.Dedupe(entries) {
		if _, err := stmt.ExecContext(ctx, s.collection, e.ID, encodeVector(e.Vector), e.Document, e.Metadata.Title, e.Metadata.ArticleID); err != nil {
			return fmt.Errorf("upsert entry %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector, document, title, article_id FROM entries WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var scored entity.RetrievalResult
	for rows.Next() {
		var (
			e    entity.IndexEntry
			blob []byte
		)
		if err := rows.Scan(&e.ID, &blob, &e.Document, &e.Metadata.Title, &e.Metadata.ArticleID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Vector = decodeVector(blob)
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

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE collection = ? AND id = ?`, s.collection, id); err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, articleID string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM entries WHERE collection = ? AND article_id = ?`
	args := []any{s.collection, articleID}
	if len(keep) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete entries of article %q: %w", articleID, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE collection = ?`, s.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Reset drops the collection and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("drop entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, format_version) VALUES (?, 0, ?)`, s.collection, FormatVersion,
	); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
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

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v entity.Embedding) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) entity.Embedding {
	v := make(entity.Embedding, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
