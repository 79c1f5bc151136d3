package builder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/index/postgres"
	"github.com/futig/news-rag/internal/index/qdrant"
	"github.com/futig/news-rag/internal/index/sqlite"
)

// openIndex opens the configured vector index backend. The returned pool is
// non-nil only for the postgres backend and must be closed after the index.
func openIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (index.VectorIndex, *pgxpool.Pool, error) {
	collection := cfg.IndexCfg.Collection

	switch cfg.IndexCfg.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory vector index")
		return index.NewMemory(), nil, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.IndexCfg.SQLiteDir, collection)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite index: %w", err)
		}
		logger.Info("using sqlite vector index", zap.String("path", store.Path()), zap.String("collection", collection))
		return store, nil, nil

	case config.BackendPostgres:
		logger.Info("running index database migrations")
		if err := postgres.RunMigrations(cfg.DatabaseCfg.URL); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}

		pool, err := setupDatabase(ctx, cfg.DatabaseCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("setup database: %w", err)
		}

		store, err := postgres.New(ctx, pool, collection)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("open postgres index: %w", err)
		}
		logger.Info("using postgres vector index", zap.String("collection", collection))
		return store, pool, nil

	case config.BackendQdrant:
		store, err := qdrant.Open(ctx, qdrant.Config{
			Host:       cfg.QdrantCfg.Host,
			Port:       cfg.QdrantCfg.Port,
			APIKey:     cfg.QdrantCfg.APIKey,
			UseTLS:     cfg.QdrantCfg.UseTLS,
			Collection: collection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open qdrant index: %w", err)
		}
		logger.Info("using qdrant vector index",
			zap.String("host", cfg.QdrantCfg.Host),
			zap.Int("port", cfg.QdrantCfg.Port),
			zap.String("collection", collection),
		)
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.IndexCfg.Backend)
	}
}
