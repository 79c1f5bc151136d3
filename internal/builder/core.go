package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/answerer"
	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/embedder"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/integration/embedding"
	"github.com/futig/news-rag/internal/integration/llm"
	"github.com/futig/news-rag/internal/integration/webhook"
	"github.com/futig/news-rag/internal/observability"
	"github.com/futig/news-rag/internal/pkg/logger"
	"github.com/futig/news-rag/internal/retriever"
	"github.com/futig/news-rag/internal/usecase/ingest"
	"github.com/futig/news-rag/internal/usecase/query"
)

// Core is the pipeline shared by every entry point: index, model providers
// and the ingest and query use cases.
type Core struct {
	Config *config.Config
	Logger *zap.Logger

	Index    index.VectorIndex
	Embedder *embedder.Embedder
	Query    *query.Usecase
	Ingest   *ingest.Usecase

	db      *pgxpool.Pool
	tracing *observability.TracerProvider
}

// Load reads the configuration of environment and builds the core.
func Load(ctx context.Context, environment string) (*Core, error) {
	cfg, err := config.Load(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewCore(ctx, cfg)
}

func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  cfg.TracingCfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.TracingCfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	idx, db, err := openIndex(ctx, cfg, log)
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, err
	}

	provider, generator := connectors(cfg, log)

	emb := embedder.New(provider, embedder.Config{
		Retry:     &cfg.EmbeddingCfg.Retry,
		Dimension: cfg.EmbeddingCfg.Dimension,
		RateRPS:   cfg.EmbeddingCfg.RateRPS,
		RateBurst: cfg.EmbeddingCfg.RateBurst,
	})

	ret := retriever.New(emb, idx, cfg.RetrievalCfg.CacheTTL)
	ans := answerer.New(generator, &cfg.LLMCfg.Retry)

	ingestUC := ingest.NewUsecase(ingest.Config{
		ChunkSize:   cfg.ChunkSize,
		BatchSize:   cfg.IngestCfg.BatchSize,
		Concurrency: cfg.IngestCfg.Concurrency,
		Backend:     cfg.IndexCfg.Backend,
	}, emb, idx)
	if cfg.WebhookCfg.Url != "" {
		log.Info("ingest webhook enabled", zap.String("url", cfg.WebhookCfg.Url))
		ingestUC.WithNotifier(webhook.NewConnector(cfg.WebhookCfg, log))
	}

	c := &Core{
		Config:   cfg,
		Logger:   log,
		Index:    idx,
		Embedder: emb,
		Query:    query.NewUsecase(ret, ans, cfg.RetrievalCfg.TopK),
		Ingest:   ingestUC,
		db:      db,
		tracing: tracing,
	}

	log.Info("pipeline initialized",
		zap.String("environment", cfg.Environment),
		zap.String("index_backend", cfg.IndexCfg.Backend),
		zap.String("embedding_provider", provider.Name()),
		zap.Int("chunk_size", cfg.ChunkSize),
	)

	return c, nil
}

func connectors(cfg *config.Config, log *zap.Logger) (embedder.Provider, answerer.Generator) {
	if cfg.EnableMocks {
		log.Info("Using mock connectors for external services")
		return embedding.NewMockConnector(cfg.EmbeddingCfg.Dimension, log), llm.NewMockConnector(log)
	}

	var provider embedder.Provider
	switch cfg.EmbeddingCfg.Provider {
	case config.ProviderOpenAI:
		provider = embedding.NewOpenAIConnector(cfg.EmbeddingCfg, log)
	case config.ProviderMock:
		provider = embedding.NewMockConnector(cfg.EmbeddingCfg.Dimension, log)
	default:
		provider = embedding.NewJinaConnector(cfg.EmbeddingCfg, log)
	}

	var generator answerer.Generator
	switch cfg.LLMCfg.Provider {
	case config.ProviderOpenAI:
		generator = llm.NewOpenAIConnector(cfg.LLMCfg, log)
	case config.ProviderMock:
		generator = llm.NewMockConnector(log)
	default:
		generator = llm.NewGeminiConnector(cfg.LLMCfg, log)
	}

	return provider, generator
}

// Close releases the index, the database pool and flushes traces.
func (c *Core) Close(ctx context.Context) error {
	var errs []error

	c.Logger.Info("Closing vector index")
	if err := c.Index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index: %w", err))
	}

	if c.db != nil {
		c.Logger.Info("Closing database connections")
		c.db.Close()
	}

	if err := c.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}

	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
