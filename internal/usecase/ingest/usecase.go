package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/futig/news-rag/internal/chunker"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/observability"
	"github.com/futig/news-rag/internal/pkg/logger"
	"github.com/futig/news-rag/internal/source"
)

type Config struct {
	ChunkSize   int
	BatchSize   int
	Concurrency int
	// Backend is reported by Stats.
	Backend string
}

// Usecase turns articles into indexed passages.
type Usecase struct {
	cfg      Config
	embedder BatchEmbedder
	index    index.VectorIndex
	notifier ReportNotifier
}

func NewUsecase(cfg Config, embedder BatchEmbedder, idx index.VectorIndex) *Usecase {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	cfg.BatchSize = max(cfg.BatchSize, 1)
	cfg.Concurrency = max(cfg.Concurrency, 1)

	return &Usecase{cfg: cfg, embedder: embedder, index: idx}
}

// WithNotifier reports every completed run to n.
func (uc *Usecase) WithNotifier(n ReportNotifier) *Usecase {
	uc.notifier = n
	return uc
}

// Ingest chunks, embeds and upserts articles. Failures of a single article
// or batch are recorded in the report and do not stop the run; the returned
// error is reserved for problems affecting the whole run.
func (uc *Usecase) Ingest(ctx context.Context, articles []entity.Article) (*entity.IngestReport, error) {
	return uc.run(ctx, articles, false)
}

// Rebuild resets the index and ingests articles into the empty collection.
func (uc *Usecase) Rebuild(ctx context.Context, articles []entity.Article) (*entity.IngestReport, error) {
	return uc.run(ctx, articles, true)
}

func (uc *Usecase) run(ctx context.Context, articles []entity.Article, rebuild bool) (*entity.IngestReport, error) {
	if uc.cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", entity.ErrInvalidArgument, uc.cfg.ChunkSize)
	}

	report := &entity.IngestReport{
		RunID:     uuid.New().String(),
		Articles:  len(articles),
		StartedAt: time.Now().UTC(),
	}

	ctx = logger.AddFields(ctx, zap.String("run_id", report.RunID))
	ctx, span := observability.StartIngestSpan(ctx, report.RunID, len(articles))
	defer span.End()

	if rebuild {
		if err := uc.index.Reset(ctx); err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("reset index: %w", err)
		}
		ctxzap.Info(ctx, "index reset for rebuild")
	}

	var (
		chunks []entity.Chunk
		owned  = make(map[string][]string)
		order  []string
	)
	for _, a := range articles {
		if strings.TrimSpace(a.ID) == "" {
			report.Failures = append(report.Failures, entity.ItemFailure{
				Stage: entity.StageChunk,
				Error: "article has no id",
			})
			continue
		}
		cs, err := chunker.Chunk(a, uc.cfg.ChunkSize)
		if err != nil {
			report.Failures = append(report.Failures, entity.ItemFailure{
				ArticleID: a.ID,
				Stage:     entity.StageChunk,
				Error:     err.Error(),
			})
			continue
		}
		if _, seen := owned[a.ID]; !seen {
			order = append(order, a.ID)
		}
		ids := owned[a.ID]
		for _, c := range cs {
			ids = append(ids, c.ChunkID)
		}
		owned[a.ID] = ids
		chunks = append(chunks, cs...)
	}
	report.Chunks = len(chunks)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Concurrency)

	for start := 0; start < len(chunks); start += uc.cfg.BatchSize {
		batch := chunks[start:min(start+uc.cfg.BatchSize, len(chunks))]
		g.Go(func() error {
			failures := uc.indexBatch(gctx, batch)

			mu.Lock()
			defer mu.Unlock()
			report.Failures = append(report.Failures, failures...)
			if failures == nil {
				report.Indexed += len(batch)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		report.FinishedAt = time.Now().UTC()
		observability.RecordError(span, err)
		return report, err
	}

	if !rebuild {
		report.Failures = append(report.Failures, uc.pruneArticles(ctx, order, owned, report.Failures)...)
	}

	report.FinishedAt = time.Now().UTC()

	ctxzap.Info(ctx, "ingestion finished",
		zap.Int("articles", report.Articles),
		zap.Int("chunks", report.Chunks),
		zap.Int("indexed", report.Indexed),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)

	if uc.notifier != nil {
		event := entity.IngestEventFinished
		if rebuild {
			event = entity.IngestEventRebuilt
		}
		uc.notifier.NotifyIngest(ctx, event, report)
	}

	return report, nil
}

// indexBatch embeds and upserts one batch, returning a failure per chunk when
// either step fails.
func (uc *Usecase) indexBatch(ctx context.Context, batch []entity.Chunk) []entity.ItemFailure {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		ctxzap.Warn(ctx, "failed to embed batch", zap.Int("chunks", len(batch)), zap.Error(err))
		return batchFailures(batch, entity.StageEmbed, err)
	}

	entries := make([]entity.IndexEntry, len(batch))
	for i, c := range batch {
		entries[i] = entity.NewIndexEntry(c, vectors[i])
	}

	if err := uc.index.Upsert(ctx, entries); err != nil {
		ctxzap.Warn(ctx, "failed to upsert batch", zap.Int("chunks", len(batch)), zap.Error(err))
		return batchFailures(batch, entity.StageUpsert, err)
	}

	return nil
}

// pruneArticles removes entries left over from earlier, longer versions of the
// re-ingested articles. Articles with a failed chunk keep their old entries.
func (uc *Usecase) pruneArticles(ctx context.Context, order []string, owned map[string][]string, failed []entity.ItemFailure) []entity.ItemFailure {
	skip := make(map[string]struct{}, len(failed))
	for _, f := range failed {
		skip[f.ArticleID] = struct{}{}
	}

	var failures []entity.ItemFailure
	for _, id := range order {
		if _, ok := skip[id]; ok {
			continue
		}
		if err := uc.index.DeleteArticle(ctx, id, owned[id]); err != nil {
			ctxzap.Warn(ctx, "failed to prune stale chunks", zap.String("article_id", id), zap.Error(err))
			failures = append(failures, entity.ItemFailure{
				ArticleID: id,
				Stage:     entity.StagePrune,
				Error:     err.Error(),
			})
		}
	}
	return failures
}

func batchFailures(batch []entity.Chunk, stage string, err error) []entity.ItemFailure {
	failures := make([]entity.ItemFailure, len(batch))
	for i, c := range batch {
		failures[i] = entity.ItemFailure{
			ArticleID: c.ArticleID,
			ChunkID:   c.ChunkID,
			Stage:     stage,
			Error:     err.Error(),
		}
	}
	return failures
}

// IngestCorpus loads a news.json corpus and ingests it.
func (uc *Usecase) IngestCorpus(ctx context.Context, path string, rebuild bool) (*entity.IngestReport, error) {
	articles, err := source.LoadCorpus(path)
	if err != nil {
		return nil, err
	}
	ctxzap.Info(ctx, "corpus loaded", zap.String("path", path), zap.Int("articles", len(articles)))
	return uc.run(ctx, articles, rebuild)
}

func (uc *Usecase) DeleteChunk(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: chunk id must not be blank", entity.ErrInvalidArgument)
	}
	if err := uc.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete chunk %s: %w", id, err)
	}
	ctxzap.Info(ctx, "chunk deleted", zap.String("chunk_id", id))
	return nil
}

func (uc *Usecase) Stats(ctx context.Context) (*entity.IndexStats, error) {
	count, err := uc.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index entries: %w", err)
	}
	return &entity.IndexStats{
		Backend:   uc.cfg.Backend,
		Entries:   count,
		Dimension: uc.index.Dimension(),
	}, nil
}
