package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/embedder"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/integration/embedding"
	pkgRetry "github.com/futig/news-rag/internal/pkg/retry"
	"github.com/futig/news-rag/internal/source"
)

var (
	articleA = entity.Article{ID: "A", Title: "Cats", Text: "the cat sat on the mat"}
	articleB = entity.Article{ID: "B", Title: "Dogs", Text: "dogs run fast in parks"}
)

// lengthEmbedder maps a text to a deterministic 3-d vector and fails for any
// batch containing a word listed in failOn.
type lengthEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (e *lengthEmbedder) EmbedBatch(_ context.Context, texts []string) ([]entity.Embedding, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([]entity.Embedding, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, entity.ErrEmbeddingUnavailable
		}
		out[i] = entity.Embedding{float32(len(t)), float32(len(strings.Fields(t))), 1}
	}
	return out, nil
}

type failingIndex struct {
	*index.Memory
}

func (failingIndex) Upsert(context.Context, []entity.IndexEntry) error {
	return errors.New("disk full")
}

type pruneFailingIndex struct {
	*index.Memory
}

func (pruneFailingIndex) DeleteArticle(context.Context, string, []string) error {
	return errors.New("read only")
}

func newMockEmbedder() *embedder.Embedder {
	return embedder.New(embedding.NewMockConnector(0, zap.NewNop()), embedder.Config{
		Retry: &pkgRetry.RetryConfig{Attempts: 1},
	})
}

func TestIngest_EndToEnd(t *testing.T) {
	ctx := context.Background()
	emb := newMockEmbedder()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3, BatchSize: 2, Concurrency: 2}, emb, idx)

	report, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Articles)
	assert.Equal(t, 4, report.Chunks)
	assert.Equal(t, 4, report.Indexed)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	query, err := emb.Embed(ctx, "the cat sat")
	require.NoError(t, err)

	result, err := idx.Query(ctx, query, 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "A_0", result[0].Entry.ID)
	assert.Equal(t, "the cat sat", result[0].Entry.Document)
	assert.Equal(t, "A", result[0].Entry.Metadata.ArticleID)
	assert.Equal(t, "Cats", result[0].Entry.Metadata.Title)
	assert.InDelta(t, 1.0, result[0].Similarity, 1e-6)
}

func TestIngest_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3, BatchSize: 3, Concurrency: 4}, &lengthEmbedder{}, idx)

	_, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)
	first, err := idx.Query(ctx, entity.Embedding{11, 3, 1}, 10)
	require.NoError(t, err)

	_, err = uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)
	second, err := idx.Query(ctx, entity.Embedding{11, 3, 1}, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 4)
}

func TestIngest_RecordsEmbeddingFailuresPerChunk(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3, BatchSize: 1, Concurrency: 2}, &lengthEmbedder{failOn: "dogs"}, idx)

	report, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, 3, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, entity.ItemFailure{
		ArticleID: "B",
		ChunkID:   "B_0",
		Stage:     entity.StageEmbed,
		Error:     entity.ErrEmbeddingUnavailable.Error(),
	}, report.Failures[0])

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngest_RecordsUpsertFailures(t *testing.T) {
	uc := NewUsecase(Config{ChunkSize: 3, BatchSize: 4}, &lengthEmbedder{}, failingIndex{index.NewMemory()})

	report, err := uc.Ingest(context.Background(), []entity.Article{articleA})
	require.NoError(t, err)
	assert.Zero(t, report.Indexed)
	require.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.Equal(t, entity.StageUpsert, f.Stage)
		assert.Equal(t, "disk full", f.Error)
	}
}

func TestIngest_ReingestDropsStaleChunks(t *testing.T) {
	ctx := context.Background()
	emb := newMockEmbedder()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3}, emb, idx)

	_, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)

	shorter := articleA
	shorter.Text = "the cat left"
	report, err := uc.Ingest(ctx, []entity.Article{shorter})
	require.NoError(t, err)
	assert.False(t, report.Failed())

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "A_0 plus the untouched B_0 and B_1")

	query, err := emb.Embed(ctx, "on the mat")
	require.NoError(t, err)
	result, err := idx.Query(ctx, query, 10)
	require.NoError(t, err)
	for _, se := range result {
		assert.NotEqual(t, "A_1", se.Entry.ID)
		assert.NotEqual(t, "on the mat", se.Entry.Document)
	}
}

func TestIngest_EmptyTextRemovesArticle(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{}, idx)

	_, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)

	blank := articleA
	blank.Text = "   "
	report, err := uc.Ingest(ctx, []entity.Article{blank})
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)

	result, err := idx.Query(ctx, entity.Embedding{1, 1, 1}, 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	for _, se := range result {
		assert.Equal(t, "B", se.Entry.Metadata.ArticleID)
	}
}

func TestIngest_FailedReingestKeepsOldChunks(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()

	_, err := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{}, idx).Ingest(ctx, []entity.Article{articleA})
	require.NoError(t, err)

	shorter := articleA
	shorter.Text = "the cat left"
	report, err := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{failOn: "cat"}, idx).Ingest(ctx, []entity.Article{shorter})
	require.NoError(t, err)
	assert.True(t, report.Failed())

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngest_RecordsPruneFailures(t *testing.T) {
	uc := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{}, pruneFailingIndex{index.NewMemory()})

	report, err := uc.Ingest(context.Background(), []entity.Article{articleA})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, entity.ItemFailure{
		ArticleID: "A",
		Stage:     entity.StagePrune,
		Error:     "read only",
	}, report.Failures[0])
}

func TestIngest_ArticleWithoutID(t *testing.T) {
	emb := &lengthEmbedder{}
	uc := NewUsecase(Config{ChunkSize: 3}, emb, index.NewMemory())

	report, err := uc.Ingest(context.Background(), []entity.Article{{Text: "orphan text here"}, articleB})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, entity.StageChunk, report.Failures[0].Stage)
	assert.Equal(t, 2, report.Indexed)
}

func TestIngest_EmptyInput(t *testing.T) {
	emb := &lengthEmbedder{}
	uc := NewUsecase(Config{}, emb, index.NewMemory())

	report, err := uc.Ingest(context.Background(), []entity.Article{{ID: "empty", Text: "   "}})
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	assert.False(t, report.Failed())
	assert.Zero(t, emb.calls)
}

func TestIngest_InvalidChunkSize(t *testing.T) {
	uc := NewUsecase(Config{ChunkSize: -1}, &lengthEmbedder{}, index.NewMemory())

	_, err := uc.Ingest(context.Background(), []entity.Article{articleA})
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestRebuild_ResetsIndex(t *testing.T) {
	ctx := context.Background()
	idx := index.NewMemory()
	uc := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{}, idx)

	_, err := uc.Ingest(ctx, []entity.Article{articleA, articleB})
	require.NoError(t, err)

	report, err := uc.Rebuild(ctx, []entity.Article{articleB})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 3, stats.Dimension)
}

func TestIngestCorpus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "news.json")
	require.NoError(t, source.SaveCorpus(path, []entity.Article{articleA}))

	uc := NewUsecase(Config{ChunkSize: 3, Backend: "memory"}, &lengthEmbedder{}, index.NewMemory())
	report, err := uc.IngestCorpus(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)

	_, err = uc.IngestCorpus(ctx, filepath.Join(t.TempDir(), "missing.json"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeleteChunkAndStats(t *testing.T) {
	ctx := context.Background()
	uc := NewUsecase(Config{ChunkSize: 3, Backend: "memory"}, &lengthEmbedder{}, index.NewMemory())

	_, err := uc.Ingest(ctx, []entity.Article{articleA})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteChunk(ctx, "A_1"))
	assert.ErrorIs(t, uc.DeleteChunk(ctx, " "), entity.ErrInvalidArgument)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &entity.IndexStats{Backend: "memory", Entries: 1, Dimension: 3}, stats)
}

type recordingNotifier struct {
	events []entity.IngestEventType
	ids    []string
}

func (n *recordingNotifier) NotifyIngest(_ context.Context, event entity.IngestEventType, report *entity.IngestReport) {
	n.events = append(n.events, event)
	n.ids = append(n.ids, report.RunID)
}

func TestIngest_NotifiesFinishedRuns(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	uc := NewUsecase(Config{ChunkSize: 3}, &lengthEmbedder{}, index.NewMemory()).WithNotifier(notifier)

	first, err := uc.Ingest(ctx, []entity.Article{articleA})
	require.NoError(t, err)
	second, err := uc.Rebuild(ctx, []entity.Article{articleB})
	require.NoError(t, err)

	assert.Equal(t, []entity.IngestEventType{entity.IngestEventFinished, entity.IngestEventRebuilt}, notifier.events)
	assert.Equal(t, []string{first.RunID, second.RunID}, notifier.ids)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = uc.Ingest(cancelled, []entity.Article{articleA})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, notifier.events, 2)
}
