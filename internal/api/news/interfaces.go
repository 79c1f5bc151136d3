package news

import (
	"context"

	"github.com/futig/news-rag/internal/entity"
)

type QueryUsecase interface {
	Ask(ctx context.Context, question string, k int) (*entity.Answer, error)
	Search(ctx context.Context, question string, k int) (entity.RetrievalResult, error)
}

type IngestUsecase interface {
	Ingest(ctx context.Context, articles []entity.Article) (*entity.IngestReport, error)
	Rebuild(ctx context.Context, articles []entity.Article) (*entity.IngestReport, error)
	DeleteChunk(ctx context.Context, id string) error
	Stats(ctx context.Context) (*entity.IndexStats, error)
}
