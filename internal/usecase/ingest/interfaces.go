package ingest

import (
	"context"

	"github.com/futig/news-rag/internal/entity"
)

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]entity.Embedding, error)
}

// ReportNotifier is told about every run that reached the end.
type ReportNotifier interface {
	NotifyIngest(ctx context.Context, event entity.IngestEventType, report *entity.IngestReport)
}
