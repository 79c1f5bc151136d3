package query

import (
	"context"

	"github.com/futig/news-rag/internal/entity"
)

type Retriever interface {
	Retrieve(ctx context.Context, queryText string, k int) (entity.RetrievalResult, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string, retrieval entity.RetrievalResult) (*entity.Answer, error)
}
