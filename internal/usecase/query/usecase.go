package query

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/entity"
)

// DefaultTopK is the number of passages used when the caller does not ask
// for a specific number.
const DefaultTopK = 5

// Usecase answers questions about the indexed news. It keeps no state
// between calls.
type Usecase struct {
	retriever Retriever
	answerer  Answerer
	topK      int
}

func NewUsecase(retriever Retriever, answerer Answerer, topK int) *Usecase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Usecase{retriever: retriever, answerer: answerer, topK: topK}
}

// Ask retrieves the k most similar passages and answers the question from
// them. k <= 0 selects the default.
func (uc *Usecase) Ask(ctx context.Context, question string, k int) (*entity.Answer, error) {
	retrieval, err := uc.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}

	answer, err := uc.answerer.Answer(ctx, question, retrieval)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	ctxzap.Info(ctx, "question answered",
		zap.Int("passages", len(retrieval)),
		zap.Int("answer_len", len(answer.Text)),
	)
	return answer, nil
}

// Search returns the k most similar passages without generating an answer.
func (uc *Usecase) Search(ctx context.Context, question string, k int) (entity.RetrievalResult, error) {
	if k <= 0 {
		k = uc.topK
	}

	retrieval, err := uc.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return retrieval, nil
}
