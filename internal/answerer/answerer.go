// Package answerer builds a grounded prompt from retrieved passages and asks
// a language model to answer it.
package answerer

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/observability"
	pkgRetry "github.com/futig/news-rag/internal/pkg/retry"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

const contextSeparator = "\n\n"

const promptTemplate = `Answer the following question using only the provided context.
If the context is not enough, say so instead of guessing.

Question: %s

Context:
%s

Answer:`

// Generator is the text generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Answerer struct {
	generator Generator
	retry     *pkgRetry.RetryConfig
}

func New(generator Generator, retryCfg *pkgRetry.RetryConfig) *Answerer {
	if retryCfg == nil {
		retryCfg = pkgRetry.DefaultRetryConfig()
	}
	return &Answerer{generator: generator, retry: retryCfg}
}

// BuildContext joins the retrieved documents in rank order.
func BuildContext(retrieval entity.RetrievalResult) string {
	return strings.Join(retrieval.Documents(), contextSeparator)
}

func BuildPrompt(question, context string) string {
	return fmt.Sprintf(promptTemplate, question, context)
}

// Answer generates an answer grounded on retrieval. An empty retrieval still
// produces a prompt, with an empty context.
func (a *Answerer) Answer(ctx context.Context, question string, retrieval entity.RetrievalResult) (*entity.Answer, error) {
	contextText := BuildContext(retrieval)
	prompt := BuildPrompt(question, contextText)

	ctx, span := observability.StartGenerateSpan(ctx, len(prompt))
	defer span.End()

	text, err := pkgRetry.Do(ctx, a.retry, pkghttp.IsRetryable, func(ctx context.Context) (string, error) {
		return a.generator.Generate(ctx, prompt)
	})
	if err != nil {
		observability.RecordError(span, err)
		ctxzap.Warn(ctx, "generation failed", zap.Int("passages", len(retrieval)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", entity.ErrGenerationUnavailable, err)
	}

	return &entity.Answer{
		Text:    text,
		Context: contextText,
	}, nil
}
