// Package embedder turns text into fixed-dimension vectors through an
// external embedding provider.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/observability"
	pkgRetry "github.com/futig/news-rag/internal/pkg/retry"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

// Provider is the embedding service capability. It returns one raw decoded
// vector per input text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([]any, error)
	Name() string
}

type Config struct {
	Retry *pkgRetry.RetryConfig
	// Expected vector dimension; 0 means learn it from the first response.
	Dimension int
	// Requests per second; <= 0 disables limiting.
	RateRPS   float64
	RateBurst int
}

type Embedder struct {
	provider Provider
	retry    *pkgRetry.RetryConfig
	limiter  *rate.Limiter

	mu  sync.RWMutex
	dim int
}

func New(provider Provider, cfg Config) *Embedder {
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = pkgRetry.DefaultRetryConfig()
	}

	limit := rate.Inf
	if cfg.RateRPS > 0 {
		limit = rate.Limit(cfg.RateRPS)
	}
	burst := max(cfg.RateBurst, 1)

	return &Embedder{
		provider: provider,
		retry:    retryCfg,
		limiter:  rate.NewLimiter(limit, burst),
		dim:      cfg.Dimension,
	}
}

// Dimension returns the configured or observed vector dimension, 0 if unknown.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

func (e *Embedder) ProviderName() string {
	return e.provider.Name()
}

func (e *Embedder) Embed(ctx context.Context, text string) (entity.Embedding, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one provider call and returns vectors in input
// order. Transient provider failures are retried; malformed vectors are not.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([]entity.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, span := observability.StartEmbedSpan(ctx, e.provider.Name(), len(texts))
	defer span.End()

	raw, err := pkgRetry.Do(ctx, e.retry, isTransient, func(ctx context.Context) ([]any, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return e.provider.Embed(ctx, texts)
	})
	if err != nil {
		observability.RecordError(span, err)
		ctxzap.Warn(ctx, "embedding request failed",
			zap.String("provider", e.provider.Name()),
			zap.Int("texts", len(texts)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", entity.ErrEmbeddingUnavailable, err)
	}

	if len(raw) != len(texts) {
		err := fmt.Errorf("%w: provider returned %d vectors for %d texts", entity.ErrMalformedEmbedding, len(raw), len(texts))
		observability.RecordError(span, err)
		return nil, err
	}

	vectors := make([]entity.Embedding, len(raw))
	for i, r := range raw {
		v, err := Normalize(r)
		if err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		vectors[i] = v
	}

	if err := e.checkDimension(vectors); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	return vectors, nil
}

func (e *Embedder) checkDimension(vectors []entity.Embedding) error {
	dim := len(vectors[0])
	for i, v := range vectors[1:] {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, vector 0 has %d", entity.ErrDimensionMismatch, i+1, len(v), dim)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dim == 0 {
		e.dim = dim
		return nil
	}
	if e.dim != dim {
		return fmt.Errorf("%w: provider returned dimension %d, expected %d", entity.ErrDimensionMismatch, dim, e.dim)
	}
	return nil
}

func isTransient(err error) bool {
	if errors.Is(err, entity.ErrMalformedEmbedding) {
		return false
	}
	return pkghttp.IsRetryable(err)
}
