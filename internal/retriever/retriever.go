// Package retriever finds the passages most similar to a query text.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	"github.com/futig/news-rag/internal/observability"
)

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (entity.Embedding, error)
}

type Retriever struct {
	embedder QueryEmbedder
	index    index.VectorIndex
	// nil when caching is disabled
	cache *cache.Cache
}

// New builds a retriever. A positive cacheTTL caches query embeddings by
// query text; embeddings depend only on the text, so index mutations never
// invalidate them.
func New(embedder QueryEmbedder, idx index.VectorIndex, cacheTTL time.Duration) *Retriever {
	r := &Retriever{embedder: embedder, index: idx}
	if cacheTTL > 0 {
		r.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

func (r *Retriever) Retrieve(ctx context.Context, queryText string, k int) (entity.RetrievalResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query must not be blank", entity.ErrInvalidArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", entity.ErrInvalidArgument, k)
	}

	vector, err := r.embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ctx, span := observability.StartIndexQuerySpan(ctx, k)
	defer span.End()

	result, err := r.index.Query(ctx, vector, k)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("query index: %w", err)
	}

	ctxzap.Debug(ctx, "retrieved passages", zap.Int("k", k), zap.Int("found", len(result)))
	return result, nil
}

func (r *Retriever) embed(ctx context.Context, text string) (entity.Embedding, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(text); ok {
			return v.(entity.Embedding), nil
		}
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.SetDefault(text, vector)
	}
	return vector, nil
}
