package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/integration/common"
)

// OpenAIConnector calls an OpenAI-compatible embeddings endpoint.
type OpenAIConnector struct {
	client openai.Client
	model  string
	dim    int
}

func NewOpenAIConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *OpenAIConnector {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Token),
		option.WithRequestTimeout(cfg.RequestTimeout),
		// Retries belong to the embedder.
		option.WithMaxRetries(0),
	}
	if cfg.Url != "" {
		opts = append(opts, option.WithBaseURL(cfg.Url))
	}
	logger.Debug("openai embedding connector configured", zap.String("model", cfg.Model))

	return &OpenAIConnector{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		dim:    cfg.Dimension,
	}
}

func (c *OpenAIConnector) Name() string { return "openai" }

func (c *OpenAIConnector) Embed(ctx context.Context, texts []string) ([]any, error) {
	ctxzap.Debug(ctx, "embedding texts via openai", zap.Int("texts", len(texts)), zap.String("model", c.model))

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dim > 0 {
		params.Dimensions = openai.Int(int64(c.dim))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", common.MapOpenAIError(err))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([]any, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}
