package llm

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/integration/common"
)

// OpenAIConnector generates answers through an OpenAI-compatible chat
// completions endpoint.
type OpenAIConnector struct {
	client openai.Client
	model  string
}

func NewOpenAIConnector(cfg config.LLMConfig, logger *zap.Logger) *OpenAIConnector {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Token),
		option.WithRequestTimeout(cfg.RequestTimeout),
		option.WithMaxRetries(0),
	}
	if cfg.Url != "" {
		opts = append(opts, option.WithBaseURL(cfg.Url))
	}
	logger.Debug("openai chat connector configured", zap.String("model", cfg.Model))

	return &OpenAIConnector{client: openai.NewClient(opts...), model: cfg.Model}
}

func (c *OpenAIConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Info(ctx, "generating answer via openai", zap.String("model", c.model))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", common.MapOpenAIError(err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai chat: %w", ErrEmptyCompletion)
	}

	ctxzap.Info(ctx, "answer generated successfully", zap.Int("result_length", len(resp.Choices[0].Message.Content)))
	return resp.Choices[0].Message.Content, nil
}
