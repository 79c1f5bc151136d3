package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/integration/common"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

const geminiDefaultURL = "https://generativelanguage.googleapis.com"

var ErrEmptyCompletion = errors.New("model returned no text")

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiConnector calls the Gemini generateContent REST API.
type GeminiConnector struct {
	model     string
	connector *pkghttp.Connector
}

func NewGeminiConnector(cfg config.LLMConfig, logger *zap.Logger) *GeminiConnector {
	return &GeminiConnector{
		model:     cfg.Model,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, geminiDefaultURL, pkghttp.WithAPIKeyHeader("x-goog-api-key", cfg.Token)),
	}
}

func (c *GeminiConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Info(ctx, "generating answer via gemini", zap.String("model", c.model))

	req := &geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}
	endpoint := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)

	var resp geminiResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, endpoint, req, &resp)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: %w", ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini generate (finish reason %q): %w", resp.Candidates[0].FinishReason, ErrEmptyCompletion)
	}

	ctxzap.Info(ctx, "answer generated successfully", zap.Int("result_length", sb.Len()))
	return sb.String(), nil
}
