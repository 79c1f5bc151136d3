package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/integration/common"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

const (
	jinaDefaultURL = "https://api.jina.ai"
	jinaEndpoint   = "/v1/embeddings"
)

type jinaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Index int `json:"index"`
		// Left undecoded: some deployments wrap the vector in an extra list.
		Embedding any `json:"embedding"`
	} `json:"data"`
}

// JinaConnector calls the Jina embeddings REST API.
type JinaConnector struct {
	model     string
	connector *pkghttp.Connector
}

func NewJinaConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *JinaConnector {
	return &JinaConnector{
		model:     cfg.Model,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, jinaDefaultURL, pkghttp.WithAuthToken(cfg.Token)),
	}
}

func (c *JinaConnector) Name() string { return "jina" }

func (c *JinaConnector) Embed(ctx context.Context, texts []string) ([]any, error) {
	ctxzap.Debug(ctx, "embedding texts via jina", zap.Int("texts", len(texts)), zap.String("model", c.model))

	var resp jinaResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, jinaEndpoint, &jinaRequest{Model: c.model, Input: texts}, &resp)
	if err != nil {
		return nil, fmt.Errorf("jina embeddings: %w", err)
	}

	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([]any, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
