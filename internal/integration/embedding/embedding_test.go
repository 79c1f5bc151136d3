package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/embedder"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

var (
	_ embedder.Provider = (*JinaConnector)(nil)
	_ embedder.Provider = (*OpenAIConnector)(nil)
	_ embedder.Provider = (*MockConnector)(nil)
)

func testConfig(url string) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			Url:            url,
			Token:          "key",
			RequestTimeout: 5 * time.Second,
			ConnTimeout:    time.Second,
		},
		Model: "test-model",
	}
}

func TestJinaConnector_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req jinaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		// Out of order, second vector nested one level.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[[0.3,0.4]]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	c := NewJinaConnector(testConfig(srv.URL), zap.NewNop())
	raw, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, raw, 2)

	first, err := embedder.Normalize(raw[0])
	require.NoError(t, err)
	second, err := embedder.Normalize(raw[1])
	require.NoError(t, err)
	assert.Equal(t, entity.Embedding{0.1, 0.2}, first)
	assert.Equal(t, entity.Embedding{0.3, 0.4}, second)
}

func TestJinaConnector_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewJinaConnector(testConfig(srv.URL), zap.NewNop()).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, pkghttp.IsRetryable(err))
}

func TestOpenAIConnector_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "test-model",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIConnector(testConfig(srv.URL), zap.NewNop())
	raw, err := c.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, raw, 2)

	first, err := embedder.Normalize(raw[0])
	require.NoError(t, err)
	assert.Equal(t, entity.Embedding{1, 0}, first)
}

func TestOpenAIConnector_StatusErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIConnector(testConfig(srv.URL), zap.NewNop()).Embed(context.Background(), []string{"x"})
	var httpErr *pkghttp.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
}

func TestMockConnector(t *testing.T) {
	m := NewMockConnector(32, zap.NewNop())
	raw, err := m.Embed(context.Background(), []string{
		"The cat sat on the mat.",
		"the cat sat on the mat",
		"Dogs run fast in parks",
		"",
	})
	require.NoError(t, err)

	vecs := make([]entity.Embedding, len(raw))
	for i, r := range raw {
		vecs[i], err = embedder.Normalize(r)
		require.NoError(t, err)
		assert.Len(t, vecs[i], 32)
	}

	assert.Equal(t, vecs[0], vecs[1], "case and punctuation are ignored")
	assert.InDelta(t, 1.0, index.Cosine(vecs[0], vecs[1]), 1e-6)
	assert.Less(t, index.Cosine(vecs[0], vecs[2]), 0.9)
	assert.NotZero(t, index.Cosine(vecs[3], vecs[3]))
}
