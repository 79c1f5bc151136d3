package llm

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

	"github.com/futig/news-rag/internal/answerer"
	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/entity"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

var (
	_ answerer.Generator = (*GeminiConnector)(nil)
	_ answerer.Generator = (*OpenAIConnector)(nil)
	_ answerer.Generator = (*MockConnector)(nil)
)

func testConfig(url string) config.LLMConfig {
	return config.LLMConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			Url:            url,
			Token:          "key",
			RequestTimeout: 5 * time.Second,
			ConnTimeout:    time.Second,
		},
		Model: "test-model",
	}
}

func TestGeminiConnector_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "the prompt", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	got, err := NewGeminiConnector(testConfig(srv.URL), zap.NewNop()).Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestGeminiConnector_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewGeminiConnector(testConfig(srv.URL), zap.NewNop()).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.False(t, pkghttp.IsRetryable(err))
}

func TestOpenAIConnector_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Forty-two."}}]
		}`))
	}))
	defer srv.Close()

	got, err := NewOpenAIConnector(testConfig(srv.URL), zap.NewNop()).Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", got)
}

func TestOpenAIConnector_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIConnector(testConfig(srv.URL), zap.NewNop()).Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, pkghttp.IsRetryable(err))
}

func TestMockConnector_UsesContext(t *testing.T) {
	m := NewMockConnector(zap.NewNop())

	withContext := answerer.BuildPrompt("Where?", answerer.BuildContext(entity.RetrievalResult{
		{Entry: entity.IndexEntry{Document: "the cat sat"}},
		{Entry: entity.IndexEntry{Document: "on the mat"}},
	}))
	got, err := m.Generate(context.Background(), withContext)
	require.NoError(t, err)
	assert.Equal(t, "Based on the news: the cat sat", got)

	got, err = m.Generate(context.Background(), answerer.BuildPrompt("Where?", ""))
	require.NoError(t, err)
	assert.Contains(t, got, "not enough")
}
