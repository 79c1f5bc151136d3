package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnector_DoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"pong"}`))
	}))
	defer srv.Close()

	conn := NewConnector(&ConnectorConfig{BaseURL: srv.URL},
		WithAuthToken("secret"),
		WithRequestLogging(),
	)

	var resp struct {
		Value string `json:"value"`
	}
	err := conn.DoRequest(context.Background(), http.MethodPost, "/v1/echo", map[string]string{"value": "ping"}, &resp, WithHeader("X-Extra", "yes"))
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Value)
}

func TestConnector_DoRequestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	conn := NewConnector(&ConnectorConfig{BaseURL: srv.URL})
	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.True(t, IsRetryable(err))
}

func TestConnector_DoRequestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	conn := NewConnector(&ConnectorConfig{BaseURL: url})
	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 503}, true},
		{"bad request", &HTTPError{StatusCode: 400}, false},
		{"unauthorized", fmt.Errorf("embed: %w", &HTTPError{StatusCode: 401}), false},
		{"network", &NetworkError{Err: errors.New("connection refused")}, true},
		{"canceled", &NetworkError{Err: context.Canceled}, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"plain", errors.New("decode response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestConnector_ResponseLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":"0123456789"}`))
	}))
	defer srv.Close()

	conn := NewConnector(&ConnectorConfig{BaseURL: srv.URL, MaxResponseBytes: 8})
	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
	assert.False(t, IsRetryable(err))
}

func TestClient_DefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "k1", r.Header.Get("X-Goog-Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(WithAPIKeyHeader("x-goog-api-key", "k1"), WithAuthToken(""), WithRequestLogging())
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClient_CustomUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer srv.Close()

	resp, err := NewClient(WithUserAgent("feed-reader")).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "feed-reader", string(body))
}
