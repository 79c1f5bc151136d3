package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultMaxResponseBytes = 32 << 20
	// Longest response body quoted in an HTTPError.
	maxErrorMessageBytes = 512
)

// Connector exchanges JSON with one service rooted at a base URL.
type Connector struct {
	baseURL          string
	maxResponseBytes int64
	httpClient       *http.Client
}

type ConnectorConfig struct {
	BaseURL string
	// Responses larger than this fail instead of being decoded. Zero selects
	// 32 MiB, enough for a full embedding batch.
	MaxResponseBytes int64
}

func NewConnector(config *ConnectorConfig, options ...HttpOpts) *Connector {
	limit := config.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	return &Connector{
		baseURL:          strings.TrimRight(config.BaseURL, "/"),
		maxResponseBytes: limit,
		httpClient:       NewClient(options...),
	}
}

type RequestOpt func(*requestConfig)

type requestConfig struct {
	headers     map[string]string
	overrideURL string
}

func WithHeader(key, value string) RequestOpt {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithURL sends the request to url instead of the base URL plus endpoint.
func WithURL(url string) RequestOpt {
	return func(c *requestConfig) {
		c.overrideURL = url
	}
}

// DoRequest sends reqBody as JSON and decodes a 2xx JSON response into
// respBody. Transport failures come back as *NetworkError and non-2xx
// responses as *HTTPError.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	url := c.baseURL + endpoint
	if cfg.overrideURL != "" {
		url = cfg.overrideURL
	}

	var bodyReader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
		ctx = context.WithValue(ctx, payloadContextKey{}, payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range cfg.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}
	if int64(len(body)) > c.maxResponseBytes {
		return fmt.Errorf("response from %s exceeds %d bytes", req.URL.Redacted(), c.maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > maxErrorMessageBytes {
			msg = msg[:maxErrorMessageBytes] + "..."
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
