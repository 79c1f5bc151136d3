package http

import "net/http"

// DefaultUserAgent identifies outbound calls. Some feed hosts reject the
// Go default agent.
const DefaultUserAgent = "news-rag/1.0 (+https://github.com/futig/news-rag)"

// headerTransport sets fixed headers on every request that does not carry
// them already. Empty values are skipped.
type headerTransport struct {
	headers   http.Header
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	for name, values := range t.headers {
		if len(values) == 0 || values[0] == "" || reqCopy.Header.Get(name) != "" {
			continue
		}
		reqCopy.Header.Set(name, values[0])
	}
	return t.transport.RoundTrip(reqCopy)
}

func withHeaders(pairs ...string) HttpOpts {
	headers := make(http.Header, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		headers.Set(pairs[i], pairs[i+1])
	}
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{headers: headers, transport: rt}
	})
}

// WithAuthToken sends token as a bearer credential. An empty token sends
// nothing.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return withHeaders()
	}
	return withHeaders("Authorization", "Bearer "+token)
}

// WithAPIKeyHeader sends key in the named header, as Google APIs expect.
func WithAPIKeyHeader(header, key string) HttpOpts {
	return withHeaders(header, key)
}

func WithUserAgent(userAgent string) HttpOpts {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}
