package common

import (
	"github.com/futig/news-rag/internal/config"
	pkgHTTP "github.com/futig/news-rag/pkg/http"
)

// NewBaseConnector builds the JSON connector for an external service.
// defaultURL is used when the config leaves SERVICE_URL empty; auth carries
// the service's credential option, if any.
func NewBaseConnector(cfg config.HTTPClientConfig, defaultURL string, auth ...pkgHTTP.HttpOpts) *pkgHTTP.Connector {
	baseURL := cfg.Url
	if baseURL == "" {
		baseURL = defaultURL
	}

	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
	}
	// Credentials wrap the logging transport so the log shows them redacted.
	opts = append(opts, auth...)

	return pkgHTTP.NewConnector(&pkgHTTP.ConnectorConfig{BaseURL: baseURL}, opts...)
}
