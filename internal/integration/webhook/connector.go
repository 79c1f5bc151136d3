// Package webhook posts ingestion reports to an external endpoint.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/integration/common"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

type Connector struct {
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.WebhookConfig, logger *zap.Logger) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, "", pkghttp.WithAuthToken(cfg.Token)),
		logger:    logger,
	}
}

// NotifyIngest sends the report of a finished run. Delivery failures are
// logged and never affect the run.
func (c *Connector) NotifyIngest(ctx context.Context, event entity.IngestEventType, report *entity.IngestReport) {
	err := c.Send(ctx, &entity.IngestEvent{
		Event: event,
		Data:  report,
	})
	if err != nil {
		ctxzap.Error(ctx, "failed to send ingest webhook", zap.Error(err))
	}
}

func (c *Connector) Send(ctx context.Context, event *entity.IngestEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	var runID string
	if event.Data != nil {
		runID = event.Data.RunID
	}

	ctxzap.Debug(ctx, "sending webhook event",
		zap.String("event_type", string(event.Event)),
		zap.String("run_id", runID),
	)

	err := c.connector.DoRequest(ctx, http.MethodPost, "", event, nil,
		pkghttp.WithHeader("X-Run-ID", runID),
	)
	if err != nil {
		return fmt.Errorf("send webhook, event_type: %s: %w", event.Event, err)
	}

	ctxzap.Info(ctx, "webhook sent successfully",
		zap.String("event_type", string(event.Event)),
		zap.String("run_id", runID),
	)
	return nil
}
