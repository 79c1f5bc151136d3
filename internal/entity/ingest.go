package entity

import "time"

// Ingestion stages reported for failed items
const (
	StageChunk  = "chunk"
	StageEmbed  = "embed"
	StageUpsert = "upsert"
	StagePrune  = "prune"
)

// ItemFailure describes a chunk or article that could not be indexed.
type ItemFailure struct {
	ArticleID string `json:"article_id"`
	ChunkID   string `json:"chunk_id,omitempty"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// IngestReport summarises a single ingestion run.
type IngestReport struct {
	RunID      string        `json:"run_id"`
	Articles   int           `json:"articles"`
	Chunks     int           `json:"chunks"`
	Indexed    int           `json:"indexed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Failed reports whether any item of the run was not indexed.
func (r *IngestReport) Failed() bool {
	return len(r.Failures) > 0
}

// IngestEventType names a notification sent to the ingest webhook.
type IngestEventType string

const (
	IngestEventFinished IngestEventType = "ingest_finished"
	IngestEventRebuilt  IngestEventType = "index_rebuilt"
)

// IngestEvent is the webhook payload describing a finished run.
type IngestEvent struct {
	Event     IngestEventType `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      *IngestReport   `json:"data"`
}
