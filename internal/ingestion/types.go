// Package ingestion defines the request, response and Kafka event shapes
// used to get documents into the index.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
)

const (
	StatusIndexed = "indexed"
	StatusQueued  = "queued"
)

// IngestRequest is the JSON body accepted by POST /api/v1/documents.
type IngestRequest struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document converts the request into its stored form. The id is assigned
// by the engine.
func (r *IngestRequest) Document() store.Document {
	return store.Document{Title: r.Title, Body: r.Body, Metadata: r.Metadata}
}

// IngestResponse is returned once a document is indexed (with its id) or
// queued on Kafka (with the event id).
type IngestResponse struct {
	DocumentID *uint32 `json:"document_id,omitempty"`
	EventID    string  `json:"event_id,omitempty"`
	Status     string  `json:"status"`
}

// IngestEvent is the Kafka message payload consumed by the indexer.
type IngestEvent struct {
	EventID    string            `json:"event_id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	IngestedAt time.Time         `json:"ingested_at"`
}

func (e *IngestEvent) Request() *IngestRequest {
	return &IngestRequest{Title: e.Title, Body: e.Body, Metadata: e.Metadata}
}
