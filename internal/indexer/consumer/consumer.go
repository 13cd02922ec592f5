// Package consumer indexes ingestion events read from Kafka.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
)

const (
	statusIndexed = "indexed"
	statusInvalid = "invalid"
	statusFailed  = "failed"
)

// DocumentIndexer is satisfied by *indexer.Engine.
type DocumentIndexer interface {
	AddDocument(ctx context.Context, doc store.Document) (index.DocID, error)
}

// HandleMessage returns a kafka.MessageHandler that indexes every ingest
// event. Events that cannot be decoded or fail validation are logged and
// skipped; indexing errors are returned so the consumer retries them.
// m may be nil.
func HandleMessage(idx DocumentIndexer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	count := func(status string) {
		if m != nil {
			m.IngestEventsTotal.WithLabelValues(status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			count(statusInvalid)
			return nil
		}
		req := event.Request()
		if err := validator.ValidateIngestRequest(req); err != nil {
			logger.Warn("skipping invalid ingest event", "event_id", event.EventID, "error", err)
			count(statusInvalid)
			return nil
		}

		id, err := idx.AddDocument(ctx, req.Document())
		if err != nil {
			count(statusFailed)
			return fmt.Errorf("indexing event %s: %w", event.EventID, err)
		}
		count(statusIndexed)
		logger.Info("document indexed", "event_id", event.EventID, "doc_id", uint32(id))
		return nil
	}
}
