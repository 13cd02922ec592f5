// Package publisher queues validated documents on Kafka for asynchronous
// indexing.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/resilience"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	producer EventPublisher
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

func New(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		retry:    resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond},
		now:      time.Now,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish validates req and writes it to Kafka as an IngestEvent keyed by
// a fresh event id. The document gets its id when the consumer indexes it.
func (p *Publisher) Publish(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if err := validator.ValidateIngestRequest(req); err != nil {
		return nil, err
	}
	event := ingestion.IngestEvent{
		EventID:    uuid.NewString(),
		Title:      req.Title,
		Body:       req.Body,
		Metadata:   req.Metadata,
		IngestedAt: p.now().UTC(),
	}
	err := resilience.Retry(ctx, "kafka.publish", p.retry, func() error {
		return p.producer.Publish(ctx, kafka.Event{Key: event.EventID, Value: event})
	})
	if err != nil {
		return nil, fmt.Errorf("publishing ingest event: %w", err)
	}
	p.logger.Debug("document queued", "event_id", event.EventID, "body_size", len(req.Body))
	return &ingestion.IngestResponse{EventID: event.EventID, Status: ingestion.StatusQueued}, nil
}
