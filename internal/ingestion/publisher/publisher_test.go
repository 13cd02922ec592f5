package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/resilience"
)

type recordingProducer struct {
	events []kafka.Event
	fails  int
}

func (r *recordingProducer) Publish(_ context.Context, event kafka.Event) error {
	if r.fails > 0 {
		r.fails--
		return errors.New("leader not available")
	}
	r.events = append(r.events, event)
	return nil
}

func newTestPublisher(prod EventPublisher) *Publisher {
	p := New(prod)
	p.retry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestPublish_WritesEvent(t *testing.T) {
	prod := &recordingProducer{}
	p := newTestPublisher(prod)

	resp, err := p.Publish(context.Background(), &ingestion.IngestRequest{
		Title:    "Go",
		Body:     "concurrency",
		Metadata: map[string]string{"lang": "en"},
	})
	require.NoError(t, err)

	assert.Equal(t, ingestion.StatusQueued, resp.Status)
	assert.Nil(t, resp.DocumentID)
	require.Len(t, prod.events, 1)
	ev := prod.events[0].Value.(ingestion.IngestEvent)
	assert.Equal(t, resp.EventID, ev.EventID)
	assert.Equal(t, resp.EventID, prod.events[0].Key)
	assert.Equal(t, "Go", ev.Title)
	assert.Equal(t, "en", ev.Metadata["lang"])
	assert.Equal(t, 2026, ev.IngestedAt.Year())
}

func TestPublish_RetriesTransientFailures(t *testing.T) {
	prod := &recordingProducer{fails: 2}

	_, err := newTestPublisher(prod).Publish(context.Background(), &ingestion.IngestRequest{Body: "x"})

	require.NoError(t, err)
	assert.Len(t, prod.events, 1)
}

func TestPublish_RejectsInvalidRequest(t *testing.T) {
	prod := &recordingProducer{}

	_, err := newTestPublisher(prod).Publish(context.Background(), &ingestion.IngestRequest{})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, prod.events)
}
