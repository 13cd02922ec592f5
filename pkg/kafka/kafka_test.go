package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/resilience"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{messages: msgs, drained: make(chan struct{})}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	if len(f.messages) == 0 {
		select {
		case <-f.drained:
		default:
			close(f.drained)
		}
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func runConsumer(t *testing.T, r *fakeReader, handler MessageHandler) {
	t.Helper()
	c := newConsumer(r, "docs", handler)
	c.retry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Offset: 1, Value: []byte(`"a"`)},
		kafka.Message{Offset: 2, Value: []byte(`"b"`)},
	)
	var mu sync.Mutex
	var seen []string
	runConsumer(t, r, func(_ context.Context, _ []byte, value []byte) error {
		v, err := DecodeJSON[string](value)
		assert.NoError(t, err)
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
		return nil
	})

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)
}

func TestConsumer_RetriesThenCommitsFailingMessage(t *testing.T) {
	r := newFakeReader(kafka.Message{Offset: 7})
	attempts := 0
	runConsumer(t, r, func(context.Context, []byte, []byte) error {
		attempts++
		return errors.New("store unavailable")
	})

	assert.Equal(t, 2, attempts)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "docs")

	err := p.Publish(context.Background(), Event{Key: "k1", Value: map[string]string{"title": "hello"}})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	assert.Equal(t, "k1", string(w.written[0].Key))
	assert.JSONEq(t, `{"title":"hello"}`, string(w.written[0].Value))
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

func TestProducer_PublishError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "docs")

	err := p.Publish(context.Background(), Event{Key: "k", Value: 1})

	assert.ErrorIs(t, err, boom)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON[map[string]string]([]byte("{nope"))
	assert.Error(t, err)
}
