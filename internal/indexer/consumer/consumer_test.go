package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
)

type fakeIndexer struct {
	docs []store.Document
	err  error
}

func (f *fakeIndexer) AddDocument(_ context.Context, doc store.Document) (index.DocID, error) {
	if f.err != nil {
		return 0, f.err
	}
	doc.ID = index.DocID(len(f.docs))
	f.docs = append(f.docs, doc)
	return doc.ID, nil
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func encode(t *testing.T, e ingestion.IngestEvent) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestHandleMessage_IndexesEvent(t *testing.T) {
	idx := &fakeIndexer{}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(idx, m)

	err := handle(context.Background(), []byte("e1"), encode(t, ingestion.IngestEvent{EventID: "e1", Title: "Hello", Body: "world"}))

	require.NoError(t, err)
	require.Len(t, idx.docs, 1)
	assert.Equal(t, "Hello", idx.docs[0].Title)
	assert.Contains(t, scrape(t, m), `ingest_events_total{status="indexed"} 1`)
}

func TestHandleMessage_SkipsBadEvents(t *testing.T) {
	idx := &fakeIndexer{}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(idx, m)

	require.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	require.NoError(t, handle(context.Background(), nil, encode(t, ingestion.IngestEvent{EventID: "e2"})))

	assert.Empty(t, idx.docs)
	assert.Contains(t, scrape(t, m), `ingest_events_total{status="invalid"} 2`)
}

func TestHandleMessage_ReturnsIndexingError(t *testing.T) {
	boom := errors.New("store down")
	handle := HandleMessage(&fakeIndexer{err: boom}, nil)

	err := handle(context.Background(), nil, encode(t, ingestion.IngestEvent{EventID: "e3", Body: "text"}))

	assert.ErrorIs(t, err, boom)
}
