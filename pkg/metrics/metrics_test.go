package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.CacheHitsTotal.WithLabelValues("local").Add(2)
	m.IndexDocuments.Set(42)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["search_queries_total"])
	assert.True(t, names["cache_hits_total"])
	assert.True(t, names["index_documents"])

	body := scrape(t, m)
	assert.Contains(t, body, `search_queries_total{result_type="hit"} 1`)
	assert.Contains(t, body, `cache_hits_total{tier="local"} 2`)
	assert.Contains(t, body, "index_documents 42")
}

func TestNew_FreshRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestNewWithProcessCollectors(t *testing.T) {
	m := NewWithProcessCollectors(prometheus.NewRegistry())
	m.DocsIndexedTotal.Add(3)

	body := scrape(t, m)
	assert.Contains(t, body, "docs_indexed_total 3")
	assert.Contains(t, body, "go_goroutines")
}
