// Package handler serves the search API: single and batch queries with
// titles and snippets, index statistics and the result cache controls.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/logger"
)

const (
	maxBatchQueries = 50
	maxBatchBytes   = 1 << 20
)

type SearchExecutor interface {
	Search(ctx context.Context, query string, topK int) (*executor.SearchResult, error)
	SearchBatch(ctx context.Context, queries []string, topK int) ([]executor.BatchItem, error)
}

// DocumentSource is satisfied by *indexer.Engine.
type DocumentSource interface {
	Get(ctx context.Context, id index.DocID) (store.Document, error)
	Analyzer() *tokenizer.Analyzer
	Stats() indexer.Stats
}

// SearchHit is a ranked hit with its title and a snippet of the stored text.
type SearchHit struct {
	executor.Hit
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

type SearchResponse struct {
	*executor.SearchResult
	Results   []SearchHit `json:"results"`
	LatencyMs int64       `json:"latency_ms"`
}

type BatchRequest struct {
	Queries []string `json:"queries"`
	Limit   int      `json:"limit"`
}

type BatchEntry struct {
	Query    string          `json:"query"`
	Result   *SearchResponse `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Fragment string          `json:"fragment,omitempty"`
	Offset   *int            `json:"offset,omitempty"`
}

type Handler struct {
	executor      SearchExecutor
	docs          DocumentSource
	cache         *cache.Cache[*executor.SearchResult]
	snippetRadius int
	logger        *slog.Logger
}

// New builds the handler. queryCache may be nil when caching is disabled.
func New(exec SearchExecutor, docs DocumentSource, queryCache *cache.Cache[*executor.SearchResult], snippetRadius int) *Handler {
	if snippetRadius <= 0 {
		snippetRadius = snippet.DefaultRadius
	}
	return &Handler{
		executor:      exec,
		docs:          docs,
		cache:         queryCache,
		snippetRadius: snippetRadius,
		logger:        slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/batch", h.SearchBatch)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/v1/cache", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	result, err := h.executor.Search(ctx, query, limit)
	if err != nil {
		h.writeSearchError(w, query, err)
		return
	}
	resp := h.respond(ctx, result, start)

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"timed_out", result.TimedOut,
		"latency_ms", resp.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// SearchBatch answers {queries, limit}. Each query succeeds or fails on
// its own; the response lists them in request order.
func (h *Handler) SearchBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(w, http.StatusBadRequest, "queries must not be empty")
		return
	}
	if len(req.Queries) > maxBatchQueries {
		h.writeError(w, http.StatusBadRequest, "too many queries in batch")
		return
	}
	if req.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	items, err := h.executor.SearchBatch(ctx, req.Queries, req.Limit)
	if err != nil {
		logger.FromContext(ctx).Error("batch search failed", "queries", len(req.Queries), "error", err)
		h.writeError(w, http.StatusInternalServerError, "batch search failed")
		return
	}

	entries := make([]BatchEntry, len(items))
	for i, item := range items {
		entries[i] = BatchEntry{Query: item.Query}
		if item.Err != nil {
			entries[i].Error = item.Err.Error()
			var syntaxErr *parser.QuerySyntaxError
			if errors.As(item.Err, &syntaxErr) {
				entries[i].Error = syntaxErr.Reason
				entries[i].Fragment = syntaxErr.Fragment
				entries[i].Offset = &syntaxErr.Offset
			}
			continue
		}
		entries[i].Result = h.respond(ctx, item.Result, start)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"results":    entries,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.docs.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"entries":  stats.Entries,
		"hit_rate": hitRate,
	})
}

// CacheInvalidate empties the local tier. Shared entries expire on their
// own and are keyed by generation, so they never serve stale results.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, _ *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	h.cache.Purge()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// respond attaches titles and snippets to a result. A document that cannot
// be loaded keeps its hit without them.
func (h *Handler) respond(ctx context.Context, result *executor.SearchResult, start time.Time) *SearchResponse {
	hits := make([]SearchHit, len(result.Results))
	analyzer := h.docs.Analyzer()
	for i, hit := range result.Results {
		hits[i] = SearchHit{Hit: hit}
		doc, err := h.docs.Get(ctx, hit.DocID)
		if err != nil {
			logger.FromContext(ctx).Warn("loading hit document failed", "doc_id", uint32(hit.DocID), "error", err)
			continue
		}
		hits[i].Title = doc.Title
		hits[i].Snippet = snippet.Render(doc.Text(), analyzer, snippet.Flatten(hit.MatchedPositions), h.snippetRadius)
	}
	return &SearchResponse{
		SearchResult: result,
		Results:      hits,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
}

func (h *Handler) writeSearchError(w http.ResponseWriter, query string, err error) {
	var syntaxErr *parser.QuerySyntaxError
	if errors.As(err, &syntaxErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    syntaxErr.Reason,
			"fragment": syntaxErr.Fragment,
			"offset":   syntaxErr.Offset,
		})
		return
	}
	h.logger.Error("search execution failed", "query", query, "error", err)
	h.writeError(w, http.StatusInternalServerError, "search failed")
}

// parseLimit accepts an absent value (the executor's default) or a
// positive integer.
func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
