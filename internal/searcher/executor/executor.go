// Package executor is the search pipeline: parse, evaluate, score, select
// the top results. Every query runs against one immutable index snapshot.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/evaluator"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/tracing"
)

const (
	resultHit         = "hit"
	resultZero        = "zero_result"
	resultSyntaxError = "syntax_error"
	resultTimeout     = "timeout"

	cacheHit  = "hit"
	cacheMiss = "miss"
	cacheNone = "none"
)

// Hit is one ranked document. MatchedPositions lists, per scoring term
// present in the document, the positions it occurs at.
type Hit struct {
	DocID            index.DocID      `json:"doc_id"`
	Score            float64          `json:"score"`
	RawScore         float64          `json:"raw_score"`
	MatchedPositions map[string][]int `json:"matched_positions"`
}

// SearchResult is the answer to one query. TotalHits counts every matching
// document; Results holds at most the requested number of them. A result
// with TimedOut set is empty and was cut short by the deadline.
type SearchResult struct {
	Query        string              `json:"query"`
	Canonical    string              `json:"canonical"`
	TotalHits    int                 `json:"total_hits"`
	Results      []Hit               `json:"results"`
	DroppedTerms []string            `json:"dropped_terms,omitempty"`
	Expansions   map[string][]string `json:"expansions,omitempty"`
	Generation   uint64              `json:"generation"`
	TimedOut     bool                `json:"timed_out"`
}

// BatchItem is the outcome of one query in a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Query  string
	Result *SearchResult
	Err    error
}

// SnapshotSource hands out the current index snapshot.
type SnapshotSource interface {
	Snapshot() *indexer.Snapshot
}

type Executor struct {
	source  SnapshotSource
	ranker  *ranker.Ranker
	cache   *cache.Cache[*SearchResult]
	cfg     config.SearchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an executor. The result cache and metrics are optional.
func New(source SnapshotSource, cfg config.SearchConfig, c *cache.Cache[*SearchResult], m *metrics.Metrics) *Executor {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = 4
	}
	return &Executor{
		source:  source,
		ranker:  ranker.New(ranker.TFMode(cfg.TFMode)),
		cache:   c,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Limit clamps a requested result count: non-positive selects the default
// and anything above the configured maximum is capped.
func (e *Executor) Limit(requested int) int {
	if requested <= 0 {
		return e.cfg.DefaultLimit
	}
	return min(requested, e.cfg.MaxResults)
}

// Search runs query against the current snapshot and returns at most topK
// hits. The only error is a *parser.QuerySyntaxError.
func (e *Executor) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	return e.search(ctx, e.source.Snapshot(), query, e.Limit(topK))
}

// SearchBatch runs every query against the same snapshot, at most
// MaxConcurrentQueries at a time. Items come back in query order.
func (e *Executor) SearchBatch(ctx context.Context, queries []string, topK int) ([]BatchItem, error) {
	snap := e.source.Snapshot()
	limit := e.Limit(topK)
	items := make([]BatchItem, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentQueries)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.search(gctx, snap, q, limit)
			items[i] = BatchItem{Query: q, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running batch search: %w", err)
	}
	return items, nil
}

func (e *Executor) search(ctx context.Context, snap *indexer.Snapshot, query string, topK int) (*SearchResult, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "search")
	defer func() {
		span.End()
		span.Log(ctx, e.logger, slog.LevelDebug)
	}()

	_, parseSpan := tracing.Start(ctx, "parse")
	q, err := parser.Parse(query, snap.Index.Analyzer())
	parseSpan.End()
	if err != nil {
		e.countQuery(resultSyntaxError)
		return nil, err
	}

	status := cacheNone
	var res *SearchResult
	if e.cache == nil || q.Empty() {
		res = e.execute(ctx, snap, q, topK)
	} else {
		key := cache.Key(q.String(), topK, snap.Generation)
		var hit bool
		res, hit, err = e.cache.GetOrCompute(ctx, key, func() (*SearchResult, bool, error) {
			r := e.execute(ctx, snap, q, topK)
			return r, !r.TimedOut, nil
		})
		if err != nil {
			return nil, fmt.Errorf("searching %q: %w", query, err)
		}
		status = cacheMiss
		if hit {
			status = cacheHit
		}
		span.SetAttr("cache_status", status)
		// Entries are shared by every query with the same canonical form.
		shared := *res
		shared.Query = q.Raw
		shared.DroppedTerms = q.Dropped
		res = &shared
	}

	elapsed := time.Since(start)
	switch {
	case res.TimedOut:
		e.countQuery(resultTimeout)
	case res.TotalHits == 0:
		e.countQuery(resultZero)
	default:
		e.countQuery(resultHit)
	}
	if e.metrics != nil {
		e.metrics.SearchLatency.WithLabelValues(status).Observe(elapsed.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(res.TotalHits))
	}
	e.logger.Debug("query executed",
		"query", query,
		"canonical", res.Canonical,
		"total_hits", res.TotalHits,
		"returned", len(res.Results),
		"cache_status", status,
		"timed_out", res.TimedOut,
		"latency_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// execute evaluates and ranks q. Running out of time is not an error: the
// result comes back empty with TimedOut set.
func (e *Executor) execute(ctx context.Context, snap *indexer.Snapshot, q *parser.Query, topK int) *SearchResult {
	res := &SearchResult{
		Query:        q.Raw,
		Canonical:    q.String(),
		Results:      []Hit{},
		DroppedTerms: q.Dropped,
		Generation:   snap.Generation,
	}
	if q.Empty() {
		return res
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ix := snap.Index
	_, evalSpan := tracing.Start(ctx, "evaluate")
	matched, err := evaluator.New(ix).Evaluate(ctx, q.Root)
	evalSpan.End()
	if err != nil {
		return e.timedOut(res, err)
	}
	if len(matched.Expansions) > 0 {
		res.Expansions = matched.Expansions
	}
	res.TotalHits = int(matched.Docs.GetCardinality())
	if res.TotalHits == 0 {
		return res
	}

	terms := ScoringTerms(q.Root, matched.Expansions)
	_, rankSpan := tracing.Start(ctx, "rank")
	defer rankSpan.End()
	rankSpan.SetAttr("candidates", res.TotalHits)
	rankSpan.SetAttr("terms", len(terms))
	scored, err := e.ranker.Score(ctx, ix, matched.Docs, terms)
	if err != nil {
		return e.timedOut(res, err)
	}
	for _, doc := range ranker.TopK(scored, topK) {
		res.Results = append(res.Results, Hit{
			DocID:            doc.DocID,
			Score:            doc.Score,
			RawScore:         doc.RawScore,
			MatchedPositions: matchedPositions(ix, doc.DocID, terms),
		})
	}
	return res
}

func (e *Executor) timedOut(res *SearchResult, err error) *SearchResult {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		e.logger.Error("query evaluation failed", "query", res.Query, "error", err)
	}
	res.TotalHits = 0
	res.Results = []Hit{}
	res.TimedOut = true
	return res
}

func (e *Executor) countQuery(resultType string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

// ScoringTerms returns the terms that contribute to relevance: those of
// every leaf not beneath a NOT, with wildcards replaced by their
// expansions. Each term appears once, in first-seen order.
func ScoringTerms(root parser.Node, expansions map[string][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(terms ...string) {
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, leaf := range parser.Leaves(root) {
		if leaf.Negated {
			continue
		}
		switch n := leaf.Node.(type) {
		case *parser.Term:
			add(n.Term)
		case *parser.Phrase:
			add(n.Terms...)
		case *parser.Wildcard:
			add(expansions[n.Pattern]...)
		}
	}
	return out
}

func matchedPositions(ix *index.Index, id index.DocID, terms []string) map[string][]int {
	out := make(map[string][]int)
	for _, term := range terms {
		if p, ok := ix.Posting(term, id); ok {
			out[term] = slices.Clone(p.Positions)
		}
	}
	return out
}
