// Package indexer owns the live index. Writers are serialised and build a
// copy-on-write clone of the published index; readers grab the current
// Snapshot without locking and keep using it for as long as they like.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
)

// ErrStemmerMismatch is returned when the newest snapshot on disk was built
// with a different stemmer than the configured analyzer.
var ErrStemmerMismatch = errors.New("snapshot stemmer does not match analyzer")

// Snapshot is an immutable view of the index. Generation increases by one
// with every publication.
type Snapshot struct {
	Index      *index.Index
	Generation uint64
	NextID     index.DocID
}

type Engine struct {
	mu       sync.Mutex
	current  atomic.Pointer[Snapshot]
	analyzer *tokenizer.Analyzer
	store    store.Store
	writer   *segment.Writer
	cfg      config.IndexerConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger

	persistMu    sync.Mutex
	persistedGen atomic.Uint64
}

// NewEngine restores the newest valid snapshot from cfg.DataDir, replays
// any stored documents the snapshot does not cover yet, and publishes the
// result. A nil metrics value registers collectors on a private registry.
func NewEngine(ctx context.Context, cfg config.IndexerConfig, analyzer *tokenizer.Analyzer, st store.Store, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	e := &Engine{
		analyzer: analyzer,
		store:    st,
		writer:   segment.NewWriter(cfg.DataDir),
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}
	snap, err := e.recover(ctx)
	if err != nil {
		return nil, err
	}
	e.publish(snap)
	e.persistedGen.Store(snap.Generation)
	return e, nil
}

func (e *Engine) recover(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Index: index.New(e.analyzer)}

	saved, err := segment.LoadLatest(e.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if saved != nil {
		if saved.Meta.Stemmer != e.analyzer.StemmerName() {
			return nil, fmt.Errorf("%w: %s built with %q, analyzer uses %q",
				ErrStemmerMismatch, saved.Path, saved.Meta.Stemmer, e.analyzer.StemmerName())
		}
		ix, err := index.Load(e.analyzer, saved.Entries, saved.Meta.Docs)
		if err != nil {
			return nil, fmt.Errorf("rebuilding index from %s: %w", saved.Path, err)
		}
		snap = &Snapshot{
			Index:      ix,
			Generation: saved.Meta.Generation,
			NextID:     index.DocID(saved.Meta.NextID),
		}
		e.logger.Info("loaded snapshot",
			"path", saved.Path,
			"documents", ix.DocumentCount(),
			"terms", ix.TermCount(),
			"generation", snap.Generation,
		)
	}

	pending, err := e.store.Since(ctx, snap.NextID)
	if err != nil {
		return nil, fmt.Errorf("reading documents to replay: %w", err)
	}
	if len(pending) == 0 {
		return snap, nil
	}
	ix := snap.Index
	nextID := snap.NextID
	for _, doc := range pending {
		if _, err := ix.AddDocument(doc.ID, doc.Text()); err != nil {
			return nil, fmt.Errorf("replaying document %d: %w", doc.ID, err)
		}
		nextID = doc.ID + 1
	}
	e.logger.Info("replayed stored documents", "count", len(pending), "next_id", nextID)
	return &Snapshot{Index: ix, Generation: snap.Generation + 1, NextID: nextID}, nil
}

// Snapshot returns the currently published index. It never blocks.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.analyzer
}

func (e *Engine) Store() store.Store {
	return e.store
}

// AddDocument assigns the next id to doc, stores it, indexes it and
// publishes a new snapshot. Any id already set on doc is ignored.
func (e *Engine) AddDocument(ctx context.Context, doc store.Document) (index.DocID, error) {
	ids, err := e.AddBatch(ctx, []store.Document{doc})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AddBatch indexes docs into a single clone and publishes once. Either all
// documents become visible or none do.
func (e *Engine) AddBatch(ctx context.Context, docs []store.Document) ([]index.DocID, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.current.Load()
	next := cur.Index.Clone()
	nextID := cur.NextID
	ids := make([]index.DocID, len(docs))
	stored := make([]store.Document, len(docs))
	tokens := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("indexing batch: %w", err)
		}
		doc.ID = nextID
		n, err := next.AddDocument(doc.ID, doc.Text())
		if err != nil {
			return nil, fmt.Errorf("indexing document %d: %w", doc.ID, err)
		}
		tokens += n
		ids[i] = doc.ID
		stored[i] = doc
		nextID++
	}

	var err error
	if len(stored) == 1 {
		err = e.store.Put(ctx, stored[0])
	} else {
		err = e.store.PutBatch(ctx, stored)
	}
	if err != nil {
		return nil, fmt.Errorf("storing documents: %w", err)
	}

	e.publish(&Snapshot{Index: next, Generation: cur.Generation + 1, NextID: nextID})
	e.metrics.DocsIndexedTotal.Add(float64(len(docs)))
	e.logger.Debug("documents indexed",
		"count", len(docs),
		"first_doc_id", ids[0],
		"token_count", tokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return ids, nil
}

// Get returns the stored form of a document.
func (e *Engine) Get(ctx context.Context, id index.DocID) (store.Document, error) {
	if !e.Snapshot().Index.Contains(id) {
		return store.Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	return e.store.Get(ctx, id)
}

func (e *Engine) publish(snap *Snapshot) {
	e.current.Store(snap)
	e.metrics.IndexDocuments.Set(float64(snap.Index.DocumentCount()))
	e.metrics.IndexTerms.Set(float64(snap.Index.TermCount()))
}

// Stats describes the published snapshot.
type Stats struct {
	index.Stats
	Generation          uint64 `json:"generation"`
	PersistedGeneration uint64 `json:"persisted_generation"`
	NextID              uint32 `json:"next_id"`
	Stemmer             string `json:"stemmer"`
}

func (e *Engine) Stats() Stats {
	snap := e.Snapshot()
	return Stats{
		Stats:               snap.Index.Stats(),
		Generation:          snap.Generation,
		PersistedGeneration: e.persistedGen.Load(),
		NextID:              uint32(snap.NextID),
		Stemmer:             e.analyzer.StemmerName(),
	}
}
