package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/segment"
)

// Persist writes the published snapshot to disk and prunes old snapshot
// files. Writers are not blocked while the file is written.
func (e *Engine) Persist() (string, error) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	snap := e.Snapshot()
	start := time.Now()
	meta := segment.Meta{
		Stemmer:    e.analyzer.StemmerName(),
		NextID:     uint32(snap.NextID),
		Generation: snap.Generation,
		Docs:       make([]index.DocStats, 0, snap.Index.DocumentCount()),
	}
	for d := range snap.Index.Documents() {
		meta.Docs = append(meta.Docs, d)
	}
	name, err := e.writer.Write(snap.Index.Snapshot(), meta)
	if err != nil {
		e.metrics.SnapshotPersists.WithLabelValues("error").Inc()
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	e.persistedGen.Store(snap.Generation)
	e.metrics.SnapshotPersists.WithLabelValues("ok").Inc()

	removed, err := segment.Prune(e.cfg.DataDir, e.cfg.KeepSnapshots)
	if err != nil {
		e.logger.Warn("pruning old snapshots failed", "error", err)
	}
	e.logger.Info("snapshot persisted",
		"segment", name,
		"generation", snap.Generation,
		"documents", snap.Index.DocumentCount(),
		"terms", snap.Index.TermCount(),
		"pruned", removed,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return name, nil
}

// Dirty reports whether the published snapshot is newer than the last one
// written to disk.
func (e *Engine) Dirty() bool {
	return e.Snapshot().Generation != e.persistedGen.Load()
}

// StartPersistLoop persists every cfg.PersistInterval when the index has
// changed, and once more when ctx is cancelled. The returned channel is
// closed after the final persist.
func (e *Engine) StartPersistLoop(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	interval := e.cfg.PersistInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("persist loop stopping, performing final persist")
				if e.Dirty() {
					if _, err := e.Persist(); err != nil {
						e.logger.Error("final persist failed", "error", err)
					}
				}
				return
			case <-ticker.C:
				if e.Dirty() {
					if _, err := e.Persist(); err != nil {
						e.logger.Error("periodic persist failed", "error", err)
					}
				}
			}
		}
	}()
	return done
}

// Close persists pending changes and closes the document store.
func (e *Engine) Close() error {
	if e.Dirty() {
		if _, err := e.Persist(); err != nil {
			e.logger.Error("final persist on close failed", "error", err)
		}
	}
	return e.store.Close()
}
