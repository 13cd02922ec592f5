package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
)

// MemoryStore keeps documents in a map. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[index.DocID]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[index.DocID]Document)}
}

func (m *MemoryStore) Put(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (m *MemoryStore) PutBatch(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.docs[doc.ID] = cloneDocument(doc)
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id index.DocID) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, notFound(id)
	}
	return cloneDocument(doc), nil
}

func (m *MemoryStore) Since(_ context.Context, from index.DocID) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for id, doc := range m.docs {
		if id >= from {
			out = append(out, cloneDocument(doc))
		}
	}
	slices.SortFunc(out, func(a, b Document) int {
		return int(int64(a.ID) - int64(b.ID))
	})
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func cloneDocument(doc Document) Document {
	doc.Metadata = maps.Clone(doc.Metadata)
	return doc
}
