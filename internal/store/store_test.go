package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "docs.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := Document{ID: 7, Title: "Go", Body: "inverted index", Metadata: map[string]string{"lang": "en"}}
			require.NoError(t, s.Put(ctx, doc))

			got, err := s.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, doc, got)

			_, err = s.Get(ctx, 99)
			assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
		})
	}
}

func TestStore_PutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, Document{ID: 1, Title: "a", Body: "b"}))
			require.NoError(t, s.Put(ctx, Document{ID: 1, Title: "a2", Body: "b2"}))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			got, err := s.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "a2", got.Title)
			assert.Nil(t, got.Metadata)
		})
	}
}

func TestStore_BatchAndSince(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			docs := []Document{
				{ID: 3, Title: "three"},
				{ID: 1, Title: "one"},
				{ID: 2, Title: "two"},
			}
			require.NoError(t, s.PutBatch(ctx, docs))
			require.NoError(t, s.PutBatch(ctx, nil))

			since, err := s.Since(ctx, 2)
			require.NoError(t, err)
			require.Len(t, since, 2)
			assert.Equal(t, index.DocID(2), since[0].ID)
			assert.Equal(t, index.DocID(3), since[1].ID)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestMemoryStore_CopiesMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	meta := map[string]string{"k": "v"}
	require.NoError(t, s.Put(ctx, Document{ID: 1, Metadata: meta}))

	meta["k"] = "changed"
	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Metadata["k"])
}

func TestDocumentText(t *testing.T) {
	assert.Equal(t, "Title body words", Document{Title: "Title", Body: "body words"}.Text())
}

func TestDialectRebind(t *testing.T) {
	q := "SELECT * FROM documents WHERE id = ? AND title = ?"

	assert.Equal(t, "SELECT * FROM documents WHERE id = $1 AND title = $2", Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Indexer.DataDir = filepath.Join(t.TempDir(), "nested")

	cfg.Store.Driver = "memory"
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Store.Driver = "sqlite"
	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	cfg.Store.Driver = "cassandra"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}
