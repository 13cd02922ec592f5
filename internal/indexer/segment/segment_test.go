package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

func sampleIndex(t *testing.T) (*index.Index, Meta) {
	t.Helper()
	ix := index.New(nil)
	for id, text := range map[index.DocID]string{
		1: "distributed search engine",
		2: "search analytics platform",
		3: "",
	} {
		_, err := ix.AddDocument(id, text)
		require.NoError(t, err)
	}
	meta := Meta{Stemmer: "none", NextID: 4, Generation: 3}
	for d := range ix.Documents() {
		meta.Docs = append(meta.Docs, d)
	}
	return ix, meta
}

// fixedClock returns successive instants one second apart so file names
// sort in write order.
func fixedClock() func() time.Time {
	ts := time.Unix(1700000000, 0)
	return func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	ix, meta := sampleIndex(t)

	name, err := NewWriter(dir).Write(ix.Snapshot(), meta)
	require.NoError(t, err)

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, len(ix.Vocabulary()), r.Terms())
	assert.Equal(t, uint32(3), r.DocCount())
	assert.Equal(t, meta, r.Meta())

	postings, err := r.Search("search")
	require.NoError(t, err)
	assert.Equal(t, ix.Postings("search"), postings)

	missing, err := r.Search("nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReadFile_RebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	ix, meta := sampleIndex(t)
	name, err := NewWriter(dir).Write(ix.Snapshot(), meta)
	require.NoError(t, err)

	snap, err := ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	loaded, err := index.Load(nil, snap.Entries, snap.Meta.Docs)
	require.NoError(t, err)
	assert.Equal(t, ix.Stats(), loaded.Stats())
	assert.Equal(t, ix.Postings("engine"), loaded.Postings("engine"))
	assert.True(t, loaded.Contains(3))
}

func TestWrite_EmptyIndex(t *testing.T) {
	dir := t.TempDir()

	name, err := NewWriter(dir).Write(nil, Meta{Stemmer: "none", NextID: 1})
	require.NoError(t, err)

	snap, err := ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
	assert.Equal(t, uint32(1), snap.Meta.NextID)
}

func TestOpenReader_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	ix, meta := sampleIndex(t)
	name, err := NewWriter(dir).Write(ix.Snapshot(), meta)
	require.NoError(t, err)
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[HeaderSize+2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = OpenReader(path)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotCorrupt)
}

func TestOpenReader_RejectsTruncatedAndForeignFiles(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.spdx")
	require.NoError(t, os.WriteFile(short, []byte("tiny"), 0644))
	_, err := OpenReader(short)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotCorrupt)

	foreign := filepath.Join(dir, "foreign.spdx")
	require.NoError(t, os.WriteFile(foreign, make([]byte, HeaderSize+FooterSize), 0644))
	_, err = OpenReader(foreign)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotCorrupt)
}

func TestLoadLatest_SkipsDamagedNewest(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = fixedClock()
	ix, meta := sampleIndex(t)

	_, err := w.Write(ix.Snapshot(), meta)
	require.NoError(t, err)
	meta.Generation = 9
	newest, err := w.Write(ix.Snapshot(), meta)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(filepath.Join(dir, newest), 10))

	snap, err := LoadLatest(dir)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(3), snap.Meta.Generation)
}

func TestLoadLatest_EmptyDir(t *testing.T) {
	snap, err := LoadLatest(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPrune_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = fixedClock()
	ix, meta := sampleIndex(t)

	var names []string
	for range 4 {
		name, err := w.Write(ix.Snapshot(), meta)
		require.NoError(t, err)
		names = append(names, name)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seg_0000000000000000001.spdx.tmp"), nil, 0644))

	removed, err := Prune(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	files, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, names[2]),
		filepath.Join(dir, names[3]),
	}, files)
}
