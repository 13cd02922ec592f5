package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "gophers.txt", "Gophers dig burrows.")
	lines := writeFile(t, dir, "docs.jsonl", `{"title":"One","body":"first body"}

{"title":"Two","body":"second body","metadata":{"lang":"en"}}
`)

	reqs, err := readDocuments(context.Background(), []string{plain}, false, nil)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "gophers", reqs[0].Title)
	assert.Equal(t, "Gophers dig burrows.", reqs[0].Body)

	reqs, err = readDocuments(context.Background(), []string{lines, "-"}, true, strings.NewReader(`{"body":"from stdin"}`))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, "Two", reqs[1].Title)
	assert.Equal(t, "en", reqs[1].Metadata["lang"])
	assert.Equal(t, "from stdin", reqs[2].Body)
}

func TestReadDocuments_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readDocuments(context.Background(), []string{filepath.Join(dir, "missing.txt")}, false, nil)
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.jsonl", "{\"title\":\"ok\",\"body\":\"x\"}\n{oops\n")
	_, err = readDocuments(context.Background(), []string{bad}, true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")

	empty := writeFile(t, dir, "empty.jsonl", `{"title":"","body":""}`)
	_, err = readDocuments(context.Background(), []string{empty}, true, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuildAnalyzer(t *testing.T) {
	a, err := buildAnalyzer(config.AnalyzerConfig{MinTokenLength: 2, Stemmer: "snowball"})
	require.NoError(t, err)
	assert.Equal(t, "snowball", a.StemmerName())
	assert.Equal(t, []string{"run"}, a.AnalyzeTerm("running"))

	_, err = buildAnalyzer(config.AnalyzerConfig{Stemmer: "latin"})
	assert.Error(t, err)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestIndexThenSearch(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "indexer:\n  dataDir: "+filepath.Join(dir, "data")+"\nstore:\n  driver: sqlite\nlogging:\n  level: error\n")
	docs := writeFile(t, dir, "docs.jsonl", `{"title":"Lighthouse","body":"The lighthouse guides ships along the coast."}
{"title":"Forest","body":"Quiet pines on the hill."}
`)

	out, err := run(t, "--config", cfgPath, "index", "--jsonl", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 documents")

	out, err = run(t, "--config", cfgPath, "search", "lighthouse")
	require.NoError(t, err)
	assert.Contains(t, out, "1 hits for lighthouse")
	assert.Contains(t, out, "[0] Lighthouse")

	out, err = run(t, "--config", cfgPath, "search", "--format", "json", "pines", "OR", "coast")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_hits": 2`)

	_, err = run(t, "--config", cfgPath, "search", "coast AND")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 6")

	out, err = run(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"stored_documents": 2`)
	assert.Contains(t, out, `"documents": 2`)
}
