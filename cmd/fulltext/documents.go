package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/validator"
)

const maxJSONLine = 4 << 20

// readDocuments loads ingest requests from paths, in argument order. "-"
// reads stdin and may appear once. A plain file becomes one document titled after its base
// name; with jsonl every non-blank line is a JSON IngestRequest. Every
// request is validated.
func readDocuments(ctx context.Context, paths []string, jsonl bool, stdin io.Reader) ([]ingestion.IngestRequest, error) {
	batches := make([][]ingestion.IngestRequest, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if path == "-" {
				reqs, err := parseInput("stdin", stdin, jsonl)
				batches[i] = reqs
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()
			reqs, err := parseInput(path, f, jsonl)
			if err != nil {
				return err
			}
			batches[i] = reqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []ingestion.IngestRequest
	for _, batch := range batches {
		out = append(out, batch...)
	}
	return out, nil
}

func parseInput(name string, r io.Reader, jsonl bool) ([]ingestion.IngestRequest, error) {
	if !jsonl {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		req := ingestion.IngestRequest{Title: title, Body: string(data)}
		if err := validator.ValidateIngestRequest(&req); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return []ingestion.IngestRequest{req}, nil
	}

	var out []ingestion.IngestRequest
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLine)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var req ingestion.IngestRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return nil, fmt.Errorf("%s:%d: decoding document: %w", name, line, err)
		}
		if err := validator.ValidateIngestRequest(&req); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		out = append(out, req)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return out, nil
}
