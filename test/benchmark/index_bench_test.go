// Package benchmark contains Go benchmarks for the inverted index, the
// indexer engine and the search pipeline, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
)

var corpusTerms = []string{"distributed", "search", "analytics", "platform", "indexing", "query", "engine", "ranking"}

func corpusText(i int) string {
	n := len(corpusTerms)
	return fmt.Sprintf("document about %s and %s covering %s %s %s in production systems",
		corpusTerms[i%n], corpusTerms[(i+1)%n], corpusTerms[i%n], corpusTerms[(i+2)%n], corpusTerms[(i+3)%n])
}

func buildIndex(b *testing.B, docs int) *index.Index {
	b.Helper()
	ix := index.New(nil)
	for i := range docs {
		if _, err := ix.AddDocument(index.DocID(i), corpusText(i)); err != nil {
			b.Fatal(err)
		}
	}
	return ix
}

// BenchmarkIndexAdd measures per-document insert throughput into the
// inverted index.
func BenchmarkIndexAdd(b *testing.B) {
	ix := index.New(nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.AddDocument(index.DocID(i), corpusText(i)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndexDocSetParallel measures concurrent single-term lookups
// over 10 000 documents.
func BenchmarkIndexDocSetParallel(b *testing.B) {
	ix := buildIndex(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = ix.DocSet("search")
		}
	})
}

// BenchmarkIndexClone measures the copy-on-write clone plus the first write,
// which is what every engine publication pays.
func BenchmarkIndexClone(b *testing.B) {
	ix := buildIndex(b, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := ix.Clone()
		if _, err := c.AddDocument(index.DocID(5000+i), "fresh document about search"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndexWildcard measures prefix, suffix and general pattern
// expansion over the sorted vocabulary.
func BenchmarkIndexWildcard(b *testing.B) {
	ix := index.New(nil)
	for i := range 20000 {
		if _, err := ix.AddDocument(index.DocID(i), fmt.Sprintf("term%d word%dx", i, i)); err != nil {
			b.Fatal(err)
		}
	}
	for _, pattern := range []string{"term12*", "*9x", "w*d1*x"} {
		b.Run(pattern, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ix.TermsMatching(pattern)
			}
		})
	}
}

// BenchmarkEngineAdd measures engine indexing throughput (clone, apply,
// store, publish) at various pre-loaded corpus sizes.
func BenchmarkEngineAdd(b *testing.B) {
	for _, preload := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			ctx := context.Background()
			engine, err := indexer.NewEngine(ctx, config.IndexerConfig{DataDir: b.TempDir(), PersistInterval: time.Hour}, nil, nil, nil)
			if err != nil {
				b.Fatal(err)
			}
			defer engine.Close()

			docs := make([]store.Document, preload)
			for i := range docs {
				docs[i] = store.Document{Title: "preload", Body: corpusText(i)}
			}
			if _, err := engine.AddBatch(ctx, docs); err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := engine.AddDocument(ctx, store.Document{Title: "benchmark", Body: corpusText(i)}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEnginePersist measures writing a snapshot of 10 000 documents.
func BenchmarkEnginePersist(b *testing.B) {
	ctx := context.Background()
	engine, err := indexer.NewEngine(ctx, config.IndexerConfig{DataDir: b.TempDir(), KeepSnapshots: 1}, nil, nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer engine.Close()
	docs := make([]store.Document, 10000)
	for i := range docs {
		docs[i] = store.Document{Body: corpusText(i)}
	}
	if _, err := engine.AddBatch(ctx, docs); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Persist(); err != nil {
			b.Fatal(err)
		}
	}
}
