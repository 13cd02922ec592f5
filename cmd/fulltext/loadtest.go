package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var defaultLoadQueries = []string{
	"inverted index",
	"search engine",
	`"full text"`,
	"ranking OR scoring",
	"token*",
	"query NOT parser",
	"document ingestion",
	"cache AND snapshot",
}

type loadTestConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	limit       int
	queries     []string
}

// loadStats collects per-request outcomes from all workers.
type loadStats struct {
	total   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{latencies: make([]time.Duration, 0, 1<<14), codes: make(map[int]int64)}
}

func (s *loadStats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[status]++
	s.mu.Unlock()
}

func newLoadTestCmd() *cobra.Command {
	cfg := loadTestConfig{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send search queries to a running server and report latency",
		Args:  cobra.NoArgs,
		// The target server's config is irrelevant here.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(cfg.queries) == 0 {
				cfg.queries = defaultLoadQueries
			}
			if cfg.concurrency <= 0 {
				return fmt.Errorf("concurrency must be positive")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target %s, %d workers, %s, %d queries\n", cfg.baseURL, cfg.concurrency, cfg.duration, len(cfg.queries))
			stats := runLoadTest(cmd.Context(), cfg)
			report(out, stats, cfg.duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the server running?")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the server")
	cmd.Flags().IntVar(&cfg.concurrency, "concurrency", 10, "concurrent workers")
	cmd.Flags().DurationVar(&cfg.duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.limit, "limit", 10, "results requested per query")
	cmd.Flags().StringArrayVarP(&cfg.queries, "query", "q", nil, "query to send (repeatable)")
	return cmd
}

func runLoadTest(ctx context.Context, cfg loadTestConfig) *loadStats {
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.queries[i%len(cfg.queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.baseURL, url.QueryEscape(q), cfg.limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func report(w io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	fmt.Fprintf(w, "\nrequests %d  ok %d  errors %d\n", total, stats.success.Load(), stats.errors.Load())
	if total > 0 {
		fmt.Fprintf(w, "error rate %.2f%%  throughput %.1f req/s\n",
			float64(stats.errors.Load())/float64(total)*100, float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  HTTP %d: %d\n", code, stats.codes[code])
	}
	stats.mu.Unlock()

	if len(latencies) == 0 {
		return
	}
	slices.Sort(latencies)
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	fmt.Fprintf(w, "latency min %s  avg %s  p50 %s  p90 %s  p99 %s  max %s\n",
		latencies[0],
		sum/time.Duration(len(latencies)),
		percentile(latencies, 50),
		percentile(latencies, 90),
		percentile(latencies, 99),
		latencies[len(latencies)-1],
	)
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
