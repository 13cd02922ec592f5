// Package cache memoises search results. Lookups go to an in-process LRU
// first and then, when configured, to a shared Redis tier guarded by a
// circuit breaker. Concurrent misses for the same key are collapsed into a
// single computation.
//
// Keys include the index generation, so an entry can never describe an
// older index than the one being queried and nothing is ever invalidated.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/resilience"
)

const (
	keyPrefix = "search:"

	tierLocal  = "local"
	tierRemote = "redis"

	defaultSize          = 1024
	defaultRemoteTimeout = 100 * time.Millisecond
)

// Remote is the shared tier. Get returns pkgredis.ErrMiss for absent keys.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Options struct {
	Size          int
	Remote        Remote
	TTL           time.Duration
	RemoteTimeout time.Duration
	Metrics       *metrics.Metrics
}

// Cache is safe for concurrent use. Cached values are shared between
// callers and must be treated as read-only.
type Cache[V any] struct {
	local         *lru.Cache[string, V]
	remote        Remote
	breaker       *resilience.CircuitBreaker
	ttl           time.Duration
	remoteTimeout time.Duration
	group         singleflight.Group
	metrics       *metrics.Metrics
	logger        *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts lookups since construction.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

func New[V any](opts Options) (*Cache[V], error) {
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	local, err := lru.New[string, V](opts.Size)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	c := &Cache[V]{
		local:         local,
		remote:        opts.Remote,
		ttl:           opts.TTL,
		remoteTimeout: opts.RemoteTimeout,
		metrics:       opts.Metrics,
		logger:        slog.Default().With("component", "query-cache"),
	}
	if c.remote != nil {
		c.breaker = resilience.NewCircuitBreaker("cache-redis", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange: func(name string, to resilience.State) {
				if c.metrics != nil {
					c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
	}
	return c, nil
}

// Key derives the cache key for a canonical query rendering, result limit
// and index generation.
func Key(canonical string, limit int, generation uint64) string {
	h := sha256.New()
	h.Write([]byte(canonical))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(limit)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(generation, 10)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get looks key up in the local tier, then the remote one. A remote hit
// is copied into the local tier.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := c.local.Get(key); ok {
		c.recordHit(tierLocal)
		return v, true
	}
	if v, ok := c.getRemote(ctx, key); ok {
		c.local.Add(key, v)
		c.recordHit(tierRemote)
		return v, true
	}
	c.recordMiss()
	var zero V
	return zero, false
}

// Set stores v in both tiers. Remote failures are logged and otherwise
// ignored.
func (c *Cache[V]) Set(ctx context.Context, key string, v V) {
	c.local.Add(key, v)
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.remoteTimeout, "cache.set", func(ctx context.Context) error {
			return c.remote.Set(ctx, key, data, c.ttl)
		})
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key or computes it. Concurrent
// callers for the same key share one computation. compute reports whether
// its value may be cached; failed computations are never cached. The
// boolean result reports a cache hit.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func() (V, bool, error)) (V, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.local.Get(key); ok {
			return v, nil
		}
		v, cacheable, err := compute()
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.Set(ctx, key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return val.(V), false, nil
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.local.Len(),
	}
}

// Purge empties the local tier.
func (c *Cache[V]) Purge() {
	c.local.Purge()
}

func (c *Cache[V]) getRemote(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.remote == nil {
		return zero, false
	}
	var data []byte
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.remoteTimeout, "cache.get", func(ctx context.Context) error {
			var err error
			data, err = c.remote.Get(ctx, key)
			if errors.Is(err, pkgredis.ErrMiss) {
				return nil
			}
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return zero, false
	}
	if data == nil {
		return zero, false
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *Cache[V]) recordHit(tier string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *Cache[V]) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
