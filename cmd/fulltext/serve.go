package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/redis"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search and document HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs until ctx is cancelled. On shutdown the HTTP server drains,
// the Kafka consumer stops and the index is persisted one last time.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("starting fulltext server", "port", cfg.Server.Port, "store_driver", cfg.Store.Driver)

	m := metrics.NewWithProcessCollectors(prometheus.NewRegistry())
	eng, err := a.openEngine(ctx, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("closing index failed", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("document_store", eng.Store().Ping)

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, shared cache tier disabled", "error", err)
		} else {
			defer redisClient.Close()
			checker.RegisterOptional("redis", redisClient.Ping)
			slog.Info("redis cache tier enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var queryCache *cache.Cache[*executor.SearchResult]
	if cfg.Cache.Enabled {
		opts := cache.Options{Size: cfg.Cache.Size, TTL: cfg.Redis.CacheTTL, Metrics: m}
		if redisClient != nil {
			opts.Remote = redisClient
		}
		queryCache, err = cache.New[*executor.SearchResult](opts)
		if err != nil {
			return fmt.Errorf("creating query cache: %w", err)
		}
	}

	exec := executor.New(eng, cfg.Search, queryCache, m)

	var wg sync.WaitGroup
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pub *publisher.Publisher
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.DocumentIngest
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		pub = publisher.New(producer)

		kc := kafka.NewConsumer(cfg.Kafka, topic, consumer.HandleMessage(eng, m))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kc.Start(serveCtx); err != nil {
				slog.Error("ingest consumer stopped", "error", err)
			}
		}()
		slog.Info("kafka ingestion enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}

	persistDone := eng.StartPersistLoop(serveCtx)

	mux := http.NewServeMux()
	searchhandler.New(exec, eng, queryCache, cfg.Search.SnippetRadius).Register(mux)
	ingesthandler.New(eng, pub).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port > 0 {
			shutdown := m.StartServer(cfg.Metrics.Port)
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					slog.Error("metrics server shutdown error", "error", err)
				}
			}()
		} else {
			mux.Handle("GET /metrics", m.Handler())
		}
	}

	var limiter *middleware.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		limiter.StartCleanup(serveCtx, 5*time.Minute)
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RateLimit(limiter)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("fulltext server listening", "addr", server.Addr)
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	cancel()
	wg.Wait()
	<-persistDone
	slog.Info("fulltext server stopped", "generation", eng.Snapshot().Generation)
	if serveErr != nil {
		return fmt.Errorf("serving http: %w", serveErr)
	}
	return nil
}
