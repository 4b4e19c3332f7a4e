// Command searcher starts the storefront search HTTP service.
//
// It builds the prefix index from the catalog at startup, serves autocomplete,
// substring, hybrid and platform search, and rebuilds the index on a timer, on
// request, or when catalog events arrive over Kafka. Results are cached in
// Redis when it is reachable.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog/backend"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/prefixindex"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "catalog_driver", cfg.Catalog.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	repo, err := backend.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	store := backend.Guard(repo, cfg.Catalog, m)

	manager := indexer.NewManager(store, cfg.Index, m)
	if _, err := manager.Rebuild(ctx); err != nil {
		// serve substring search with an empty index until a rebuild succeeds
		slog.Error("initial index build failed", "error", err)
	}
	go manager.StartRebuildLoop(ctx, cfg.Index.RebuildInterval)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		manager.OnSwap(func(*prefixindex.Index) {
			invalidateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := queryCache.Invalidate(invalidateCtx); err != nil {
				slog.Warn("cache invalidation after index swap failed", "error", err)
			}
		})
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, 10000, 100, time.Second)
		collector.Start(ctx)
		tracker = collector

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(aggregator))
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()

		hostname, _ := os.Hostname()
		catalogConsumer := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CatalogEvents,
			cfg.Kafka.ConsumerGroup+"-"+hostname,
			consumer.HandleCatalogEvent(manager, m),
		))
		go func() {
			if err := catalogConsumer.Start(ctx); err != nil {
				slog.Error("catalog consumer error", "error", err)
			}
		}()
		slog.Info("kafka wiring enabled",
			"catalog_topic", cfg.Kafka.Topics.CatalogEvents,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	} else {
		slog.Info("kafka disabled, analytics aggregated in-process")
	}

	checker := health.NewChecker(2 * time.Second)
	checker.Register("prefix_index", func(ctx context.Context) health.ComponentHealth {
		stats := manager.Stats()
		if stats.BuiltAt.IsZero() {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: apperrors.ErrIndexNotReady.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d items indexed", stats.Items)}
	})
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		if err := store.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		if state := store.BreakerState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	eng := engine.New(manager, store, cfg.Search, m)
	h := handler.New(eng, manager, cfg.Search, handler.Options{
		Cache:   queryCache,
		Tracker: tracker,
		Tracing: cfg.Tracing.Enabled,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if rl := cfg.Server.RateLimit; rl.Requests > 0 {
		limiter := ratelimit.New(rl.Requests, rl.Window)
		go limiter.StartSweeper(ctx, 5*time.Minute)
		chain = ratelimit.Middleware(limiter, m)(chain)
		slog.Info("per-client rate limit enabled", "requests", rl.Requests, "window", rl.Window)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.StorefrontCORSConfig(cfg.Server.AllowOrigins))(chain)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
