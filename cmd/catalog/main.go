// Command catalog starts the catalog admin HTTP service.
//
// The service creates, lists and deletes game items in the record store and
// publishes a catalog event for every change so search replicas can rebuild
// their prefix index. When Redis is reachable it also drops the search result
// cache the replicas share.
// The service is meant to sit behind the storefront's authenticated admin
// gateway.
//
// Usage:
//
//	go run ./cmd/catalog [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog/backend"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/redis"
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
	slog.Info("starting catalog service", "port", cfg.Admin.Port, "catalog_driver", cfg.Catalog.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	repo, err := backend.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		slog.Error("failed to migrate catalog schema", "error", err)
		os.Exit(1)
	}

	var events kafka.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogEvents)
		defer producer.Close()
		events = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CatalogEvents)
	}

	pub := publisher.New(repo, events, m)
	if redisClient, err := pkgredis.NewClient(ctx, cfg.Redis); err != nil {
		slog.Warn("redis unavailable, search cache not invalidated on writes", "error", err)
	} else {
		defer redisClient.Close()
		pub.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, m))
		slog.Info("search cache invalidation enabled", "addr", cfg.Redis.Addr)
	}
	h := handler.New(pub)

	checker := health.NewChecker(2 * time.Second)
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		if err := repo.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler(prometheus.DefaultGatherer))

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
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
	slog.Info("catalog service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog service stopped")
}
