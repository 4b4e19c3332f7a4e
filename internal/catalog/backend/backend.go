// Package backend opens the record store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	catalogpg "github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog/postgres"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog/sqlite"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/resilience"
)

// Open connects to the configured backend. Postgres connections are retried
// with backoff since the database may still be starting.
func Open(ctx context.Context, cfg *config.Config) (catalog.Repository, error) {
	switch cfg.Catalog.Driver {
	case "postgres":
		client, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		slog.Info("catalog backend: postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return catalogpg.New(client), nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite catalog: %w", err)
		}
		slog.Info("catalog backend: sqlite", "path", store.Path())
		return store, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
}

// Guard wraps store with the configured timeout and circuit breaker and
// reports breaker state to m.
func Guard(store catalog.Store, cfg config.CatalogConfig, m *metrics.Metrics) *catalog.Guarded {
	m.CircuitBreakerState.WithLabelValues("catalog").Set(float64(resilience.StateClosed))
	return catalog.NewGuarded(store, catalog.GuardConfig{
		Name:             "catalog",
		QueryTimeout:     cfg.QueryTimeout,
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}
