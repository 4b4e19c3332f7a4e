package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/resilience"
)

// Guarded wraps a Store with a per-call timeout and a circuit breaker. A
// missing item is an answer, not a failure, and never trips the breaker.
// Neither does a caller that cancels or runs out of its own deadline.
type Guarded struct {
	store   Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// GuardConfig configures NewGuarded. OnStateChange is passed to the breaker.
type GuardConfig struct {
	Name             string
	QueryTimeout     time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
	OnStateChange    func(name string, from, to resilience.State)
}

// NewGuarded decorates store.
func NewGuarded(store Store, cfg GuardConfig) *Guarded {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	return &Guarded{
		store: store,
		breaker: resilience.NewCircuitBreaker(cfg.Name, resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     cfg.ResetTimeout,
			OnStateChange:    cfg.OnStateChange,
		}),
		timeout: cfg.QueryTimeout,
	}
}

// BreakerState reports the breaker state for health checks.
func (g *Guarded) BreakerState() resilience.State {
	return g.breaker.GetState()
}

func (g *Guarded) FetchAll(ctx context.Context) ([]Item, error) {
	var items []Item
	err := g.breaker.Execute(func() error {
		var err error
		items, err = resilience.Call(ctx, g.timeout, "catalog.fetch_all", g.store.FetchAll)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching catalog snapshot: %w", err)
	}
	return items, nil
}

func (g *Guarded) FetchByID(ctx context.Context, id int64) (Item, error) {
	var (
		item     Item
		notFound bool
	)
	err := g.breaker.Execute(func() error {
		var err error
		item, err = resilience.Call(ctx, g.timeout, "catalog.fetch_by_id", func(ctx context.Context) (Item, error) {
			return g.store.FetchByID(ctx, id)
		})
		if errors.Is(err, ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if notFound {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("fetching item %d: %w", id, err)
	}
	return item, nil
}

func (g *Guarded) Query(ctx context.Context, p Predicate, limit int) ([]Item, error) {
	var items []Item
	err := g.breaker.Execute(func() error {
		var err error
		items, err = resilience.Call(ctx, g.timeout, "catalog.query", func(ctx context.Context) ([]Item, error) {
			return g.store.Query(ctx, p, limit)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	return items, nil
}

// classify decides what a failed call tells the breaker. Once the caller's
// context is done the backend was not given a fair chance, so the error is
// neutral. Hitting the per-call limit is a backend timeout and counts.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return resilience.Neutral(err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return err
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (g *Guarded) Ping(ctx context.Context) error {
	return resilience.WithTimeout(ctx, g.timeout, "catalog.ping", g.store.Ping)
}
