// Package indexer owns the lifecycle of the serving prefix index: building
// it from a catalog snapshot in isolation and atomically swapping it in.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/prefixindex"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

// Stats describes the serving index.
type Stats struct {
	Items    int           `json:"items"`
	Nodes    int           `json:"nodes"`
	BuiltAt  time.Time     `json:"built_at"`
	Duration time.Duration `json:"build_duration_ns"`
}

// Manager publishes prefix indexes built from the catalog. Readers call
// Current and never observe a partially built index.
type Manager struct {
	store   catalog.Store
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger

	current   atomic.Pointer[prefixindex.Index]
	lastBuild atomic.Int64
	group     singleflight.Group

	hooksMu sync.Mutex
	hooks   []func(*prefixindex.Index)
}

// NewManager returns a Manager serving an empty index until the first
// Rebuild.
func NewManager(store catalog.Store, cfg config.IndexConfig, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		store:   store,
		metrics: m,
		timeout: cfg.RebuildTimeout,
		logger:  logger.WithComponent("index-manager"),
	}
	mgr.current.Store(prefixindex.Empty())
	return mgr
}

// Current returns the serving index.
func (m *Manager) Current() *prefixindex.Index {
	return m.current.Load()
}

// OnSwap registers fn to run after every successful swap.
func (m *Manager) OnSwap(fn func(*prefixindex.Index)) {
	m.hooksMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hooksMu.Unlock()
}

// Stats describes the serving index.
func (m *Manager) Stats() Stats {
	idx := m.Current()
	return Stats{
		Items:    idx.Len(),
		Nodes:    idx.Nodes(),
		BuiltAt:  idx.BuiltAt(),
		Duration: time.Duration(m.lastBuild.Load()),
	}
}

// Rebuild snapshots the catalog, builds a new index and swaps it in.
// Concurrent calls share one build. On failure the previous index keeps
// serving. The build is detached from ctx cancellation so one caller
// leaving does not fail the others; it is bounded by the rebuild timeout.
func (m *Manager) Rebuild(ctx context.Context) (Stats, error) {
	v, err, shared := m.group.Do("rebuild", func() (any, error) {
		buildCtx := context.WithoutCancel(ctx)
		if m.timeout > 0 {
			var cancel context.CancelFunc
			buildCtx, cancel = context.WithTimeout(buildCtx, m.timeout)
			defer cancel()
		}
		return m.rebuild(buildCtx)
	})
	if shared {
		m.logger.Debug("rebuild coalesced")
	}
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (m *Manager) rebuild(ctx context.Context) (Stats, error) {
	start := time.Now()
	items, err := m.store.FetchAll(ctx)
	if err != nil {
		m.metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
		m.logger.Error("index rebuild failed, keeping previous index", "error", err)
		return Stats{}, fmt.Errorf("snapshotting catalog: %w", err)
	}

	idx := prefixindex.Build(items)
	elapsed := time.Since(start)
	m.current.Store(idx)
	m.lastBuild.Store(int64(elapsed))

	m.metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
	m.metrics.IndexRebuildDuration.Observe(elapsed.Seconds())
	m.metrics.IndexedItems.Set(float64(idx.Len()))
	m.metrics.IndexNodes.Set(float64(idx.Nodes()))
	m.logger.Info("prefix index swapped",
		"items", idx.Len(),
		"nodes", idx.Nodes(),
		"duration_ms", elapsed.Milliseconds(),
	)

	m.hooksMu.Lock()
	hooks := append([]func(*prefixindex.Index){}, m.hooks...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(idx)
	}
	return m.Stats(), nil
}

// StartRebuildLoop rebuilds every interval until ctx is done. A non-positive
// interval disables scheduled rebuilds.
func (m *Manager) StartRebuildLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("scheduled rebuild disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.logger.Info("scheduled rebuild started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Rebuild(ctx); err != nil {
				m.logger.Warn("scheduled rebuild failed", "error", err)
			}
		}
	}
}
