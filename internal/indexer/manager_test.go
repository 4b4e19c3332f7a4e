package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/prefixindex"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

type snapshotStore struct {
	mu    sync.Mutex
	items []catalog.Item
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (s *snapshotStore) FetchAll(ctx context.Context) ([]catalog.Item, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Item(nil), s.items...), s.err
}

func (s *snapshotStore) FetchByID(context.Context, int64) (catalog.Item, error) {
	return catalog.Item{}, catalog.ErrNotFound
}

func (s *snapshotStore) Query(context.Context, catalog.Predicate, int) ([]catalog.Item, error) {
	return nil, nil
}

func (s *snapshotStore) Ping(context.Context) error { return nil }

func (s *snapshotStore) set(items []catalog.Item, err error) {
	s.mu.Lock()
	s.items, s.err = items, err
	s.mu.Unlock()
}

func newManager(store catalog.Store) (*Manager, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewManager(store, config.IndexConfig{RebuildTimeout: time.Second}, m), m
}

func TestManagerServesEmptyBeforeBuild(t *testing.T) {
	mgr, _ := newManager(&snapshotStore{})
	require.NotNil(t, mgr.Current())
	assert.Empty(t, mgr.Current().Search(""))
	assert.Zero(t, mgr.Stats().Items)
}

func TestManagerRebuildSwaps(t *testing.T) {
	store := &snapshotStore{items: []catalog.Item{{ID: 1, Name: "Robux"}}}
	mgr, m := newManager(store)

	var swapped []*prefixindex.Index
	mgr.OnSwap(func(idx *prefixindex.Index) { swapped = append(swapped, idx) })

	stats, err := mgr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Items)
	first := mgr.Current()
	assert.Equal(t, []int64{1}, first.Search("rob"))

	store.set([]catalog.Item{{ID: 1, Name: "Robux"}, {ID: 2, Name: "Roblox Premium"}}, nil)
	_, err = mgr.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, mgr.Current().Search("rob"))
	// an index handed out earlier is never mutated
	assert.Equal(t, []int64{1}, first.Search("rob"))
	assert.Len(t, swapped, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.IndexRebuildsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.IndexedItems))
}

func TestManagerFailedRebuildKeepsIndex(t *testing.T) {
	store := &snapshotStore{items: []catalog.Item{{ID: 3, Name: "Valorant Points"}}}
	mgr, m := newManager(store)
	_, err := mgr.Rebuild(context.Background())
	require.NoError(t, err)
	before := mgr.Current()

	store.set(nil, errors.New("connection reset"))
	_, err = mgr.Rebuild(context.Background())
	require.Error(t, err)

	assert.Same(t, before, mgr.Current())
	assert.Equal(t, []int64{3}, mgr.Current().Search("val"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndexRebuildsTotal.WithLabelValues("error")))
}

func TestManagerCoalescesConcurrentRebuilds(t *testing.T) {
	store := &snapshotStore{items: []catalog.Item{{ID: 1, Name: "Diamonds"}}, gate: make(chan struct{})}
	mgr, _ := newManager(store)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Rebuild(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)
	// let the other callers join the in-flight build
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestRebuildLoopDisabled(t *testing.T) {
	mgr, _ := newManager(&snapshotStore{})
	done := make(chan struct{})
	go func() {
		mgr.StartRebuildLoop(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled loop did not return")
	}
}

func TestRebuildLoopRuns(t *testing.T) {
	store := &snapshotStore{items: []catalog.Item{{ID: 1, Name: "Skin"}}}
	mgr, _ := newManager(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.StartRebuildLoop(ctx, 5*time.Millisecond)
	require.Eventually(t, func() bool { return mgr.Stats().Items == 1 }, time.Second, 5*time.Millisecond)
}
