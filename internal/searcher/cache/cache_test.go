package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/redis"
)

type fakeBackend struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	sets   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string]string)}
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.data[key] = string(value.([]byte))
	return nil
}

func (f *fakeBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func newCache(b Backend) (*QueryCache, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return New(b, time.Minute, m), m
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	c, m := newCache(newFakeBackend())
	q := Query{Operation: "hybrid", Keyword: "mob", Limit: 10}
	want := []catalog.Item{{ID: 1, Name: "Mobile Legends Diamonds", Currency: "PHP"}}

	calls := 0
	compute := func() ([]catalog.Item, error) { calls++; return want, nil }

	got, hit, err := c.GetOrCompute(context.Background(), q, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, got)

	got, hit, err = c.GetOrCompute(context.Background(), Query{Operation: "hybrid", Keyword: "  MOB ", Limit: 10}, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
}

func TestKeysSeparateOperationsAndLimits(t *testing.T) {
	base := Query{Operation: "autocomplete", Keyword: "val", Limit: 5}
	assert.NotEqual(t, buildKey(base), buildKey(Query{Operation: "substring", Keyword: "val", Limit: 5}))
	assert.NotEqual(t, buildKey(base), buildKey(Query{Operation: "autocomplete", Keyword: "val", Limit: 6}))
	assert.NotEqual(t, buildKey(Query{Operation: "platform", Platform: "pc"}), buildKey(Query{Operation: "platform", Keyword: "pc"}))
	assert.True(t, strings.HasPrefix(buildKey(base), keyPrefix))
}

func TestErrorsAreNotCached(t *testing.T) {
	b := newFakeBackend()
	c, _ := newCache(b)
	boom := errors.New("store down")
	_, _, err := c.GetOrCompute(context.Background(), Query{Operation: "substring", Keyword: "x", Limit: 1}, func() ([]catalog.Item, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, b.sets)
}

func TestBackendFailureDegradesToMiss(t *testing.T) {
	b := newFakeBackend()
	b.getErr = errors.New("i/o timeout")
	c, _ := newCache(b)
	got, hit, err := c.GetOrCompute(context.Background(), Query{Operation: "hybrid", Keyword: "x", Limit: 1}, func() ([]catalog.Item, error) {
		return []catalog.Item{{ID: 9}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 1)
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	c, _ := newCache(newFakeBackend())
	var computed atomic.Int32
	release := make(chan struct{})
	compute := func() ([]catalog.Item, error) {
		computed.Add(1)
		<-release
		return []catalog.Item{{ID: 1}}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), Query{Operation: "hybrid", Keyword: "gen", Limit: 10}, compute)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return computed.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), computed.Load())
}

func TestInvalidate(t *testing.T) {
	b := newFakeBackend()
	b.data["unrelated"] = "keep"
	c, _ := newCache(b)
	c.Set(context.Background(), Query{Operation: "hybrid", Keyword: "a", Limit: 1}, []catalog.Item{{ID: 1}})
	c.Set(context.Background(), Query{Operation: "hybrid", Keyword: "b", Limit: 1}, []catalog.Item{{ID: 2}})

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "keep", b.data["unrelated"])
}
