package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e kafka.Event) error {
	return p.PublishBatch(ctx, []kafka.Event{e})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.Event
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, 2, time.Hour)
	c.Start(context.Background())

	c.Track(SearchEvent{Operation: "hybrid", Query: "mob"})
	c.Track(SearchEvent{Operation: "autocomplete", Query: "va"})

	require.Eventually(t, func() bool { return len(pub.events()) == 2 }, time.Second, time.Millisecond)
	events := pub.events()
	assert.Equal(t, "hybrid", events[0].Key)
	c.Close()
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, 100, time.Hour)
	c.Start(context.Background())
	c.Track(SearchEvent{Operation: "substring", Query: "skin"})
	c.Close()
	assert.Len(t, pub.events(), 1)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(SearchEvent{Operation: "platform", Query: ""})
	cancel()
	<-c.done
	assert.Len(t, pub.events(), 1)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1, 100, time.Hour)
	// not started: the buffer fills and further events are dropped
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	assert.Len(t, c.eventCh, 1)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(SearchEvent{Operation: "hybrid", Query: "mob", Returned: 2, LatencyMs: 10})
	agg.Track(SearchEvent{Operation: "hybrid", Query: "mob", Returned: 2, LatencyMs: 20, CacheHit: true})
	agg.Track(SearchEvent{Operation: "autocomplete", Query: "zz", Returned: 0, LatencyMs: 30})

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, map[string]int64{"hybrid": 2, "autocomplete": 1}, stats.ByOperation)
	assert.InDelta(t, 20.0, stats.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(20), stats.P50LatencyMs)
	assert.Equal(t, int64(30), stats.P99LatencyMs)
	assert.Equal(t, []QueryCount{{"mob", 2}, {"zz", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"zz", 1}}, stats.ZeroResultQueries)
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := range maxLatencySamples + 5 {
		agg.Track(SearchEvent{Query: "q", LatencyMs: int64(i)})
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Equal(t, int64(maxLatencySamples+5), agg.Stats().TotalSearches)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	raw, err := json.Marshal(SearchEvent{Operation: "hybrid", Query: "legends", Returned: 2})
	require.NoError(t, err)

	require.NoError(t, h(context.Background(), nil, raw))
	require.NoError(t, h(context.Background(), nil, []byte("garbage")))
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Track(SearchEvent{Operation: "hybrid", Query: "mob", Returned: 1})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.TotalSearches)
}

func TestStatsHandlerTopParam(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"mob", "mob", "val", "gen"} {
		agg.Track(SearchEvent{Operation: "autocomplete", Query: q, Returned: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.TopQueries, 1)
	assert.Equal(t, "mob", body.TopQueries[0].Query)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
