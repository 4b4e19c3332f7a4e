package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(limit, window)
	l.now = clock.now
	return l, clock
}

func TestAllow_ExhaustsAndRefills(t *testing.T) {
	l, clock := newTestLimiter(3, time.Second)

	for range 3 {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok)
	}
	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, float64(time.Second/3), float64(wait), float64(time.Millisecond))

	clock.advance(400 * time.Millisecond)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
	ok, _ = l.Allow("b")
	assert.True(t, ok)
}

func TestSweep_DropsIdleKeys(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	l.Allow("idle")
	clock.advance(time.Second)
	l.Allow("active")
	clock.advance(1500 * time.Millisecond)

	l.Sweep()

	assert.Equal(t, 1, l.Len())
}

func TestMiddleware_RejectsOverBudget(t *testing.T) {
	l, _ := newTestLimiter(1, time.Second)
	m := metrics.New(prometheus.NewRegistry())
	h := Middleware(l, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/autocomplete?q=mo", nil)
	req.RemoteAddr = "192.0.2.7:51000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req.RemoteAddr = "192.0.2.7:51001"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitedTotal))
}
