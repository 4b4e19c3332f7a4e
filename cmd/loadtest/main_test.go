package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_RotatesOperations(t *testing.T) {
	cfg := Config{Keywords: []string{"mobile", "valorant"}, Platforms: []string{"PC"}}

	seen := make(map[string]int)
	for n := range 8 {
		req := plan(cfg, n)
		seen[req.Operation]++
	}
	for _, op := range operations {
		assert.Equal(t, 2, seen[op], op)
	}

	assert.Equal(t, "/api/v1/autocomplete?limit=10&q=mobile", plan(cfg, 0).Path)
	assert.Equal(t, "/api/v1/platforms/PC/items?limit=10&q=mobile", plan(cfg, 3).Path)
	assert.Equal(t, "/api/v1/autocomplete?limit=10&q=valorant", plan(cfg, 4).Path)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestStats_RecordRequest(t *testing.T) {
	s := NewStats()
	s.RecordRequest(time.Millisecond, http.StatusOK, nil)
	s.RecordRequest(time.Millisecond, http.StatusServiceUnavailable, nil)
	s.RecordRequest(0, 0, errors.New("connection refused"))

	assert.Equal(t, int64(3), s.totalRequests.Load())
	assert.Equal(t, int64(1), s.successCount.Load())
	assert.Equal(t, int64(2), s.errorCount.Load())
	assert.Len(t, s.latencies, 2)
	assert.Equal(t, int64(1), s.statusCodes[http.StatusServiceUnavailable])
}

func TestRunLoadTest_HitsEveryEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"count":0}`))
	}))
	defer srv.Close()

	report := runLoadTest(Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Keywords:    []string{"mo"},
		Platforms:   []string{"PC"},
	})

	for _, op := range operations {
		s := report[op]
		require.NotNil(t, s, op)
		assert.Positive(t, s.successCount.Load(), op)
	}
}
