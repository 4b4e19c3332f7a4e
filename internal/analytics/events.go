// Package analytics records search activity. The Collector publishes search
// events to Kafka without blocking requests and the Aggregator folds them
// into query statistics.
package analytics

import "time"

// SearchEvent describes one served search request.
type SearchEvent struct {
	Operation string    `json:"operation"`
	Query     string    `json:"query"`
	Platform  string    `json:"platform,omitempty"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker accepts search events. Implementations must not block.
type Tracker interface {
	Track(event SearchEvent)
}
