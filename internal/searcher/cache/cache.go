// Package cache is a Redis-backed cache of search results. Identical
// concurrent misses are computed once. Redis failures degrade to misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the subset of *pkgredis.Client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Query identifies a cacheable search.
type Query struct {
	Operation string
	Keyword   string
	Platform  string
	Limit     int
}

// QueryCache caches search results for ttl.
type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, q Query) ([]catalog.Item, bool) {
	key := buildKey(q)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var items []catalog.Item
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "operation", q.Operation, "key", key)
	return items, true
}

func (c *QueryCache) Set(ctx context.Context, q Query, items []catalog.Item) {
	key := buildKey(q)
	data, err := json.Marshal(items)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q or runs compute once for all
// concurrent callers with the same q. The bool reports a cache hit. Errors
// are never cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q Query,
	compute func() ([]catalog.Item, error),
) ([]catalog.Item, bool, error) {
	if items, ok := c.Get(ctx, q); ok {
		return items, true, nil
	}
	val, err, _ := c.group.Do(buildKey(q), func() (any, error) {
		items, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, items)
		return items, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]catalog.Item), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

func buildKey(q Query) string {
	raw := fmt.Sprintf("%s|%s|%s|limit=%d",
		q.Operation,
		normalize(q.Keyword),
		normalize(q.Platform),
		q.Limit,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalize lower-cases s and trims its ends. Inner whitespace is kept since
// it is part of the substring being matched.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
