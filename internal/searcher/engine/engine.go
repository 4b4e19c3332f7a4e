// Package engine implements the storefront search operations: prefix
// autocomplete over the serving index, substring search and platform search
// against the record store, and the hybrid search that merges the two.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/prefixindex"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/tracing"
)

// Operation names, used as metric labels and cache keys.
const (
	OpAutocomplete = "autocomplete"
	OpSubstring    = "substring"
	OpHybrid       = "hybrid"
	OpPlatform     = "platform"
)

// IndexSource provides the serving prefix index. *indexer.Manager
// satisfies it.
type IndexSource interface {
	Current() *prefixindex.Index
}

// Engine runs search operations. It is safe for concurrent use.
type Engine struct {
	index     IndexSource
	store     catalog.Store
	minPrefix int
	resolveN  int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Engine reading from index and store.
func New(index IndexSource, store catalog.Store, cfg config.SearchConfig, m *metrics.Metrics) *Engine {
	minPrefix := cfg.MinPrefixLength
	if minPrefix <= 0 {
		minPrefix = 2
	}
	resolveN := cfg.ResolveConcurrency
	if resolveN <= 0 {
		resolveN = 1
	}
	return &Engine{
		index:     index,
		store:     store,
		minPrefix: minPrefix,
		resolveN:  resolveN,
		metrics:   m,
		logger:    logger.WithComponent("search-engine"),
	}
}

// Autocomplete returns up to limit items whose name starts with prefix.
// Prefixes shorter than the minimum length yield an empty result. Items
// deleted since the index was built are left out.
func (e *Engine) Autocomplete(ctx context.Context, prefix string, limit int) ([]catalog.Item, error) {
	start := time.Now()
	items, err := e.autocomplete(ctx, prefix, limit)
	e.observe(OpAutocomplete, start, len(items), err)
	return items, err
}

// SubstringSearch returns up to limit items whose name, description or
// platform contains keyword, ignoring case.
func (e *Engine) SubstringSearch(ctx context.Context, keyword string, limit int) ([]catalog.Item, error) {
	start := time.Now()
	items, err := e.substring(ctx, keyword, limit)
	e.observe(OpSubstring, start, len(items), err)
	return items, err
}

// HybridSearch spends half the budget on prefix matches and the rest on
// substring matches, then merges them with prefix hits first.
func (e *Engine) HybridSearch(ctx context.Context, keyword string, limit int) ([]catalog.Item, error) {
	start := time.Now()
	items, err := e.hybrid(ctx, keyword, limit)
	e.observe(OpHybrid, start, len(items), err)
	return items, err
}

// PlatformSearch returns up to limit items whose platform contains platform
// and, when keyword is non-empty, whose name or description contains
// keyword.
func (e *Engine) PlatformSearch(ctx context.Context, platform, keyword string, limit int) ([]catalog.Item, error) {
	start := time.Now()
	items, err := e.platform(ctx, platform, keyword, limit)
	e.observe(OpPlatform, start, len(items), err)
	return items, err
}

func (e *Engine) autocomplete(ctx context.Context, prefix string, limit int) ([]catalog.Item, error) {
	if limit <= 0 || utf8.RuneCountInString(prefix) < e.minPrefix {
		return []catalog.Item{}, nil
	}
	_, span := tracing.StartChildSpan(ctx, "prefix")
	defer span.End()

	ids := e.index.Current().Search(prefix)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	span.SetAttr("candidates", len(ids))

	items, err := e.resolve(ctx, ids)
	if err != nil {
		return nil, apperrors.Retrieval(OpAutocomplete, err)
	}
	return items, nil
}

// resolve fetches the current snapshot of every id concurrently, keeping the
// order of ids and dropping ids that no longer exist.
func (e *Engine) resolve(ctx context.Context, ids []int64) ([]catalog.Item, error) {
	if len(ids) == 0 {
		return []catalog.Item{}, nil
	}
	resolved := make([]catalog.Item, len(ids))
	found := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.resolveN)
	for i, id := range ids {
		g.Go(func() error {
			item, err := e.store.FetchByID(gctx, id)
			if errors.Is(err, catalog.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			resolved[i] = item
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(ids))
	stale := 0
	for i, ok := range found {
		if !ok {
			stale++
			continue
		}
		items = append(items, resolved[i])
	}
	if stale > 0 {
		e.metrics.StaleIDsTotal.Add(float64(stale))
		e.logger.Debug("dropped stale index entries", "count", stale)
	}
	return items, nil
}

func (e *Engine) substring(ctx context.Context, keyword string, limit int) ([]catalog.Item, error) {
	if limit <= 0 {
		return []catalog.Item{}, nil
	}
	_, span := tracing.StartChildSpan(ctx, "substring")
	defer span.End()

	items, err := e.store.Query(ctx, catalog.Predicate{Keyword: keyword, Fields: catalog.FieldsAll}, limit)
	if err != nil {
		return nil, apperrors.Retrieval(OpSubstring, err)
	}
	span.SetAttr("rows", len(items))
	return capped(items, limit), nil
}

func (e *Engine) hybrid(ctx context.Context, keyword string, limit int) ([]catalog.Item, error) {
	if limit <= 0 {
		return []catalog.Item{}, nil
	}
	var prefixHits []catalog.Item
	if utf8.RuneCountInString(keyword) >= e.minPrefix {
		var err error
		prefixHits, err = e.autocomplete(ctx, keyword, limit/2)
		if err != nil {
			return nil, err
		}
	}
	substringHits, err := e.substring(ctx, keyword, limit-len(prefixHits))
	if err != nil {
		return nil, err
	}
	return merger.Merge(limit, prefixHits, substringHits), nil
}

func (e *Engine) platform(ctx context.Context, platform, keyword string, limit int) ([]catalog.Item, error) {
	if limit <= 0 {
		return []catalog.Item{}, nil
	}
	pred := catalog.Predicate{
		Keyword:  keyword,
		Fields:   catalog.FieldName | catalog.FieldDescription,
		Platform: platform,
	}
	items, err := e.store.Query(ctx, pred, limit)
	if err != nil {
		return nil, apperrors.Retrieval(OpPlatform, err)
	}
	return capped(items, limit), nil
}

func capped(items []catalog.Item, limit int) []catalog.Item {
	if items == nil {
		return []catalog.Item{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func (e *Engine) observe(op string, start time.Time, n int, err error) {
	resultType := "hit"
	switch {
	case err != nil:
		resultType = "error"
	case n == 0:
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(op, resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		e.metrics.SearchResultsCount.WithLabelValues(op).Observe(float64(n))
	}
}
