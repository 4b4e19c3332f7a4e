// Package handler exposes the search engine, index lifecycle and query cache
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/tracing"
)

// SearchEngine is satisfied by *engine.Engine.
type SearchEngine interface {
	Autocomplete(ctx context.Context, prefix string, limit int) ([]catalog.Item, error)
	SubstringSearch(ctx context.Context, keyword string, limit int) ([]catalog.Item, error)
	HybridSearch(ctx context.Context, keyword string, limit int) ([]catalog.Item, error)
	PlatformSearch(ctx context.Context, platform, keyword string, limit int) ([]catalog.Item, error)
}

// IndexAdmin is satisfied by *indexer.Manager.
type IndexAdmin interface {
	Rebuild(ctx context.Context) (indexer.Stats, error)
	Stats() indexer.Stats
}

// SearchResponse is the body of every search endpoint.
type SearchResponse struct {
	Items []catalog.Item `json:"items"`
	Count int            `json:"count"`
}

// Options holds optional collaborators. Nil fields disable the feature.
type Options struct {
	Cache   *cache.QueryCache
	Tracker analytics.Tracker
	Tracing bool
}

type Handler struct {
	engine  SearchEngine
	index   IndexAdmin
	cache   *cache.QueryCache
	tracker analytics.Tracker
	tracing bool
	cfg     config.SearchConfig
	logger  *slog.Logger
}

func New(eng SearchEngine, index IndexAdmin, cfg config.SearchConfig, opts Options) *Handler {
	return &Handler{
		engine:  eng,
		index:   index,
		cache:   opts.Cache,
		tracker: opts.Tracker,
		tracing: opts.Tracing,
		cfg:     cfg,
		logger:  logger.WithComponent("search-handler"),
	}
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/autocomplete", h.Autocomplete)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/substring", h.Substring)
	mux.HandleFunc("GET /api/v1/platforms/{platform}/items", h.Platform)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, engine.OpAutocomplete, h.cfg.AutocompleteLimit, "", func(ctx context.Context, q cache.Query) ([]catalog.Item, error) {
		return h.engine.Autocomplete(ctx, q.Keyword, q.Limit)
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.requireKeyword(w, r) {
		return
	}
	h.serve(w, r, engine.OpHybrid, h.cfg.DefaultLimit, "", func(ctx context.Context, q cache.Query) ([]catalog.Item, error) {
		return h.engine.HybridSearch(ctx, q.Keyword, q.Limit)
	})
}

func (h *Handler) Substring(w http.ResponseWriter, r *http.Request) {
	if !h.requireKeyword(w, r) {
		return
	}
	h.serve(w, r, engine.OpSubstring, h.cfg.SubstringLimit, "", func(ctx context.Context, q cache.Query) ([]catalog.Item, error) {
		return h.engine.SubstringSearch(ctx, q.Keyword, q.Limit)
	})
}

func (h *Handler) Platform(w http.ResponseWriter, r *http.Request) {
	platform := strings.TrimSpace(r.PathValue("platform"))
	if platform == "" {
		h.writeError(w, http.StatusBadRequest, "platform is required")
		return
	}
	h.serve(w, r, engine.OpPlatform, h.cfg.MaxResults, platform, func(ctx context.Context, q cache.Query) ([]catalog.Item, error) {
		return h.engine.PlatformSearch(ctx, q.Platform, q.Keyword, q.Limit)
	})
}

// requireKeyword rejects keyword searches without a keyword. Autocomplete and
// platform listing accept an empty q.
func (h *Handler) requireKeyword(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.URL.Query().Get("q")) == "" {
		h.writeError(w, http.StatusBadRequest, "Search keyword required")
		return false
	}
	return true
}

type searchFunc func(ctx context.Context, q cache.Query) ([]catalog.Item, error)

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, op string, defaultLimit int, platform string, run searchFunc) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	limit, err := h.parseLimit(r, defaultLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := cache.Query{
		Operation: op,
		Keyword:   strings.TrimSpace(r.URL.Query().Get("q")),
		Platform:  platform,
		Limit:     limit,
	}

	var span *tracing.Span
	if h.tracing {
		ctx, span = tracing.StartSpan(ctx, op, middleware.GetRequestID(ctx))
	}

	var (
		items    []catalog.Item
		cacheHit bool
	)
	if h.cache != nil {
		items, cacheHit, err = h.cache.GetOrCompute(ctx, q, func() ([]catalog.Item, error) {
			return run(ctx, q)
		})
	} else {
		items, err = run(ctx, q)
	}
	if span != nil {
		span.SetAttr("cache_hit", cacheHit)
		span.End()
		span.Log(log)
	}

	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "operation", op, "query", q.Keyword, "status_code", status, "error", err)
		h.writeError(w, status, "search failed")
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"operation", op,
		"query", q.Keyword,
		"limit", limit,
		"returned", len(items),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.SearchEvent{
			Operation: op,
			Query:     q.Keyword,
			Platform:  platform,
			Returned:  len(items),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			RequestID: middleware.GetRequestID(ctx),
			Timestamp: time.Now().UTC(),
		})
	}
	h.writeJSON(w, http.StatusOK, SearchResponse{Items: items, Count: len(items)})
}

// parseLimit reads ?limit=, applying the default when absent and clamping to
// the configured maximum.
func (h *Handler) parseLimit(r *http.Request, defaultLimit int) (int, error) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, fmt.Errorf("limit must be a non-negative integer")
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}
	return limit, nil
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := h.index.Rebuild(r.Context())
	if err != nil {
		status := apperrors.HTTPStatusCode(apperrors.Retrieval("rebuild", err))
		logger.FromContext(r.Context()).Error("index rebuild failed", "error", err)
		h.writeError(w, status, "index rebuild failed")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats := h.index.Stats()
	if stats.BuiltAt.IsZero() {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrIndexNotReady), apperrors.ErrIndexNotReady.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrCacheDisabled), apperrors.ErrCacheDisabled.Error())
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
