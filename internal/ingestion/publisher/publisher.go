// Package publisher persists admin catalog changes and announces them on the
// catalog-events topic so search replicas rebuild their index.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

// Store is the record store side the publisher needs.
type Store interface {
	catalog.Store
	catalog.Writer
}

// CacheInvalidator is satisfied by *cache.QueryCache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Publisher coordinates item persistence and catalog event production.
type Publisher struct {
	store    Store
	producer kafka.Publisher
	cache    CacheInvalidator
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. producer may be nil when Kafka is disabled; search
// replicas then pick changes up on their next rebuild.
func New(store Store, producer kafka.Publisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		metrics:  m,
		now:      time.Now,
		logger:   logger.WithComponent("catalog-publisher"),
	}
}

// WithCache makes every successful write drop the shared search result cache,
// so a deleted item stops being served from a cached answer before the next
// index rebuild.
func (p *Publisher) WithCache(c CacheInvalidator) *Publisher {
	p.cache = c
	return p
}

// Create persists a validated request and publishes item_created. A publish
// failure is logged and does not undo the insert.
func (p *Publisher) Create(ctx context.Context, req *ingestion.ItemRequest) (catalog.Item, error) {
	item, err := p.store.Insert(ctx, catalog.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Platform:    req.Platform,
	})
	if err != nil {
		return catalog.Item{}, fmt.Errorf("creating item: %w", err)
	}
	p.announce(ctx, ingestion.CatalogEvent{
		Type:       ingestion.EventItemCreated,
		ItemID:     item.ID,
		Name:       item.Name,
		OccurredAt: p.now().UTC(),
	})
	return item, nil
}

// Delete removes the item and publishes item_deleted.
func (p *Publisher) Delete(ctx context.Context, id int64) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	p.announce(ctx, ingestion.CatalogEvent{
		Type:       ingestion.EventItemDeleted,
		ItemID:     id,
		OccurredAt: p.now().UTC(),
	})
	return nil
}

// Get returns one item.
func (p *Publisher) Get(ctx context.Context, id int64) (catalog.Item, error) {
	return p.store.FetchByID(ctx, id)
}

// List returns the whole catalog ordered by id.
func (p *Publisher) List(ctx context.Context) ([]catalog.Item, error) {
	items, err := p.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return items, nil
}

// announce runs after a committed write. Failures here are logged only; the
// write stands and replicas catch up on their next rebuild.
func (p *Publisher) announce(ctx context.Context, event ingestion.CatalogEvent) {
	if err := p.publish(ctx, event); err != nil {
		p.metrics.CatalogEventsTotal.WithLabelValues(event.Type, "failed").Inc()
		p.logger.Error("catalog event not delivered",
			"type", event.Type,
			"item_id", event.ItemID,
			"error", err,
		)
	}
	if p.cache != nil {
		dropped, err := p.cache.Invalidate(ctx)
		if err != nil {
			p.logger.Warn("search cache invalidation failed", "type", event.Type, "error", err)
			return
		}
		p.logger.Debug("search cache invalidated", "type", event.Type, "keys", dropped)
	}
}

func (p *Publisher) publish(ctx context.Context, event ingestion.CatalogEvent) error {
	if p.producer == nil {
		return nil
	}
	err := p.producer.Publish(ctx, kafka.Event{
		Key:   strconv.FormatInt(event.ItemID, 10),
		Value: event,
	})
	if err != nil {
		return fmt.Errorf("%w: %s for item %d: %w", apperrors.ErrPublishFailure, event.Type, event.ItemID, err)
	}
	p.metrics.CatalogEventsTotal.WithLabelValues(event.Type, "published").Inc()
	return nil
}
