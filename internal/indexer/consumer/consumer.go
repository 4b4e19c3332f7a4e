// Package consumer reads catalog-change events from Kafka and rebuilds the
// serving prefix index when the catalog changes.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

// Rebuilder is satisfied by *indexer.Manager.
type Rebuilder interface {
	Rebuild(ctx context.Context) (indexer.Stats, error)
}

// CatalogConsumer wraps a Kafka consumer to drive index rebuilds.
type CatalogConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a CatalogConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *CatalogConsumer {
	return &CatalogConsumer{
		consumer: kafkaConsumer,
		logger:   logger.WithComponent("catalog-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (c *CatalogConsumer) Start(ctx context.Context) error {
	c.logger.Info("catalog consumer starting")
	return c.consumer.Start(ctx)
}

// HandleCatalogEvent returns a Kafka MessageHandler that rebuilds the index
// for every catalog event. Undecodable messages are logged and committed; a
// failed rebuild leaves the message uncommitted.
func HandleCatalogEvent(r Rebuilder, m *metrics.Metrics) kafka.MessageHandler {
	log := logger.WithComponent("catalog-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.CatalogEvent](value)
		if err != nil {
			log.Error("failed to decode catalog event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		m.CatalogEventsTotal.WithLabelValues(event.Type, "consumed").Inc()

		switch event.Type {
		case ingestion.EventItemCreated, ingestion.EventItemDeleted:
		default:
			log.Warn("unknown catalog event type, rebuilding anyway", "type", event.Type)
		}

		stats, err := r.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding index after %s of item %d: %w", event.Type, event.ItemID, err)
		}
		log.Info("index rebuilt from catalog event",
			"type", event.Type,
			"item_id", event.ItemID,
			"items", stats.Items,
		)
		return nil
	}
}
