// Package ingestion defines the admin request types and the Kafka catalog
// event schema used when items are added to or removed from the storefront.
package ingestion

import "time"

// Catalog event types.
const (
	EventItemCreated = "item_created"
	EventItemDeleted = "item_deleted"
)

// ItemRequest is the JSON body accepted by the add-item endpoint.
type ItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Platform    string  `json:"game_platform"`
}

// CatalogEvent is published after the catalog changes. Search replicas
// rebuild their prefix index when they receive one.
type CatalogEvent struct {
	Type       string    `json:"type"`
	ItemID     int64     `json:"item_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
