package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrders          = "storefront-orders"
	EventTypeOrderPlaced = "order.placed"
)

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
	Close() error
}

type PlacedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderPlaced announces a confirmed order. Prices stay with the backend that set them.
type OrderPlaced struct {
	EventID     string       `json:"event_id"`
	OrderID     string       `json:"order_id"`
	OrderNumber string       `json:"order_number,omitempty"`
	SessionID   string       `json:"session_id"`
	Items       []PlacedItem `json:"items"`
	PlacedAt    time.Time    `json:"placed_at"`
}

func NewOrderPlaced(orderID, orderNumber, sessionID string, items []PlacedItem, at time.Time) OrderPlaced {
	return OrderPlaced{
		EventID:     uuid.NewString(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		SessionID:   sessionID,
		Items:       items,
		PlacedAt:    at.UTC(),
	}
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (Noop) Close() error { return nil }
