// Package events carries order lifecycle notifications out of the API process.
package events

import (
	"context"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types, also used as routing keys
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusUpdated = "order.status_updated"
)

// OrderEvent is the payload published for every order lifecycle change
type OrderEvent struct {
	ID            uuid.UUID            `json:"id"`
	Type          string               `json:"type"`
	OrderID       int64                `json:"orderId"`
	UserID        int64                `json:"userId"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	OrderStatus   domain.OrderStatus   `json:"orderStatus"`
	ItemCount     int                  `json:"itemCount"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// NewOrderEvent builds an event of the given type from an order
func NewOrderEvent(eventType string, order *domain.Order) OrderEvent {
	return OrderEvent{
		ID:            uuid.New(),
		Type:          eventType,
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		ItemCount:     len(order.Items),
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher delivers order events to interested consumers
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
