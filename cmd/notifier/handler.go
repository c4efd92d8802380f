package main

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/notify"

	"go.uber.org/zap"
)

// orderLoader is the slice of the order ledger the notifier reads
type orderLoader interface {
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
}

// notifier turns order events into shopper e-mails
type notifier struct {
	orders orderLoader
	mailer notify.Mailer
	logger *zap.Logger
}

// handle loads the order named by event and mails its owner. Orders that no
// longer exist and unknown event types are acknowledged without sending.
func (n *notifier) handle(ctx context.Context, event events.OrderEvent) error {
	if event.Type != events.TypeOrderCreated && event.Type != events.TypeOrderStatusUpdated {
		n.logger.Debug("Ignoring order event", zap.String("event_type", event.Type))
		return nil
	}

	order, err := n.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			n.logger.Warn("Order from event no longer exists", zap.Int64("order_id", event.OrderID))
			return nil
		}
		return fmt.Errorf("failed to load order %d: %w", event.OrderID, err)
	}

	if event.Type == events.TypeOrderCreated {
		err = n.mailer.SendOrderConfirmation(ctx, order)
	} else {
		err = n.mailer.SendStatusUpdate(ctx, order)
	}
	if err != nil {
		return err
	}

	n.logger.Info("Order notification sent",
		zap.String("event_type", event.Type),
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
	)
	return nil
}
