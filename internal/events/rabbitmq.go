package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQ holds the broker connection shared by the publisher and consumer
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
}

// Dial connects to RabbitMQ and declares the durable topic exchange for order events
func Dial(url, exchange string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Info("RabbitMQ connected", zap.String("exchange", exchange))

	return &RabbitMQ{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends event to the exchange using its type as routing key. The
// call gives up when ctx is done; the broker may still receive the message.
func (r *RabbitMQ) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		done <- r.channel.Publish(
			r.exchange,
			event.Type,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				MessageId:    event.ID.String(),
				Type:         event.Type,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				Body:         body,
			})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", event.Type, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to publish %s: %w", event.Type, ctx.Err())
	}
}

// Handler processes one decoded event
type Handler func(ctx context.Context, event OrderEvent) error

// Consume binds queue to every order event and feeds deliveries to handler
// until ctx is cancelled or the channel closes.
func (r *RabbitMQ) Consume(ctx context.Context, queue string, handler Handler) error {
	q, err := r.channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err := r.channel.QueueBind(q.Name, "order.*", r.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}

	msgs, err := r.channel.Consume(
		q.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	r.logger.Info("Waiting for order events", zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			HandleDelivery(ctx, msg, handler, r.logger)
		}
	}
}

// HandleDelivery decodes one delivery, runs handler and settles the message:
// ack on success, drop malformed payloads, requeue a failed event once.
func HandleDelivery(ctx context.Context, msg amqp.Delivery, handler Handler, logger *zap.Logger) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.Type == "" || event.OrderID == 0 {
		logger.Warn("Dropping malformed order event",
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			logger.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		requeue := !msg.Redelivered
		logger.Error("Failed to handle order event",
			zap.String("event_type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			logger.Error("Failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", zap.Error(err))
	}
}

// Close closes the channel and connection
func (r *RabbitMQ) Close() error {
	var errs []error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
