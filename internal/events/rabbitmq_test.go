package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAcknowledger struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func delivery(t *testing.T, body []byte, redelivered bool) (amqp.Delivery, *recordingAcknowledger) {
	t.Helper()
	ack := &recordingAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, Body: body, DeliveryTag: 1, Redelivered: redelivered}, ack
}

func sampleEventBody(t *testing.T) []byte {
	t.Helper()
	event := NewOrderEvent(TypeOrderCreated, &domain.Order{
		ID:            42,
		UserID:        7,
		TotalAmount:   decimal.RequireFromString("200.00"),
		PaymentMethod: domain.PaymentCashOnDelivery,
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.OrderProcessing,
		Items:         []domain.OrderItem{{ProductID: 1, Quantity: 2}},
	})
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestHandleDeliveryAcksHandledEvent(t *testing.T) {
	msg, ack := delivery(t, sampleEventBody(t), false)

	var got OrderEvent
	HandleDelivery(context.Background(), msg, func(_ context.Context, e OrderEvent) error {
		got = e
		return nil
	}, zap.NewNop())

	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
	assert.Equal(t, int64(42), got.OrderID)
	assert.Equal(t, TypeOrderCreated, got.Type)
	assert.Equal(t, 1, got.ItemCount)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("200")))
}

func TestHandleDeliveryDropsMalformedPayload(t *testing.T) {
	for _, body := range [][]byte{[]byte("not json"), []byte(`{"type":""}`), []byte(`{"type":"order.created"}`)} {
		msg, ack := delivery(t, body, false)
		called := false
		HandleDelivery(context.Background(), msg, func(context.Context, OrderEvent) error {
			called = true
			return nil
		}, zap.NewNop())

		assert.False(t, called)
		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeued)
	}
}

func TestHandleDeliveryRequeuesFailureOnce(t *testing.T) {
	failing := func(context.Context, OrderEvent) error { return errors.New("smtp down") }

	msg, ack := delivery(t, sampleEventBody(t), false)
	HandleDelivery(context.Background(), msg, failing, zap.NewNop())
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeued)

	msg, ack = delivery(t, sampleEventBody(t), true)
	HandleDelivery(context.Background(), msg, failing, zap.NewNop())
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), OrderEvent{}))
	assert.NoError(t, p.Close())
}
