package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PlaceOrderInput is a cart submitted for checkout. TransactionID is set when
// payment was already confirmed by the gateway.
type PlaceOrderInput struct {
	UserID          int64
	Items           []domain.CartLine
	ShippingAddress domain.Address
	PaymentMethod   domain.PaymentMethod
	TransactionID   string
}

// CheckoutInput is a cart that still has to be paid for
type CheckoutInput struct {
	PlaceOrderInput
	CardDetails *payment.CardDetails
	UPIID       string
	BankName    string
}

// OrderService is the checkout orchestrator plus order queries
type OrderService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	PlaceOrderWithPayment(ctx context.Context, input CheckoutInput) (*domain.Order, error)
	ListOrders(ctx context.Context, requester authz.Principal) ([]*domain.Order, error)
	GetOrder(ctx context.Context, requester authz.Principal, orderID int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, requester authz.Principal, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

// OrderServiceDeps wires the orchestrator's collaborators
type OrderServiceDeps struct {
	Products       repository.ProductRepository
	Inventory      repository.InventoryStore
	Ledger         repository.OrderLedger
	Gateway        payment.Gateway
	Publisher      events.Publisher
	Metrics        *metrics.Metrics
	Checkout       config.CheckoutConfig
	PaymentTimeout time.Duration
	Logger         *zap.Logger
}

type orderService struct {
	products       repository.ProductRepository
	inventory      repository.InventoryStore
	ledger         repository.OrderLedger
	gateway        payment.Gateway
	publisher      events.Publisher
	metrics        *metrics.Metrics
	cfg            config.CheckoutConfig
	paymentTimeout time.Duration
	tracer         trace.Tracer
	logger         *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(deps OrderServiceDeps) OrderService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &orderService{
		products:       deps.Products,
		inventory:      deps.Inventory,
		ledger:         deps.Ledger,
		gateway:        deps.Gateway,
		publisher:      publisher,
		metrics:        m,
		cfg:            deps.Checkout,
		paymentTimeout: deps.PaymentTimeout,
		tracer:         otel.Tracer("storefront/service/order"),
		logger:         logger,
	}
}

// validate rejects malformed input before anything is touched
func validatePlaceOrder(input PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return domain.ErrEmptyCart
	}
	for _, line := range input.Items {
		if line.ProductID <= 0 {
			return domain.NewProductError(line.ProductID, domain.ErrProductNotFound)
		}
		if line.Quantity < 1 {
			return domain.NewProductError(line.ProductID, domain.ErrInvalidQuantity)
		}
	}
	if !input.ShippingAddress.Complete() {
		return domain.ErrInvalidAddress
	}
	if !input.PaymentMethod.Valid() {
		return domain.ErrInvalidPaymentMethod
	}
	return nil
}

// PlaceOrder reserves stock for every cart line and records the order, or
// fails with no stock change and no order.
func (s *orderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place_order", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID),
		attribute.Int("cart.lines", len(input.Items)),
	))
	defer span.End()

	start := time.Now()
	order, err := s.placeOrder(ctx, input, nil)
	s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	s.recordOutcome(span, input.UserID, order, err)
	return order, err
}

// PlaceOrderWithPayment charges the gateway first and only then reserves
// stock, so no reservation is held open during the payment round trip.
func (s *orderService) PlaceOrderWithPayment(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place_order_with_payment", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID),
		attribute.Int("cart.lines", len(input.Items)),
		attribute.String("payment.method", string(input.PaymentMethod)),
	))
	defer span.End()

	start := time.Now()
	order, err := s.checkout(ctx, input)
	s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	s.recordOutcome(span, input.UserID, order, err)
	return order, err
}

func (s *orderService) checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	input.TransactionID = ""
	if err := validatePlaceOrder(input.PlaceOrderInput); err != nil {
		return nil, err
	}

	if !input.PaymentMethod.RequiresGateway() {
		return s.placeOrder(ctx, input.PlaceOrderInput, nil)
	}

	quote, err := s.quote(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	receipt, err := s.charge(ctx, input, quote)
	if err != nil {
		return nil, err
	}

	input.TransactionID = receipt.TransactionID
	order, err := s.placeOrder(ctx, input.PlaceOrderInput, &receipt.Amount)
	if err != nil {
		s.logger.Error("Payment captured but order was not placed",
			zap.Int64("user_id", input.UserID),
			zap.String("transaction_id", receipt.TransactionID),
			zap.String("amount", receipt.Amount.StringFixed(2)),
			zap.Error(err),
		)
		return nil, err
	}
	return order, nil
}

// quote prices the cart from current catalog data without touching stock
func (s *orderService) quote(ctx context.Context, lines []domain.CartLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		if product.Stock < line.Quantity {
			return decimal.Zero, domain.NewProductError(line.ProductID, domain.ErrInsufficientStock)
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

func (s *orderService) charge(ctx context.Context, input CheckoutInput, amount decimal.Decimal) (*payment.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "payment.process")
	defer span.End()

	if s.paymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
	}

	receipt, err := s.gateway.Process(ctx, payment.Charge{
		Amount:      amount,
		Method:      input.PaymentMethod,
		CardDetails: input.CardDetails,
		UPIID:       input.UPIID,
		BankName:    input.BankName,
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if receipt.Status != domain.PaymentCompleted || receipt.TransactionID == "" {
		return nil, fmt.Errorf("%w: gateway returned status %q", domain.ErrPaymentFailed, receipt.Status)
	}

	span.SetAttributes(attribute.String("payment.transaction_id", receipt.TransactionID))
	return receipt, nil
}

// placeOrder runs the reservation saga. When charged is set the reserved
// total must match it exactly.
func (s *orderService) placeOrder(ctx context.Context, input PlaceOrderInput, charged *decimal.Decimal) (*domain.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	// Every product must exist before any stock is taken.
	for _, line := range input.Items {
		if _, err := s.products.FindByID(ctx, line.ProductID); err != nil {
			return nil, err
		}
	}

	// Store calls run detached from the caller so a disconnect cannot leave
	// a statement half-observed; the caller's context is checked between steps.
	work := context.WithoutCancel(ctx)

	var tx saga
	reservations := make([]*domain.Reservation, 0, len(input.Items))
	for _, line := range input.Items {
		if err := ctx.Err(); err != nil {
			return nil, s.abort(ctx, &tx, fmt.Errorf("checkout aborted: %w", err))
		}

		reservation, err := s.reserve(work, line)
		if err != nil {
			if errors.Is(err, domain.ErrOutcomeUnknown) {
				s.logger.Error("Stock reservation outcome unknown, decrement may be held",
					zap.Int64("product_id", line.ProductID),
					zap.Int("quantity", line.Quantity),
					zap.Error(err),
				)
			}
			return nil, s.abort(ctx, &tx, err)
		}
		reservations = append(reservations, reservation)

		productID, quantity := line.ProductID, line.Quantity
		tx.record(fmt.Sprintf("release product %d", productID), func(ctx context.Context) error {
			return s.inventory.Release(ctx, productID, quantity)
		})
	}

	order := &domain.Order{
		UserID:          input.UserID,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   domain.PaymentPending,
		OrderStatus:     domain.OrderProcessing,
		TransactionID:   strings.TrimSpace(input.TransactionID),
		Items:           make([]domain.OrderItem, 0, len(reservations)),
	}
	if order.TransactionID != "" {
		order.PaymentStatus = domain.PaymentCompleted
	}
	for _, r := range reservations {
		summary := r.Product
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			Price:     r.UnitPrice,
			Product:   &summary,
		})
	}
	order.TotalAmount = order.ItemsTotal()

	if charged != nil && !order.TotalAmount.Equal(*charged) {
		s.logger.Warn("Reserved total differs from charged amount",
			zap.Int64("user_id", input.UserID),
			zap.String("charged", charged.StringFixed(2)),
			zap.String("total", order.TotalAmount.StringFixed(2)),
		)
		return nil, s.abort(ctx, &tx, domain.ErrPriceChanged)
	}

	if err := ctx.Err(); err != nil {
		return nil, s.abort(ctx, &tx, fmt.Errorf("checkout aborted: %w", err))
	}

	if err := s.commit(work, order); err != nil {
		if errors.Is(err, domain.ErrOutcomeUnknown) {
			// The order may exist, so its stock must stay taken.
			s.keepReservations(&tx, order, err)
			return nil, err
		}
		return nil, s.abort(ctx, &tx, err)
	}
	tx.forget()

	s.publish(ctx, events.TypeOrderCreated, order)
	return order, nil
}

func (s *orderService) reserve(ctx context.Context, line domain.CartLine) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.reserve", trace.WithAttributes(
		attribute.Int64("product.id", line.ProductID),
		attribute.Int("quantity", line.Quantity),
	))
	defer span.End()

	// A single autocommit statement. It is bounded by the database statement
	// timeout, which fails it cleanly, never by a client deadline.
	reservation, err := s.inventory.Reserve(ctx, line.ProductID, line.Quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return reservation, nil
}

func (s *orderService) commit(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "ledger.commit")
	defer span.End()

	if s.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommitTimeout)
		defer cancel()
	}

	if err := s.ledger.CreateOrderWithItems(ctx, order); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPersistence):
			return err
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return fmt.Errorf("%w: %w", domain.ErrOutcomeUnknown, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	return nil
}

// abort releases every reservation taken so far and returns cause. The
// releases run on a context that outlives the caller's.
func (s *orderService) abort(ctx context.Context, tx *saga, cause error) error {
	pending := tx.size()
	if pending == 0 {
		return cause
	}

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout())
	defer cancel()
	compCtx, span := s.tracer.Start(compCtx, "checkout.compensate", trace.WithAttributes(
		attribute.Int("reservations", pending),
	))
	defer span.End()

	err := tx.compensate(compCtx, func(step string, err error) {
		s.metrics.CompensationFailures.Inc()
		s.logger.Error("Failed to compensate checkout step",
			zap.String("step", step),
			zap.Error(err),
		)
	})

	released := pending
	if err != nil {
		span.RecordError(err)
		released = pending - len(unwrapJoined(err))
	}
	s.metrics.ReservationsReleased.Add(float64(released))
	s.logger.Info("Checkout compensated",
		zap.Int("reservations_released", released),
		zap.NamedError("cause", cause),
	)

	return cause
}

// keepReservations drops the pending compensations after a commit whose
// outcome is unknown and logs what is held so it can be reconciled.
func (s *orderService) keepReservations(tx *saga, order *domain.Order, cause error) {
	held := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		held = append(held, fmt.Sprintf("%d x%d", item.ProductID, item.Quantity))
	}
	tx.forget()

	s.logger.Error("Checkout commit outcome unknown, reservations kept",
		zap.Int64("user_id", order.UserID),
		zap.String("transaction_id", order.TransactionID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Strings("reservations", held),
		zap.Error(cause),
	)
}

func (s *orderService) compensationTimeout() time.Duration {
	if s.cfg.CompensationTimeout > 0 {
		return s.cfg.CompensationTimeout
	}
	return 5 * time.Second
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// publish emits an order event without ever failing the caller
func (s *orderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	timeout := s.cfg.EventPublishTimeout
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, events.NewOrderEvent(eventType, order)); err != nil {
		s.metrics.EventPublishFailures.WithLabelValues(eventType).Inc()
		s.logger.Warn("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *orderService) recordOutcome(span trace.Span, userID int64, order *domain.Order, err error) {
	if err == nil {
		s.metrics.CheckoutTotal.WithLabelValues(metrics.OutcomePlaced).Inc()
		span.SetAttributes(attribute.Int64("order.id", order.ID))
		s.logger.Info("Order placed",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", userID),
			zap.String("total_amount", order.TotalAmount.StringFixed(2)),
			zap.String("payment_status", string(order.PaymentStatus)),
			zap.Int("items", len(order.Items)),
		)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields := []zap.Field{zap.Int64("user_id", userID), zap.Error(err)}
	if productID, ok := domain.ProductIDFrom(err); ok {
		fields = append(fields, zap.Int64("product_id", productID))
	}

	switch {
	case errors.Is(err, domain.ErrOutcomeUnknown):
		s.metrics.CheckoutTotal.WithLabelValues(metrics.OutcomeUnknown).Inc()
		s.logger.Error("Order placement outcome unknown", fields...)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		s.metrics.CheckoutTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		s.logger.Info("Order rejected", fields...)
	case errors.Is(err, domain.ErrUpstream):
		s.metrics.CheckoutTotal.WithLabelValues(metrics.OutcomePaymentError).Inc()
		s.logger.Warn("Order payment failed", fields...)
	default:
		s.metrics.CheckoutTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.Error("Order placement failed", fields...)
	}
}

// ListOrders returns the requester's orders, newest first
func (s *orderService) ListOrders(ctx context.Context, requester authz.Principal) ([]*domain.Order, error) {
	orders, err := s.ledger.FindAllForUser(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order visible to the requester
func (s *orderService) GetOrder(ctx context.Context, requester authz.Principal, orderID int64) (*domain.Order, error) {
	order, err := s.ledger.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(requester, authz.Resource{OwnerID: order.UserID}, authz.ActionReadOrder); err != nil {
		s.logger.Warn("Order access denied",
			zap.Int64("order_id", orderID),
			zap.Int64("user_id", requester.UserID),
		)
		return nil, err
	}

	return order, nil
}

// UpdateOrderStatus overwrites the status of an order. Any valid status may
// follow any other.
func (s *orderService) UpdateOrderStatus(ctx context.Context, requester authz.Principal, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if err := authz.Authorize(requester, authz.Resource{}, authz.ActionUpdateOrderStatus); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidOrderStatus
	}

	if err := s.ledger.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order, err := s.ledger.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("order_status", string(status)),
		zap.Int64("admin_id", requester.UserID),
	)
	s.publish(ctx, events.TypeOrderStatusUpdated, order)

	return order, nil
}
