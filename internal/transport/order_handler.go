package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShippingAddressRequest is the address block of an order payload
type ShippingAddressRequest struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

func (a ShippingAddressRequest) toDomain() domain.Address {
	return domain.Address{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

// PlaceOrderRequest represents a cart submitted for checkout
type PlaceOrderRequest struct {
	Items           []domain.CartLine       `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *ShippingAddressRequest `json:"shippingAddress" validate:"required"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod" validate:"required,payment_method"`
	TransactionID   string                  `json:"transactionId" validate:"omitempty,max=100"`
}

// CheckoutRequest is a cart paid for as part of the same call
type CheckoutRequest struct {
	Items           []domain.CartLine       `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *ShippingAddressRequest `json:"shippingAddress" validate:"required"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod" validate:"required,payment_method"`
	CardDetails     *payment.CardDetails    `json:"cardDetails"`
	UPIID           string                  `json:"upiId" validate:"omitempty,max=100"`
	BankName        string                  `json:"bankName" validate:"omitempty,max=100"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	OrderStatus domain.OrderStatus `json:"orderStatus" validate:"required,order_status"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. checkoutLimits wrap the two
// order-creating endpoints only.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, checkoutLimits ...func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(checkoutLimits...).Post("/", h.PlaceOrder)
		r.With(checkoutLimits...).Post("/checkout", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})
}

// PlaceOrder records an order for a cart whose payment, if any, already happened
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:          principal.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress.toDomain(),
		PaymentMethod:   req.PaymentMethod,
		TransactionID:   req.TransactionID,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// Checkout charges the cart through the payment gateway and then records the order
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orderService.PlaceOrderWithPayment(r.Context(), service.CheckoutInput{
		PlaceOrderInput: service.PlaceOrderInput{
			UserID:          principal.UserID,
			Items:           req.Items,
			ShippingAddress: req.ShippingAddress.toDomain(),
			PaymentMethod:   req.PaymentMethod,
		},
		CardDetails: req.CardDetails,
		UPIID:       req.UPIID,
		BankName:    req.BankName,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), principal)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order to its owner or an admin
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), principal, id)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus overwrites an order's status. Admin only.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), principal, id, req.OrderStatus)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
