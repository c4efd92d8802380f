package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubOrderService records what the handler passed and returns canned results
type stubOrderService struct {
	mu        sync.Mutex
	placed    []service.PlaceOrderInput
	checkouts []service.CheckoutInput
	err       error
	orders    map[int64]*domain.Order
}

func newStubOrderService() *stubOrderService {
	return &stubOrderService{orders: make(map[int64]*domain.Order)}
}

func (s *stubOrderService) order(input service.PlaceOrderInput) *domain.Order {
	order := &domain.Order{
		ID:              int64(len(s.orders) + 1),
		UserID:          input.UserID,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   domain.PaymentPending,
		OrderStatus:     domain.OrderProcessing,
		TransactionID:   input.TransactionID,
		TotalAmount:     decimal.RequireFromString("20.00"),
	}
	s.orders[order.ID] = order
	return order
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, input service.PlaceOrderInput) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed = append(s.placed, input)
	if s.err != nil {
		return nil, s.err
	}
	return s.order(input), nil
}

func (s *stubOrderService) PlaceOrderWithPayment(ctx context.Context, input service.CheckoutInput) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkouts = append(s.checkouts, input)
	if s.err != nil {
		return nil, s.err
	}
	input.TransactionID = "TXN1"
	order := s.order(input.PlaceOrderInput)
	order.PaymentStatus = domain.PaymentCompleted
	return order, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, requester authz.Principal) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []*domain.Order
	for _, order := range s.orders {
		if order.UserID == requester.UserID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, requester authz.Principal, orderID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := authz.Authorize(requester, authz.Resource{OwnerID: order.UserID}, authz.ActionReadOrder); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, requester authz.Principal, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if err := authz.Authorize(requester, authz.Resource{}, authz.ActionUpdateOrderStatus); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order.OrderStatus = status
	return order, nil
}

func newOrderRouter(svc service.OrderService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop()).RegisterRoutes(r, middleware.AuthMiddleware(testTokens, zap.NewNop()))
	return r
}

func tokenFor(t *testing.T, userID int64, role domain.Role) string {
	t.Helper()
	token, err := testTokens.Generate(&domain.User{ID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func validOrderRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []domain.CartLine{{ProductID: 1, Quantity: 2}},
		ShippingAddress: &ShippingAddressRequest{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "USA",
		},
		PaymentMethod: domain.PaymentCashOnDelivery,
	}
}

func TestPlaceOrderRequiresAuthentication(t *testing.T) {
	svc := newStubOrderService()
	w := doJSON(newOrderRouter(svc), http.MethodPost, "/api/orders", validOrderRequest(), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.placed)
}

func TestPlaceOrderUsesCallerIdentity(t *testing.T) {
	svc := newStubOrderService()
	token := tokenFor(t, 42, domain.RoleUser)

	w := doJSON(newOrderRouter(svc), http.MethodPost, "/api/orders", validOrderRequest(), token)
	require.Equal(t, http.StatusCreated, w.Code)

	var order domain.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	assert.Equal(t, int64(42), order.UserID)
	require.Len(t, svc.placed, 1)
	assert.Equal(t, int64(42), svc.placed[0].UserID)
	assert.Equal(t, "Springfield", svc.placed[0].ShippingAddress.City)
}

func TestPlaceOrderRejectsMalformedCarts(t *testing.T) {
	token := tokenFor(t, 1, domain.RoleUser)

	cases := map[string]func(req *PlaceOrderRequest){
		"empty cart":       func(req *PlaceOrderRequest) { req.Items = nil },
		"zero quantity":    func(req *PlaceOrderRequest) { req.Items[0].Quantity = 0 },
		"missing address":  func(req *PlaceOrderRequest) { req.ShippingAddress = nil },
		"partial address":  func(req *PlaceOrderRequest) { req.ShippingAddress.ZipCode = "" },
		"unknown method":   func(req *PlaceOrderRequest) { req.PaymentMethod = "Barter" },
		"missing product":  func(req *PlaceOrderRequest) { req.Items[0].ProductID = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newStubOrderService()
			req := validOrderRequest()
			mutate(&req)

			w := doJSON(newOrderRouter(svc), http.MethodPost, "/api/orders", req, token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, svc.placed)
		})
	}
}

func TestPlaceOrderMapsCheckoutErrors(t *testing.T) {
	token := tokenFor(t, 1, domain.RoleUser)

	cases := []struct {
		name      string
		err       error
		status    int
		productID float64
	}{
		{"insufficient stock", domain.NewProductError(7, domain.ErrInsufficientStock), http.StatusBadRequest, 7},
		{"unknown product", domain.NewProductError(9, domain.ErrProductNotFound), http.StatusNotFound, 9},
		{"price changed", domain.ErrPriceChanged, http.StatusConflict, 0},
		{"payment failed", domain.ErrPaymentFailed, http.StatusBadGateway, 0},
		{"ledger down", domain.ErrPersistence, http.StatusInternalServerError, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newStubOrderService()
			svc.err = tc.err

			w := doJSON(newOrderRouter(svc), http.MethodPost, "/api/orders", validOrderRequest(), token)
			require.Equal(t, tc.status, w.Code)

			var response middleware.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			if tc.productID != 0 {
				assert.Equal(t, tc.productID, response.Error.Details["product_id"])
			}
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", response.Error.Message)
			}
		})
	}
}

func TestCheckoutPassesPaymentDetails(t *testing.T) {
	svc := newStubOrderService()
	token := tokenFor(t, 3, domain.RoleUser)

	base := validOrderRequest()
	req := CheckoutRequest{
		Items:           base.Items,
		ShippingAddress: base.ShippingAddress,
		PaymentMethod:   domain.PaymentUPI,
		UPIID:           "shopper@upi",
	}

	w := doJSON(newOrderRouter(svc), http.MethodPost, "/api/orders/checkout", req, token)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, svc.checkouts, 1)
	assert.Equal(t, "shopper@upi", svc.checkouts[0].UPIID)
	assert.Equal(t, domain.PaymentUPI, svc.checkouts[0].PaymentMethod)
	assert.Empty(t, svc.checkouts[0].TransactionID)
}

func TestListOrdersReturnsEmptyArray(t *testing.T) {
	token := tokenFor(t, 5, domain.RoleUser)

	w := doJSON(newOrderRouter(newStubOrderService()), http.MethodGet, "/api/orders", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetOrderEnforcesOwnership(t *testing.T) {
	svc := newStubOrderService()
	r := newOrderRouter(svc)

	owner := tokenFor(t, 10, domain.RoleUser)
	stranger := tokenFor(t, 11, domain.RoleUser)
	admin := tokenFor(t, 99, domain.RoleAdmin)

	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/orders", validOrderRequest(), owner).Code)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/orders/1", nil, owner).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/api/orders/1", nil, stranger).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/orders/1", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/orders/404", nil, admin).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/orders/abc", nil, admin).Code)
}

func TestUpdateOrderStatusIsAdminOnly(t *testing.T) {
	svc := newStubOrderService()
	r := newOrderRouter(svc)

	owner := tokenFor(t, 10, domain.RoleUser)
	admin := tokenFor(t, 99, domain.RoleAdmin)
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/orders", validOrderRequest(), owner).Code)

	shipped := UpdateStatusRequest{OrderStatus: domain.OrderShipped}
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPut, "/api/orders/1/status", shipped, owner).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/orders/1/status", UpdateStatusRequest{OrderStatus: "Lost"}, admin).Code)

	w := doJSON(r, http.MethodPut, "/api/orders/1/status", shipped, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var order domain.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	assert.Equal(t, domain.OrderShipped, order.OrderStatus)
}

func TestCheckoutLimitsWrapOnlyOrderCreation(t *testing.T) {
	svc := newStubOrderService()
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middleware.RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}

	r := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop()).RegisterRoutes(r, middleware.AuthMiddleware(testTokens, zap.NewNop()), blocked)
	token := tokenFor(t, 1, domain.RoleUser)

	assert.Equal(t, http.StatusTooManyRequests, doJSON(r, http.MethodPost, "/api/orders", validOrderRequest(), token).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/orders", nil, token).Code)
	assert.Empty(t, svc.placed)
}
