package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessPaymentRequest asks the gateway to settle an amount
type ProcessPaymentRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod string               `json:"paymentMethod" validate:"required"`
	CardDetails   *payment.CardDetails `json:"cardDetails"`
	UPIID         string               `json:"upiId"`
	BankName      string               `json:"bankName"`
}

// VerifyPaymentRequest asks the gateway about a transaction
type VerifyPaymentRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
}

// PaymentHandler handles HTTP requests for the payment gateway
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers all payment routes. processLimits wrap the charge endpoint only.
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, processLimits ...func(http.Handler) http.Handler) {
	r.Route("/api/payment", func(r chi.Router) {
		r.Get("/methods", h.Methods)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.With(processLimits...).Post("/process", h.Process)
			r.Post("/verify", h.Verify)
		})
	})
}

// Process charges the gateway
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req ProcessPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	if !req.Amount.IsPositive() {
		middleware.RespondWithDomainError(w, domain.ErrInvalidAmount, h.logger)
		return
	}

	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	receipt, err := h.paymentService.Process(r.Context(), userID, payment.Charge{
		Amount:      req.Amount,
		Method:      method,
		CardDetails: req.CardDetails,
		UPIID:       req.UPIID,
		BankName:    req.BankName,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, receipt)
}

// Verify reports whether a transaction settled
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	verification, err := h.paymentService.Verify(r.Context(), req.TransactionID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, verification)
}

// Methods lists the payment options
func (h *PaymentHandler) Methods(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"methods": h.paymentService.Methods()})
}
