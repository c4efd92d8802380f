package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/payment"

	"go.uber.org/zap"
)

// PaymentService exposes the gateway to shoppers outside of checkout
type PaymentService interface {
	Process(ctx context.Context, userID int64, charge payment.Charge) (*payment.Receipt, error)
	Verify(ctx context.Context, transactionID string) (*payment.Verification, error)
	Methods() []payment.Method
}

type paymentService struct {
	gateway payment.Gateway
	timeout time.Duration
	logger  *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(gateway payment.Gateway, timeout time.Duration, logger *zap.Logger) PaymentService {
	return &paymentService{gateway: gateway, timeout: timeout, logger: logger}
}

func (s *paymentService) Process(ctx context.Context, userID int64, charge payment.Charge) (*payment.Receipt, error) {
	if !charge.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !charge.Method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	receipt, err := s.gateway.Process(ctx, charge)
	if err != nil {
		s.logger.Warn("Payment failed",
			zap.Int64("user_id", userID),
			zap.String("payment_method", string(charge.Method)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Payment processed",
		zap.Int64("user_id", userID),
		zap.String("transaction_id", receipt.TransactionID),
		zap.String("amount", receipt.Amount.StringFixed(2)),
	)
	return receipt, nil
}

func (s *paymentService) Verify(ctx context.Context, transactionID string) (*payment.Verification, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction ID is required", domain.ErrValidation)
	}
	return s.gateway.Verify(ctx, transactionID)
}

func (s *paymentService) Methods() []payment.Method {
	return payment.Methods()
}
