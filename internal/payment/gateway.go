// Package payment provides the payment gateway adapter consumed by checkout.
// The bundled implementation is a simulator that always settles.
package payment

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge is a request to move money through the gateway
type Charge struct {
	Amount      decimal.Decimal
	Method      domain.PaymentMethod
	CardDetails *CardDetails
	UPIID       string
	BankName    string
}

// CardDetails is accepted for card payments and never persisted
type CardDetails struct {
	CardNumber string `json:"cardNumber"`
	CardName   string `json:"cardName"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// Receipt is the terminal outcome of a charge
type Receipt struct {
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Verification is the gateway's answer for a transaction id
type Verification struct {
	TransactionID string               `json:"transactionId"`
	Verified      bool                 `json:"verified"`
	Status        domain.PaymentStatus `json:"status"`
}

// Gateway is the external payment collaborator. Calls are synchronous and
// always terminal.
type Gateway interface {
	Process(ctx context.Context, charge Charge) (*Receipt, error)
	Verify(ctx context.Context, transactionID string) (*Verification, error)
}

// Method describes one payment option offered to shoppers
type Method struct {
	ID      string               `json:"id"`
	Name    domain.PaymentMethod `json:"name"`
	Enabled bool                 `json:"enabled"`
}

var methodSlugs = map[string]domain.PaymentMethod{
	"credit-card": domain.PaymentCreditCard,
	"debit-card":  domain.PaymentDebitCard,
	"upi":         domain.PaymentUPI,
	"net-banking": domain.PaymentNetBanking,
	"cod":         domain.PaymentCashOnDelivery,
}

// Methods lists the payment options in display order
func Methods() []Method {
	return []Method{
		{ID: "credit-card", Name: domain.PaymentCreditCard, Enabled: true},
		{ID: "debit-card", Name: domain.PaymentDebitCard, Enabled: true},
		{ID: "upi", Name: domain.PaymentUPI, Enabled: true},
		{ID: "net-banking", Name: domain.PaymentNetBanking, Enabled: true},
		{ID: "cod", Name: domain.PaymentCashOnDelivery, Enabled: true},
	}
}

// ParseMethod accepts either a display name ("Credit Card") or a slug ("credit-card")
func ParseMethod(raw string) (domain.PaymentMethod, error) {
	if m := domain.PaymentMethod(raw); m.Valid() {
		return m, nil
	}
	if m, ok := methodSlugs[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return m, nil
	}
	return "", domain.ErrInvalidPaymentMethod
}

// SimulatedGateway settles every charge after a fixed processing delay
type SimulatedGateway struct {
	delay time.Duration
	now   func() time.Time
}

// NewSimulatedGateway creates a gateway that waits delay before settling
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{delay: delay, now: time.Now}
}

func (g *SimulatedGateway) Process(ctx context.Context, charge Charge) (*Receipt, error) {
	if !charge.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !charge.Method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, ctx.Err())
		}
	}

	now := g.now()
	return &Receipt{
		TransactionID: NewTransactionID(now),
		Status:        domain.PaymentCompleted,
		Amount:        charge.Amount,
		PaymentMethod: charge.Method,
		Timestamp:     now.UTC(),
	}, nil
}

func (g *SimulatedGateway) Verify(_ context.Context, transactionID string) (*Verification, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("%w: transaction ID is required", domain.ErrValidation)
	}
	return &Verification{
		TransactionID: transactionID,
		Verified:      true,
		Status:        domain.PaymentCompleted,
	}, nil
}

// NewTransactionID returns "TXN" + unix milliseconds + 9 random base36 characters
func NewTransactionID(at time.Time) string {
	id := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(id[:8]), 36)
	for len(suffix) < 9 {
		suffix = "0" + suffix
	}
	return "TXN" + strconv.FormatInt(at.UnixMilli(), 10) + suffix[:9]
}
