package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error surfaced by services wraps exactly one of these.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrUpstream    = errors.New("upstream failure")
	ErrPersistence = errors.New("persistence failure")
)

var (
	ErrEmptyCart            = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	ErrInvalidAddress       = fmt.Errorf("%w: complete shipping address is required", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unsupported payment method", ErrValidation)
	ErrInvalidOrderStatus   = fmt.Errorf("%w: unsupported order status", ErrValidation)
	ErrInvalidAmount        = fmt.Errorf("%w: invalid payment amount", ErrValidation)

	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrProductInUse      = fmt.Errorf("%w: product is referenced by existing orders", ErrConflict)
	ErrEmailTaken        = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrPriceChanged      = fmt.Errorf("%w: price changed during checkout, please review your cart", ErrConflict)

	ErrPaymentFailed = fmt.Errorf("%w: payment was not completed", ErrUpstream)

	// ErrOutcomeUnknown marks a write whose result was never confirmed by the
	// database. It may or may not have been applied.
	ErrOutcomeUnknown = fmt.Errorf("%w: outcome of write is unknown", ErrPersistence)
)

// ProductError attaches the offending product to a checkout failure
type ProductError struct {
	ProductID int64
	Err       error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("%v (product %d)", e.Err, e.ProductID)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

// NewProductError wraps err with the product it concerns
func NewProductError(productID int64, err error) error {
	return &ProductError{ProductID: productID, Err: err}
}

// ProductIDFrom extracts the product id from a ProductError in err's chain
func ProductIDFrom(err error) (int64, bool) {
	var pe *ProductError
	if errors.As(err, &pe) {
		return pe.ProductID, true
	}
	return 0, false
}
