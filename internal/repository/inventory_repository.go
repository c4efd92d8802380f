package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

// InventoryStore owns authoritative stock counts. Every mutation is a single
// conditional statement against one product row.
type InventoryStore interface {
	// Reserve decrements stock by quantity if and only if enough stock is
	// available, returning the product state read by that same statement.
	Reserve(ctx context.Context, productID int64, quantity int) (*domain.Reservation, error)
	// Release returns previously reserved quantity to stock.
	Release(ctx context.Context, productID int64, quantity int) error
}

type inventoryStore struct {
	db *sql.DB
}

// NewInventoryStore creates a Postgres backed InventoryStore
func NewInventoryStore(db *sql.DB) InventoryStore {
	return &inventoryStore{db: db}
}

func (s *inventoryStore) Reserve(ctx context.Context, productID int64, quantity int) (*domain.Reservation, error) {
	if quantity < 1 {
		return nil, domain.NewProductError(productID, domain.ErrInvalidQuantity)
	}

	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
		RETURNING id, name, image, price
	`

	reservation := &domain.Reservation{ProductID: productID, Quantity: quantity}
	err := s.db.QueryRowContext(ctx, query, productID, quantity).Scan(
		&reservation.Product.ID,
		&reservation.Product.Name,
		&reservation.Product.Image,
		&reservation.UnitPrice,
	)
	if err == nil {
		return reservation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, writeFailure("reserve stock", err)
	}

	// Nothing matched: either the product is gone or stock was short.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: failed to check product: %v", domain.ErrPersistence, err)
	}
	if !exists {
		return nil, domain.NewProductError(productID, domain.ErrProductNotFound)
	}
	return nil, domain.NewProductError(productID, domain.ErrInsufficientStock)
}

func (s *inventoryStore) Release(ctx context.Context, productID int64, quantity int) error {
	result, err := s.db.ExecContext(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, productID, quantity)
	if err != nil {
		return fmt.Errorf("%w: failed to release stock: %v", domain.ErrPersistence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", domain.ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return domain.NewProductError(productID, domain.ErrProductNotFound)
	}

	return nil
}
