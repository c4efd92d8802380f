package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
)

// OrderLedger is the append-create store of orders and their line items
type OrderLedger interface {
	// CreateOrderWithItems writes the order and all of its items in one
	// transaction, filling in generated ids and timestamps.
	CreateOrderWithItems(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindAllForUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type orderLedger struct {
	db *sql.DB
}

// NewOrderLedger creates a Postgres backed OrderLedger
func NewOrderLedger(db *sql.DB) OrderLedger {
	return &orderLedger{db: db}
}

func (l *orderLedger) CreateOrderWithItems(ctx context.Context, order *domain.Order) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	orderQuery := `
		INSERT INTO orders (user_id, total_amount, shipping_address, payment_method, payment_status, order_status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, orderQuery,
		order.UserID,
		order.TotalAmount,
		order.ShippingAddress,
		order.PaymentMethod,
		order.PaymentStatus,
		order.OrderStatus,
		order.TransactionID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%w: failed to insert order: %v", domain.ErrPersistence, err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx, itemQuery, item.OrderID, item.ProductID, item.Quantity, item.Price).
			Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.NewProductError(item.ProductID, domain.ErrProductNotFound)
			}
			return fmt.Errorf("%w: failed to insert order item: %v", domain.ErrPersistence, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return writeFailure("commit order", err)
	}

	return nil
}

const orderColumns = `o.id, o.user_id, o.total_amount, o.shipping_address, o.payment_method,
	o.payment_status, o.order_status, COALESCE(o.transaction_id, ''), o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...any) error }, extra ...any) (*domain.Order, error) {
	order := &domain.Order{}
	dest := []any{
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.OrderStatus,
		&order.TransactionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID returns the order with its items, their product summaries and
// the owner summary.
func (l *orderLedger) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `, u.id, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`

	owner := &domain.UserSummary{}
	order, err := scanOrder(l.db.QueryRowContext(ctx, query, id), &owner.ID, &owner.Name, &owner.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	order.User = owner

	if err := l.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// FindAllForUser returns the user's orders, newest first
func (l *orderLedger) FindAllForUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := l.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateStatus overwrites the order status
func (l *orderLedger) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := l.db.ExecContext(ctx, `UPDATE orders SET order_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// attachItems loads the items of all given orders with a single query
func (l *orderLedger) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	placeholders := make([]string, 0, len(orders))
	args := make([]interface{}, 0, len(orders))
	for _, order := range orders {
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
		args = append(args, order.ID)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
		       p.id, p.name, p.image
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.order_id, oi.id
	`, strings.Join(placeholders, ", "))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		summary := &domain.ProductSummary{}
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&summary.ID,
			&summary.Name,
			&summary.Image,
		); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Product = summary
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}
