package repository

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(userID int64, items ...domain.OrderItem) *domain.Order {
	order := &domain.Order{
		UserID:          userID,
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.PaymentCreditCard,
		PaymentStatus:   domain.PaymentCompleted,
		OrderStatus:     domain.OrderProcessing,
		TransactionID:   "TXN123",
		Items:           items,
	}
	order.TotalAmount = order.ItemsTotal()
	return order
}

func TestCreateOrderWithItemsHydratesOnRead(t *testing.T) {
	resetTables(t)
	ledger := NewOrderLedger(testDB)
	ctx := context.Background()

	user := createTestUser(t, "ledger@example.com")
	phone := createTestProduct(t, "Phone", "100.00", 5)
	cable := createTestProduct(t, "Cable", "9.50", 5)

	order := newTestOrder(user.ID,
		domain.OrderItem{ProductID: phone.ID, Quantity: 2, Price: phone.Price},
		domain.OrderItem{ProductID: cable.ID, Quantity: 1, Price: cable.Price},
	)
	require.NoError(t, ledger.CreateOrderWithItems(ctx, order))
	require.NotZero(t, order.ID)

	found, err := ledger.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("209.50")))
	assert.Equal(t, "TXN123", found.TransactionID)
	assert.Equal(t, testAddress(), found.ShippingAddress)
	require.NotNil(t, found.User)
	assert.Equal(t, "ledger@example.com", found.User.Email)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Phone", found.Items[0].Product.Name)
	assert.True(t, found.TotalAmount.Equal(found.ItemsTotal()))
}

func TestOrderItemPriceIsASnapshot(t *testing.T) {
	resetTables(t)
	ledger := NewOrderLedger(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t, "snapshot@example.com")
	product := createTestProduct(t, "Volatile", "100.00", 5)

	order := newTestOrder(user.ID, domain.OrderItem{ProductID: product.ID, Quantity: 2, Price: product.Price})
	require.NoError(t, ledger.CreateOrderWithItems(ctx, order))

	product.Price = decimal.RequireFromString("250.00")
	require.NoError(t, products.Update(ctx, product))

	found, err := ledger.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, found.Items[0].Price.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("200.00")))
}

func TestCreateOrderRollsBackOnBadItem(t *testing.T) {
	resetTables(t)
	ledger := NewOrderLedger(testDB)
	ctx := context.Background()

	user := createTestUser(t, "rollback@example.com")
	product := createTestProduct(t, "Real", "1.00", 5)

	order := newTestOrder(user.ID,
		domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: product.Price},
		domain.OrderItem{ProductID: 987654, Quantity: 1, Price: product.Price},
	)
	err := ledger.CreateOrderWithItems(ctx, order)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	var count int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&count))
	assert.Zero(t, count)
}

func TestFindAllForUserNewestFirst(t *testing.T) {
	resetTables(t)
	ledger := NewOrderLedger(testDB)
	ctx := context.Background()

	user := createTestUser(t, "history@example.com")
	other := createTestUser(t, "other@example.com")
	product := createTestProduct(t, "Repeat", "3.00", 50)

	var ids []int64
	for i := 0; i < 3; i++ {
		order := newTestOrder(user.ID, domain.OrderItem{ProductID: product.ID, Quantity: i + 1, Price: product.Price})
		require.NoError(t, ledger.CreateOrderWithItems(ctx, order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, ledger.CreateOrderWithItems(ctx, newTestOrder(other.ID, domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: product.Price})))

	orders, err := ledger.FindAllForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, ids[2], orders[0].ID)
	assert.Equal(t, ids[0], orders[2].ID)
	for _, order := range orders {
		require.Len(t, order.Items, 1)
		assert.True(t, order.TotalAmount.Equal(order.ItemsTotal()))
	}
}

func TestUpdateStatusAndCascade(t *testing.T) {
	resetTables(t)
	ledger := NewOrderLedger(testDB)
	ctx := context.Background()

	user := createTestUser(t, "status@example.com")
	product := createTestProduct(t, "Shippable", "3.00", 5)
	order := newTestOrder(user.ID, domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: product.Price})
	require.NoError(t, ledger.CreateOrderWithItems(ctx, order))

	require.NoError(t, ledger.UpdateStatus(ctx, order.ID, domain.OrderShipped))
	found, err := ledger.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, found.OrderStatus)

	assert.ErrorIs(t, ledger.UpdateStatus(ctx, 999999, domain.OrderShipped), domain.ErrOrderNotFound)

	_, err = testDB.Exec(`DELETE FROM orders WHERE id = $1`, order.ID)
	require.NoError(t, err)
	var count int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&count))
	assert.Zero(t, count)
}
