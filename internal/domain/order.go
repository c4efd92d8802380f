package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of accepted payment methods
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "Credit Card"
	PaymentDebitCard      PaymentMethod = "Debit Card"
	PaymentUPI            PaymentMethod = "UPI"
	PaymentNetBanking     PaymentMethod = "Net Banking"
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
)

// PaymentMethods lists every accepted payment method
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentCreditCard,
		PaymentDebitCard,
		PaymentUPI,
		PaymentNetBanking,
		PaymentCashOnDelivery,
	}
}

// Valid reports whether m is an accepted payment method
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods() {
		if m == known {
			return true
		}
	}
	return false
}

// RequiresGateway reports whether the method is settled through the payment gateway
func (m PaymentMethod) RequiresGateway() bool {
	return m != PaymentCashOnDelivery
}

// PaymentStatus tracks settlement of an order
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

// OrderStatus tracks fulfilment of an order
type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order is a placed order together with its line items
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	ShippingAddress Address         `json:"shippingAddress" db:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	OrderStatus     OrderStatus     `json:"orderStatus" db:"order_status"`
	TransactionID   string          `json:"transactionId,omitempty" db:"transaction_id"`
	Items           []OrderItem     `json:"items"`
	User            *UserSummary    `json:"user,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// ItemsTotal sums price * quantity over the order's items
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderItem is one line of an order. Price is the purchase-time snapshot and
// is never recomputed from the product.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"orderId" db:"order_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Product   *ProductSummary `json:"product,omitempty"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// Subtotal returns price * quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartLine is one requested (product, quantity) pair
type CartLine struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// Reservation records stock taken for one cart line, with enough
// information to release it again.
type Reservation struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Product   ProductSummary
}
