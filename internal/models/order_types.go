package models

import (
	"math"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// forwardTransitions is the full transition graph. Statuses only move
// forward; cancellation is a side exit available until the order ships.
var forwardTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	_, ok := forwardTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(forwardTransitions[s]) == 0
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the gateway side of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Order is the model for the 'orders' table.
type Order struct {
	ID     int64       `json:"id" db:"id"`
	UserID int64       `json:"userId" db:"user_id"`
	Status OrderStatus `json:"status" db:"status"`

	// "cart" or "buynow" — which path created the order.
	OrderType string `json:"orderType" db:"order_type"`

	// --- Amounts (frozen at creation) ---
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
	Tax         float64 `json:"tax" db:"tax"`
	Shipping    float64 `json:"shipping" db:"shipping"`
	TotalAmount float64 `json:"totalAmount" db:"total_amount"`

	ShippingAddress *string       `json:"shippingAddress,omitempty" db:"shipping_address"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" db:"payment_status"`

	// --- Gateway references ---
	GatewayOrderID   *string `json:"gatewayOrderId,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string `json:"gatewayPaymentId,omitempty" db:"gateway_payment_id"`

	// Optional client-supplied key so a retried create is not duplicated.
	IdempotencyKey *string `json:"-" db:"idempotency_key"`

	DeliveryDate *time.Time `json:"estimatedDelivery,omitempty" db:"delivery_date"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table, populated manually)
	Lines []OrderLine `json:"items,omitempty" db:"-"`
}

// OrderLine is the model for the 'order_lines' table.
// It is a snapshot, not a live product reference: name, category and
// unit price are copied at order-creation time and never change,
// even if the catalog does.
type OrderLine struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"orderId" db:"order_id"`
	ProductID   int64           `json:"productId" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Category    ProductCategory `json:"category" db:"category"`
	UnitPrice   float64         `json:"unitPrice" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// Pricing constants. Tax is a fixed rate; shipping is a flat fee
// waived above the free-shipping threshold.
const (
	TaxRate               = 0.18
	ShippingFee           = 50.0
	FreeShippingThreshold = 500.0
)

// OrderTotals is the breakdown produced by ComputeTotals.
type OrderTotals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// ComputeTotals computes the order amount breakdown from line snapshots.
// Invariant: Total == Subtotal + Tax + Shipping, computed once at
// order creation.
func ComputeTotals(lines []OrderLine) OrderTotals {
	var subtotal float64
	for _, line := range lines {
		subtotal += line.UnitPrice * float64(line.Quantity)
	}

	tax := math.Round(subtotal * TaxRate)

	shipping := ShippingFee
	if subtotal > FreeShippingThreshold {
		shipping = 0
	}

	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}

// AmountPaise converts a rupee amount to the gateway's minor units.
func AmountPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// EstimateDelivery returns a delivery date 7-10 business days out,
// skipping weekends, mirroring the storefront's estimate.
func EstimateDelivery(from time.Time, businessDays int) time.Time {
	if businessDays < 7 {
		businessDays = 7
	} else if businessDays > 10 {
		businessDays = 10
	}

	date := from.AddDate(0, 0, businessDays)
	for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		date = date.AddDate(0, 0, 1)
	}
	return date
}
