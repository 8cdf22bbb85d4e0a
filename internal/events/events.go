package events

import "time"

// Event names published on the order lifecycle topic.
const (
	OrderCreated       = "order.created"
	OrderConfirmed     = "order.confirmed"
	OrderCancelled     = "order.cancelled"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload for every order lifecycle event,
// keyed by order id so events for one order stay in partition order.
// EventID lets consumers deduplicate redeliveries.
type OrderEvent struct {
	EventID     string    `json:"event_id"`
	Event       string    `json:"event"`
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}
