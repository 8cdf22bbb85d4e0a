package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/agromart/agromart-golang/internal/cache"
	"github.com/agromart/agromart-golang/internal/events"
	"github.com/agromart/agromart-golang/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence contract the orchestrator runs on. The
// MySQL implementation lives in internal/store; tests substitute mocks.
//
// Methods that mutate an order are status-guarded: they apply only if
// the row is still in the expected state and report whether they did,
// so concurrent callers get at-most-once effects.
type Store interface {
	// --- products ---
	GetProductForSale(ctx context.Context, productID int64) (*models.Product, error)

	// --- cart ---
	GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) error
	SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) error

	// --- orders ---
	// CreateOrder persists the order and its line snapshots atomically,
	// re-checking stock under row locks (all-or-nothing) and clearing the
	// cart in the same transaction when clearCart is set.
	CreateOrder(ctx context.Context, order *models.Order, clearCart bool) error
	GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	SetGatewayOrder(ctx context.Context, orderID int64, gatewayOrderID string) error
	// ConfirmPayment moves pending -> confirmed, records the payment id
	// and decrements stock, all in one guarded transaction. Returns false
	// when the order was no longer pending.
	ConfirmPayment(ctx context.Context, orderID int64, paymentID string) (bool, error)
	// UpdateStatus applies from -> to only if the row still holds from.
	UpdateStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error)
	CancelOverdueOrders(ctx context.Context, before time.Time) (int64, error)
}

// Gateway is the payment-gateway contract (implemented by payments.Client).
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (string, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
	KeyID() string
}

// Publisher emits order lifecycle events (implemented by events.Producer).
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service owns the cart-to-order-to-payment lifecycle.
type Service struct {
	store    Store
	gateway  Gateway
	cache    cache.CartCache // optional
	events   Publisher       // optional
	currency string
}

func NewService(store Store, gateway Gateway, cartCache cache.CartCache, publisher Publisher) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		cache:    cartCache,
		events:   publisher,
		currency: "INR",
	}
}

// Order source values.
const (
	OrderTypeCart   = "cart"
	OrderTypeBuyNow = "buynow"
)

// OrderItemInput is one explicit (product, quantity) pair for buy-now.
type OrderItemInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// CreateOrderInput parameterizes order creation by item source:
// buy-now carries explicit items, cart checkout takes the current
// cart contents (and clears the cart atomically with creation).
type CreateOrderInput struct {
	OrderType       string           `json:"order_type" binding:"required,oneof=cart buynow"`
	Items           []OrderItemInput `json:"items,omitempty"`
	ShippingAddress string           `json:"shipping_address,omitempty"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty"`
}

// CreateOrder validates the requested lines, snapshots current prices,
// computes totals and persists a new PENDING order. All-or-nothing: if
// any line cannot be fulfilled, no order is created and the cart is
// left untouched.
func (s *Service) CreateOrder(ctx context.Context, userID int64, input CreateOrderInput) (*models.Order, error) {
	// 1. --- Idempotency Replay ---
	// A retried request with the same key returns the order already
	// created instead of a duplicate.
	if input.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, userID, input.IdempotencyKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	// 2. --- Build Line Snapshots ---
	var lines []models.OrderLine
	var err error

	fromCart := input.OrderType == OrderTypeCart
	if fromCart {
		lines, err = s.linesFromCart(ctx, userID)
	} else {
		lines, err = s.linesFromItems(ctx, input.Items)
	}
	if err != nil {
		return nil, err
	}

	// 3. --- Compute Totals (frozen with the snapshot) ---
	totals := models.ComputeTotals(lines)

	now := time.Now()
	delivery := models.EstimateDelivery(now, 7)

	order := &models.Order{
		UserID:        userID,
		Status:        models.StatusPending,
		OrderType:     input.OrderType,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Shipping:      totals.Shipping,
		TotalAmount:   totals.Total,
		PaymentStatus: models.PaymentPending,
		DeliveryDate:  &delivery,
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines:         lines,
	}
	if input.ShippingAddress != "" {
		order.ShippingAddress = &input.ShippingAddress
	}
	if input.IdempotencyKey != "" {
		order.IdempotencyKey = &input.IdempotencyKey
	}

	// 4. --- Persist (stock re-checked under lock, cart cleared in-tx) ---
	if err := s.store.CreateOrder(ctx, order, fromCart); err != nil {
		return nil, err
	}

	if fromCart {
		s.invalidateCart(userID)
	}

	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// linesFromCart snapshots the user's current cart contents.
func (s *Service) linesFromCart(ctx context.Context, userID int64) ([]models.OrderLine, error) {
	cartLines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrNotFound)
	}

	lines := make([]models.OrderLine, 0, len(cartLines))
	for _, cl := range cartLines {
		if cl.Stock < cl.Quantity {
			return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, cl.ProductID)
		}
		lines = append(lines, models.OrderLine{
			ProductID:   cl.ProductID,
			ProductName: cl.ProductName,
			Category:    cl.Category,
			UnitPrice:   cl.Price,
			Quantity:    cl.Quantity,
		})
	}
	return lines, nil
}

// linesFromItems snapshots an explicit buy-now item list.
func (s *Service) linesFromItems(ctx context.Context, items []OrderItemInput) ([]models.OrderLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1 for product %d", ErrValidation, item.ProductID)
		}

		product, err := s.store.GetProductForSale(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: product %d does not exist", ErrValidation, item.ProductID)
			}
			return nil, err
		}
		if product.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
		}

		lines = append(lines, models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Category:    product.Category,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
	}
	return lines, nil
}

// GatewayOrder is the result of CreateGatewayOrder: everything the
// storefront needs to open the payment widget.
type GatewayOrder struct {
	OrderID        int64  `json:"order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	AmountPaise    int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

// CreateGatewayOrder registers a payment intent with the gateway for a
// PENDING order and stores the returned gateway order id. Calling it
// again for the same order returns the already-registered intent
// rather than creating a duplicate at the gateway.
func (s *Service) CreateGatewayOrder(ctx context.Context, userID, orderID int64) (*GatewayOrder, error) {
	order, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order %d is %s, payment can only start while pending",
			ErrInvalidTransition, orderID, order.Status)
	}

	amount := models.AmountPaise(order.TotalAmount)

	if order.GatewayOrderID != nil {
		return &GatewayOrder{
			OrderID:        orderID,
			GatewayOrderID: *order.GatewayOrderID,
			AmountPaise:    amount,
			Currency:       s.currency,
			KeyID:          s.gateway.KeyID(),
		}, nil
	}

	receipt := fmt.Sprintf("order_rcpt_%d", orderID)
	notes := map[string]string{
		"order_id": strconv.FormatInt(orderID, 10),
		"user_id":  strconv.FormatInt(userID, 10),
	}

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, amount, s.currency, receipt, notes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.store.SetGatewayOrder(ctx, orderID, gatewayOrderID); err != nil {
		return nil, err
	}

	return &GatewayOrder{
		OrderID:        orderID,
		GatewayOrderID: gatewayOrderID,
		AmountPaise:    amount,
		Currency:       s.currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

// VerifyPayment checks the gateway's payment signature and, on the
// first valid call, confirms the order and decrements stock. The
// operation is idempotent: repeating it with the same valid triple
// returns CONFIRMED without any further side effects. The gateway
// order id must be the one registered for this order, so a signature
// valid for one order can never confirm another.
func (s *Service) VerifyPayment(ctx context.Context, userID, orderID int64, paymentID, gatewayOrderID, signature string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.GatewayOrderID == nil || *order.GatewayOrderID != gatewayOrderID {
		return nil, fmt.Errorf("%w: gateway order does not match order %d", ErrValidation, orderID)
	}

	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		return nil, fmt.Errorf("%w: order %d", ErrSignature, orderID)
	}

	// Replay of an already-verified payment: report success, do nothing.
	if order.PaymentStatus == models.PaymentCompleted &&
		order.GatewayPaymentID != nil && *order.GatewayPaymentID == paymentID {
		return order, nil
	}

	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, orderID, order.Status)
	}

	applied, err := s.store.ConfirmPayment(ctx, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to a concurrent verification. If that verification
		// recorded the same payment, this call still succeeds idempotently.
		order, err = s.store.GetOrder(ctx, userID, orderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == models.PaymentCompleted &&
			order.GatewayPaymentID != nil && *order.GatewayPaymentID == paymentID {
			return order, nil
		}
		return nil, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, orderID, order.Status)
	}

	order.Status = models.StatusConfirmed
	order.PaymentStatus = models.PaymentCompleted
	order.GatewayPaymentID = &paymentID

	s.publish(ctx, events.OrderConfirmed, order)
	return order, nil
}

// UpdateStatus applies an administrative forward move on the
// transition graph.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, requested models.OrderStatus) (*models.Order, error) {
	if !requested.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, requested)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(requested) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, requested)
	}

	applied, err := s.store.UpdateStatus(ctx, orderID, order.Status, requested)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, orderID)
	}

	order.Status = requested
	s.publish(ctx, events.OrderStatusChanged, order)
	return order, nil
}

// CancelOrder is the owner-initiated cancellation, allowed from any
// pre-shipped state.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, models.StatusCancelled)
	}

	applied, err := s.store.UpdateStatus(ctx, orderID, order.Status, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, orderID)
	}

	order.Status = models.StatusCancelled
	s.publish(ctx, events.OrderCancelled, order)
	return order, nil
}

// GetOrder returns one of the caller's orders with its line snapshots.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return s.store.GetOrder(ctx, userID, orderID)
}

// ListOrders returns the caller's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.ListOrders(ctx, userID)
}

// CancelOverdue cancels PENDING orders whose payment never arrived.
// Called from the background sweeper.
func (s *Service) CancelOverdue(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.CancelOverdueOrders(ctx, time.Now().Add(-olderThan))
}

// publish emits a lifecycle event. Best-effort: a broker failure is
// logged and never fails the request that triggered it.
func (s *Service) publish(ctx context.Context, name string, order *models.Order) {
	if s.events == nil {
		return
	}

	event := events.OrderEvent{
		EventID:     uuid.NewString(),
		Event:       name,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status.String(),
		TotalAmount: order.TotalAmount,
		Timestamp:   time.Now(),
	}

	if err := s.events.Publish(ctx, strconv.FormatInt(order.ID, 10), event); err != nil {
		log.Printf("event publish error (%s, order %d): %v", name, order.ID, err)
	}
}
