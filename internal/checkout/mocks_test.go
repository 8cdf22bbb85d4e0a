package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/agromart/agromart-golang/internal/cache"
	"github.com/agromart/agromart-golang/internal/models"
)

// mockStore is an in-memory Store with the same guard semantics as the
// MySQL implementation.
type mockStore struct {
	mu sync.Mutex

	products  map[int64]*models.Product
	cartItems map[int64]map[int64]int // userID -> productID -> quantity
	orders    map[int64]*models.Order
	nextID    int64

	stockDecrements map[int64]int // productID -> times decremented
	gatewayCalls    int

	err error // when set, every call fails with it
}

func newMockStore() *mockStore {
	return &mockStore{
		products:        make(map[int64]*models.Product),
		cartItems:       make(map[int64]map[int64]int),
		orders:          make(map[int64]*models.Order),
		stockDecrements: make(map[int64]int),
	}
}

func (m *mockStore) addProduct(id int64, name string, price float64, stock int) {
	m.products[id] = &models.Product{
		ID:            id,
		Name:          name,
		Category:      models.CategoryFertilizer,
		Price:         price,
		StockQuantity: stock,
	}
}

func (m *mockStore) addCartItem(userID, productID int64, quantity int) {
	if m.cartItems[userID] == nil {
		m.cartItems[userID] = make(map[int64]int)
	}
	m.cartItems[userID][productID] += quantity
}

func (m *mockStore) GetProductForSale(_ context.Context, productID int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) GetCartLines(_ context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var lines []models.CartLine
	for productID, qty := range m.cartItems[userID] {
		p := m.products[productID]
		lines = append(lines, models.CartLine{
			ProductID:   productID,
			ProductName: p.Name,
			Category:    p.Category,
			Price:       p.Price,
			Quantity:    qty,
			Stock:       p.StockQuantity,
		})
	}
	return lines, nil
}

func (m *mockStore) UpsertCartItem(_ context.Context, userID, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cartItems[userID] == nil {
		m.cartItems[userID] = make(map[int64]int)
	}
	m.cartItems[userID][productID] += quantity
	return nil
}

func (m *mockStore) SetCartItemQuantity(_ context.Context, userID, productID int64, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.cartItems[userID][productID]; !ok {
		return false, nil
	}
	m.cartItems[userID][productID] = quantity
	return true, nil
}

func (m *mockStore) RemoveCartItem(_ context.Context, userID, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.cartItems[userID][productID]; !ok {
		return false, nil
	}
	delete(m.cartItems[userID], productID)
	return true, nil
}

func (m *mockStore) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.cartItems, userID)
	return nil
}

func (m *mockStore) CreateOrder(_ context.Context, order *models.Order, clearCart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	// All-or-nothing stock re-check, like the SQL transaction.
	for _, line := range order.Lines {
		p, ok := m.products[line.ProductID]
		if !ok || p.StockQuantity < line.Quantity {
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, line.ProductID)
		}
	}
	m.nextID++
	order.ID = m.nextID
	cp := *order
	m.orders[order.ID] = &cp
	if clearCart {
		delete(m.cartItems, order.UserID)
	}
	return nil
}

func (m *mockStore) GetOrder(_ context.Context, userID, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) GetOrderByID(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) GetOrderByIdempotencyKey(_ context.Context, userID int64, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: idempotency key", ErrNotFound)
}

func (m *mockStore) ListOrders(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockStore) SetGatewayOrder(_ context.Context, orderID int64, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	o.GatewayOrderID = &gatewayOrderID
	return nil
}

func (m *mockStore) ConfirmPayment(_ context.Context, orderID int64, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return false, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if o.Status != models.StatusPending {
		return false, nil // status guard did not match
	}
	o.Status = models.StatusConfirmed
	o.PaymentStatus = models.PaymentCompleted
	o.GatewayPaymentID = &paymentID
	for _, line := range o.Lines {
		if p, ok := m.products[line.ProductID]; ok {
			p.StockQuantity -= line.Quantity
			m.stockDecrements[line.ProductID]++
		}
	}
	return true, nil
}

func (m *mockStore) UpdateStatus(_ context.Context, orderID int64, from, to models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockStore) CancelOverdueOrders(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, o := range m.orders {
		if o.Status == models.StatusPending && o.CreatedAt.Before(before) {
			o.Status = models.StatusCancelled
			n++
		}
	}
	return n, nil
}

// mockGateway signs like the real gateway so signature tests exercise
// the actual HMAC path.
type mockGateway struct {
	secret      string
	orderID     string
	createErr   error
	createCalls int
	lastAmount  int64
	lastReceipt string
}

func newMockGateway() *mockGateway {
	return &mockGateway{secret: "test_secret", orderID: "order_abc"}
}

func (g *mockGateway) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (string, error) {
	g.createCalls++
	g.lastAmount = amountPaise
	g.lastReceipt = receipt
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.orderID, nil
}

func (g *mockGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(g.sign(gatewayOrderID, paymentID)), []byte(signature))
}

func (g *mockGateway) KeyID() string { return "rzp_test_key" }

func (g *mockGateway) sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// mockCache is a map-backed cache.CartCache.
type mockCache struct {
	mu      sync.Mutex
	carts   map[int64]*models.Cart
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[int64]*models.Cart)}
}

func (c *mockCache) Get(_ context.Context, userID int64) (*models.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *mockCache) Set(_ context.Context, userID int64, cart *models.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[userID] = cart
	return nil
}

func (c *mockCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	c.deletes++
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *mockPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
