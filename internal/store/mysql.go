package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agromart/agromart-golang/internal/checkout"
	"github.com/agromart/agromart-golang/internal/models"
)

// MySQL implements checkout.Store on a database/sql connection pool.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

//
// --- Products ---
//

// GetProductForSale returns a product that can currently be ordered.
func (s *MySQL) GetProductForSale(ctx context.Context, productID int64) (*models.Product, error) {
	query := `
		SELECT id, name, slug, brand, title, description, category,
		       price, stock_quantity, image_url, rating, review_count, attributes,
		       created_at, updated_at
		FROM products
		WHERE id = ?`

	var p models.Product
	var imageURL sql.NullString
	var attributes []byte

	err := s.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Brand, &p.Title, &p.Description, &p.Category,
		&p.Price, &p.StockQuantity, &imageURL, &p.Rating, &p.ReviewCount, &attributes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", checkout.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("query product: %w", err)
	}

	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
			return nil, fmt.Errorf("decode product attributes: %w", err)
		}
	}

	return &p, nil
}

//
// --- Cart ---
//

// GetCartLines returns the user's cart joined with product details.
func (s *MySQL) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.product_id, p.name, p.category, p.price, ci.quantity, p.stock_quantity, p.image_url
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ?
		ORDER BY ci.created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		var imageURL sql.NullString
		if err := rows.Scan(
			&line.ProductID, &line.ProductName, &line.Category,
			&line.Price, &line.Quantity, &line.Stock, &imageURL,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		line.ImageURL = imageURL.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return lines, nil
}

// UpsertCartItem adds quantity to an existing row or inserts a new one.
// The increment happens inside the database, so two concurrent adds for
// the same (user, product) never lose an update.
func (s *MySQL) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = quantity + VALUES(quantity),
			updated_at = VALUES(updated_at)`,
		userID, productID, quantity, now, now)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// SetCartItemQuantity sets an absolute quantity. Returns false when the
// item is not in the user's cart.
func (s *MySQL) SetCartItemQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = ?, updated_at = ?
		WHERE user_id = ? AND product_id = ?`,
		quantity, time.Now(), userID, productID)
	if err != nil {
		return false, fmt.Errorf("update cart item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update cart item: %w", err)
	}
	return affected > 0, nil
}

func (s *MySQL) RemoveCartItem(ctx context.Context, userID, productID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ? AND product_id = ?",
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	return affected > 0, nil
}

func (s *MySQL) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

//
// --- Orders ---
//

// CreateOrder persists the order with its line snapshots in one
// transaction. Product rows are locked and stock re-checked under the
// lock: if any line cannot be fulfilled the whole transaction rolls
// back and the cart is untouched (all-or-nothing).
func (s *MySQL) CreateOrder(ctx context.Context, order *models.Order, clearCart bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback() // Safety net

	// 1. --- Lock Product Rows & Re-check Stock ---
	for _, line := range order.Lines {
		var stock int
		err := tx.QueryRowContext(ctx,
			"SELECT stock_quantity FROM products WHERE id = ? FOR UPDATE",
			line.ProductID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: product %d does not exist", checkout.ErrValidation, line.ProductID)
			}
			return fmt.Errorf("lock product %d: %w", line.ProductID, err)
		}
		if stock < line.Quantity {
			return fmt.Errorf("%w: product %d", checkout.ErrInsufficientStock, line.ProductID)
		}
	}

	// 2. --- Insert the Order ---
	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders
			(user_id, status, order_type, subtotal, tax, shipping, total_amount,
			 shipping_address, payment_status, idempotency_key, delivery_date,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.UserID, order.Status, order.OrderType,
		order.Subtotal, order.Tax, order.Shipping, order.TotalAmount,
		order.ShippingAddress, order.PaymentStatus, order.IdempotencyKey,
		order.DeliveryDate, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	order.ID = orderID

	// 3. --- Snapshot the Lines ---
	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = orderID
		line.CreatedAt = order.CreatedAt

		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines
				(order_id, product_id, product_name, category, unit_price, quantity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, line.ProductID, line.ProductName, line.Category,
			line.UnitPrice, line.Quantity, line.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	// 4. --- Clear the Cart (same unit of work as the snapshot) ---
	if clearCart {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", order.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

const orderColumns = `
	id, user_id, status, order_type, subtotal, tax, shipping, total_amount,
	shipping_address, payment_status, gateway_order_id, gateway_payment_id,
	delivery_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	var shippingAddress, gatewayOrderID, gatewayPaymentID sql.NullString
	var deliveryDate sql.NullTime

	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.OrderType,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.TotalAmount,
		&shippingAddress, &o.PaymentStatus, &gatewayOrderID, &gatewayPaymentID,
		&deliveryDate, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if shippingAddress.Valid {
		o.ShippingAddress = &shippingAddress.String
	}
	if gatewayOrderID.Valid {
		o.GatewayOrderID = &gatewayOrderID.String
	}
	if gatewayPaymentID.Valid {
		o.GatewayPaymentID = &gatewayPaymentID.String
	}
	if deliveryDate.Valid {
		o.DeliveryDate = &deliveryDate.Time
	}
	return &o, nil
}

// GetOrder fetches one order owned by userID, with its line snapshots.
// Ownership is folded into the WHERE clause, so an order belonging to
// another user is indistinguishable from a missing one.
func (s *MySQL) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+orderColumns+" FROM orders WHERE id = ? AND user_id = ?",
		orderID, userID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", checkout.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}

	if order.Lines, err = s.getOrderLines(ctx, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByID is the unscoped fetch used by administrative operations.
func (s *MySQL) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+orderColumns+" FROM orders WHERE id = ?", orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", checkout.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}

	if order.Lines, err = s.getOrderLines(ctx, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *MySQL) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+orderColumns+" FROM orders WHERE user_id = ? AND idempotency_key = ?",
		userID, key)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency key", checkout.ErrNotFound)
		}
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}

	if order.Lines, err = s.getOrderLines(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *MySQL) getOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, category, unit_price, quantity, created_at
		FROM order_lines
		WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.Category, &line.UnitPrice, &line.Quantity, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// ListOrders returns the user's order history, newest first, with lines.
func (s *MySQL) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT"+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if orders[i].Lines, err = s.getOrderLines(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *MySQL) SetGatewayOrder(ctx context.Context, orderID int64, gatewayOrderID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET gateway_order_id = ?, updated_at = ? WHERE id = ?",
		gatewayOrderID, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("set gateway order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set gateway order: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: order %d", checkout.ErrNotFound, orderID)
	}
	return nil
}

// ConfirmPayment transitions pending -> confirmed, records the gateway
// payment id and decrements stock, all in one transaction. The status
// guard in the UPDATE makes the whole effect at-most-once: a concurrent
// or repeated confirmation matches zero rows and reports applied=false.
func (s *MySQL) ConfirmPayment(ctx context.Context, orderID int64, paymentID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, fmt.Errorf("begin confirm payment: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, gateway_payment_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.StatusConfirmed, models.PaymentCompleted, paymentID, time.Now(),
		orderID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("confirm payment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm payment: %w", err)
	}
	if affected == 0 {
		return false, nil // guard did not match, nothing changed
	}

	// Stock comes off only on the transition that matched the guard.
	rows, err := tx.QueryContext(ctx,
		"SELECT product_id, quantity FROM order_lines WHERE order_id = ?", orderID)
	if err != nil {
		return false, fmt.Errorf("query lines for stock: %w", err)
	}
	defer rows.Close()

	type deduction struct {
		productID int64
		quantity  int
	}
	var deductions []deduction
	for rows.Next() {
		var d deduction
		if err := rows.Scan(&d.productID, &d.quantity); err != nil {
			return false, fmt.Errorf("scan line for stock: %w", err)
		}
		deductions = append(deductions, d)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate lines for stock: %w", err)
	}

	for _, d := range deductions {
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ?",
			d.quantity, d.productID); err != nil {
			return false, fmt.Errorf("deduct stock for product %d: %w", d.productID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit confirm payment: %w", err)
	}
	return true, nil
}

// UpdateStatus applies from -> to only when the row still holds from.
func (s *MySQL) UpdateStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, time.Now(), orderID, from)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return affected > 0, nil
}

// CancelOverdueOrders cancels unpaid PENDING orders created before the
// cutoff. Stock was never deducted for them, so cancelling is enough.
func (s *MySQL) CancelOverdueOrders(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE status = ? AND created_at < ?",
		models.StatusCancelled, time.Now(), models.StatusPending, before)
	if err != nil {
		return 0, fmt.Errorf("cancel overdue orders: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel overdue orders: %w", err)
	}
	return affected, nil
}
