package models

import "time"

// CartItem is the model for the 'cart_items' table.
// One row per (user, product); adding the same product again
// increments the quantity instead of creating a second row.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLine is a cart item joined with its product details,
// as returned to the client and consumed at checkout time.
type CartLine struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Category    ProductCategory `json:"category"`
	Price       float64         `json:"price"` // current catalog price
	Quantity    int             `json:"quantity"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	LineTotal   float64         `json:"lineTotal"`
}

// Cart is the priced view of a user's cart.
type Cart struct {
	UserID     int64      `json:"userId"`
	Items      []CartLine `json:"items"`
	Subtotal   float64    `json:"subtotal"`
	TotalItems int        `json:"totalItems"`
}
