package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

//
// --- Cart Handlers (Login Required) ---
//
// Thin wrappers: validation, stock checks and cache invalidation all
// live in the checkout service.
//

// GetCart is the handler for GET /v1/cart.
func (h *Handlers) GetCart(c *gin.Context) {
	cart, err := h.Checkout.GetCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart is the handler for POST /v1/cart/items.
// Adding a product already in the cart increments its quantity.
func (h *Handlers) AddToCart(c *gin.Context) {
	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	err := h.Checkout.AddItem(c.Request.Context(), currentUserID(c), input.ProductID, input.Quantity)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Item added to cart"})
}

// UpdateCartItemInput carries the new absolute quantity.
type UpdateCartItemInput struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem is the handler for PUT /v1/cart/items/:productId.
// A quantity of zero (or below) removes the item.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	err = h.Checkout.UpdateQuantity(c.Request.Context(), currentUserID(c), productID, input.Quantity)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

// RemoveCartItem is the handler for DELETE /v1/cart/items/:productId.
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	err = h.Checkout.RemoveItem(c.Request.Context(), currentUserID(c), productID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// ClearCart is the handler for DELETE /v1/cart.
func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.Checkout.ClearCart(c.Request.Context(), currentUserID(c)); err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// GetCartSummary is the handler for GET /v1/cart/summary.
// A lightweight endpoint for the header badge: item count and subtotal
// without the full line detail.
func (h *Handlers) GetCartSummary(c *gin.Context) {
	cart, err := h.Checkout.GetCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalItems": cart.TotalItems,
		"subtotal":   cart.Subtotal,
	})
}
