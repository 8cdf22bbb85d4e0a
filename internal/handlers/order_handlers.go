package handlers

import (
	"net/http"
	"strconv"

	"github.com/agromart/agromart-golang/internal/checkout"
	"github.com/agromart/agromart-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Order Handlers (Login Required) ---
//

// CreateOrder is the handler for POST /v1/orders.
// Accepts both order types: "cart" snapshots and clears the current
// cart, "buynow" takes an explicit item list.
func (h *Handlers) CreateOrder(c *gin.Context) {
	var input checkout.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	// The Idempotency-Key header wins over the body field.
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		input.IdempotencyKey = key
	}

	order, err := h.Checkout.CreateOrder(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created",
		"order":   order,
	})
}

// GetMyOrders is the handler for GET /v1/orders.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	orders, err := h.Checkout.ListOrders(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	if orders == nil {
		orders = []models.Order{}
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetOrderDetails is the handler for GET /v1/orders/:id.
// Another user's order returns 404, never 403.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.Checkout.GetOrder(c.Request.Context(), currentUserID(c), orderID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreatePaymentOrder is the handler for POST /v1/orders/:id/payment.
// Registers a payment intent with the gateway and returns what the
// storefront needs to open the payment widget. Safe to retry: a second
// call returns the already-registered intent.
func (h *Handlers) CreatePaymentOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	gatewayOrder, err := h.Checkout.CreateGatewayOrder(c.Request.Context(), currentUserID(c), orderID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gatewayOrder)
}

// VerifyPaymentInput carries the triple the gateway hands back to the
// storefront after a successful payment.
type VerifyPaymentInput struct {
	GatewayOrderID string `json:"gateway_order_id" binding:"required"`
	PaymentID      string `json:"payment_id" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

// VerifyPayment is the handler for POST /v1/orders/:id/payment/verify.
// Idempotent: replaying a valid verification returns the confirmed
// order without touching stock again.
func (h *Handlers) VerifyPayment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var input VerifyPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	order, err := h.Checkout.VerifyPayment(c.Request.Context(),
		currentUserID(c), orderID,
		input.PaymentID, input.GatewayOrderID, input.Signature)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified",
		"order":   order,
	})
}

// CancelOrder is the handler for POST /v1/orders/:id/cancel.
// Owners can cancel any order that has not shipped yet.
func (h *Handlers) CancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.Checkout.CancelOrder(c.Request.Context(), currentUserID(c), orderID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"order":   order,
	})
}

//
// --- Admin Order Handlers ---
//

// UpdateOrderStatusInput carries the requested fulfilment state.
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the admin-only handler for
// PATCH /v1/admin/orders/:id/status. Only forward moves on the
// fulfilment graph are allowed; anything else is a 409.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	order, err := h.Checkout.UpdateStatus(c.Request.Context(), orderID, models.OrderStatus(input.Status))
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}
