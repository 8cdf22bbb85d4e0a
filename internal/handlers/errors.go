package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/agromart/agromart-golang/internal/checkout"
	"github.com/gin-gonic/gin"
)

// respondCheckoutError maps the orchestrator's error taxonomy onto HTTP
// statuses. The signature case gets its own error code so a storefront
// can tell "payment rejected" apart from an ordinary bad request.
func respondCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "signature_verification_failed"})
	case errors.Is(err, checkout.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// currentUserID reads the user ID stored by AuthMiddleware.
func currentUserID(c *gin.Context) int64 {
	userIDRaw, _ := c.Get("userID")
	return userIDRaw.(int64)
}
