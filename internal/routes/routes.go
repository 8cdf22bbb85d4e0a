package routes

import (
	"net/http"
	"os"

	"github.com/agromart/agromart-golang/internal/handlers"
	"github.com/agromart/agromart-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware tells the browser the storefront origin may call us.
func CORSMiddleware() gin.HandlerFunc {
	// 1. Strictly allow ONLY the configured storefront origin
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// 2. Allow the headers we actually use ("Authorization" for JWT
		// tokens, "Idempotency-Key" for safe order-creation retries)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// 3. Handle the "Preflight" OPTIONS request
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// CORS must be the very first thing the router uses
	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Catalog Routes (Public) ---
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// Profile
			auth.GET("/profile/me", h.GetMyProfile)
			auth.PUT("/profile/me", h.UpdateMyProfile)

			// Cart
			auth.GET("/cart", h.GetCart)
			auth.GET("/cart/summary", h.GetCartSummary)
			auth.POST("/cart/items", h.AddToCart)
			auth.PUT("/cart/items/:productId", h.UpdateCartItem)
			auth.DELETE("/cart/items/:productId", h.RemoveCartItem)
			auth.DELETE("/cart", h.ClearCart)

			// Orders & Payments
			auth.POST("/orders", h.CreateOrder)
			auth.GET("/orders", h.GetMyOrders)
			auth.GET("/orders/:id", h.GetOrderDetails)
			auth.POST("/orders/:id/payment", h.CreatePaymentOrder)
			auth.POST("/orders/:id/payment/verify", h.VerifyPayment)
			auth.POST("/orders/:id/cancel", h.CancelOrder)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware())
		admin.Use(middleware.AdminMiddleware(h.DB))
		{
			admin.POST("/products", h.CreateProduct)
			admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		}
	}

	return router
}
