package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/agromart/agromart-golang/internal/cache"
	"github.com/agromart/agromart-golang/internal/checkout"
	"github.com/agromart/agromart-golang/internal/database"
	"github.com/agromart/agromart-golang/internal/events"
	"github.com/agromart/agromart-golang/internal/handlers"
	"github.com/agromart/agromart-golang/internal/payments"
	"github.com/agromart/agromart-golang/internal/routes"
	"github.com/agromart/agromart-golang/internal/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("CRITICAL ERROR: JWT_SECRET environment variable is not set.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Payment Gateway Client ---
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		log.Fatal("CRITICAL ERROR: RAZORPAY_KEY_ID / RAZORPAY_KEY_SECRET are not set.")
	}
	gateway := payments.NewClient(keyID, keySecret)

	// 3. --- Optional Infrastructure (cache & events) ---
	// Both are nil-safe in the service: missing REDIS_ADDR or
	// KAFKA_BROKERS just runs the API without that piece.
	var cartCache cache.CartCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: addr})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()

		if err != nil {
			log.Printf("WARNING: Redis unavailable (%v), running without cart cache", err)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			cartCache = cache.NewRedisCache(redisClient)
			log.Println("Cart cache connected")
		}
	}

	var publisher checkout.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer := events.NewProducer(strings.Split(brokers, ","), "order-events")
		defer producer.Close()
		publisher = producer
		log.Println("Order event producer connected")
	}

	// 4. --- Service Assembly ---
	checkoutService := checkout.NewService(store.NewMySQL(db), gateway, cartCache, publisher)

	app := &handlers.Handlers{
		DB:       db,
		Checkout: checkoutService,
	}

	// 5. --- Background Worker ---
	// Sweeps up unpaid PENDING orders once an hour.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: monitoring for overdue orders...")

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := checkoutService.CancelOverdue(ctx, 24*time.Hour)
			cancel()
			if err != nil {
				log.Printf("Overdue order sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Cancelled %d overdue orders", n)
			}
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting AgroMart API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
