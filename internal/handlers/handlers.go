package handlers

import (
	"database/sql"

	"github.com/agromart/agromart-golang/internal/checkout"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB       *sql.DB           // Read/Write connection pool
	Checkout *checkout.Service // Cart/order/payment orchestrator
}
