package cache

import (
	"context"
	"errors"

	"github.com/agromart/agromart-golang/internal/models"
)

// ErrCacheMiss is returned when no cart is cached for the user.
var ErrCacheMiss = errors.New("cart not found in cache")

// CartCache caches the priced cart view per user. Implementations are
// best-effort: the store stays authoritative and callers must treat
// any cache error as a miss.
type CartCache interface {
	Get(ctx context.Context, userID int64) (*models.Cart, error)
	Set(ctx context.Context, userID int64, cart *models.Cart) error
	Delete(ctx context.Context, userID int64) error
}
