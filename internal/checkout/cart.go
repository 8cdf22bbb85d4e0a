package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/agromart/agromart-golang/internal/cache"
	"github.com/agromart/agromart-golang/internal/models"
)

// GetCart returns the priced cart view, read-through the cache.
func (s *Service) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	if s.cache != nil {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cart cache get error: %v", err) // treat as a miss
		}
	}

	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := buildCart(userID, lines)

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, cart); err != nil {
			log.Printf("cart cache set error: %v", err)
		}
	}

	return cart, nil
}

// AddItem upserts a cart item: a product already in the cart has its
// quantity incremented atomically at the storage layer.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	product, err := s.store.GetProductForSale(ctx, productID)
	if err != nil {
		return err
	}
	if product.StockQuantity < quantity {
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
	}

	if err := s.store.UpsertCartItem(ctx, userID, productID, quantity); err != nil {
		return err
	}

	s.invalidateCart(userID)
	return nil
}

// UpdateQuantity sets an absolute quantity; zero or below removes the item.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	product, err := s.store.GetProductForSale(ctx, productID)
	if err != nil {
		return err
	}
	if product.StockQuantity < quantity {
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
	}

	found, err := s.store.SetCartItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: item not in cart", ErrNotFound)
	}

	s.invalidateCart(userID)
	return nil
}

// RemoveItem deletes one product from the caller's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) error {
	found, err := s.store.RemoveCartItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: item not in cart", ErrNotFound)
	}

	s.invalidateCart(userID)
	return nil
}

// ClearCart empties the caller's cart.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return err
	}

	s.invalidateCart(userID)
	return nil
}

func (s *Service) invalidateCart(userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(context.Background(), userID); err != nil {
		log.Printf("cart cache invalidate error: %v", err)
	}
}

func buildCart(userID int64, lines []models.CartLine) *models.Cart {
	cart := &models.Cart{
		UserID: userID,
		Items:  make([]models.CartLine, 0, len(lines)),
	}
	for _, line := range lines {
		line.LineTotal = line.Price * float64(line.Quantity)
		cart.Subtotal += line.LineTotal
		cart.TotalItems += line.Quantity
		cart.Items = append(cart.Items, line)
	}
	return cart
}
