package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartService() (*Service, *mockStore, *mockCache) {
	store := newMockStore()
	cartCache := newMockCache()
	svc := NewService(store, newMockGateway(), cartCache, nil)
	return svc, store, cartCache
}

func TestAddItem(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)

	require.NoError(t, svc.AddItem(context.Background(), userAlice, 42, 2))
	assert.Equal(t, 2, store.cartItems[userAlice][42])

	// Adding again increments instead of replacing.
	require.NoError(t, svc.AddItem(context.Background(), userAlice, 42, 3))
	assert.Equal(t, 5, store.cartItems[userAlice][42])
}

func TestAddItem_Validation(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 2)

	assert.ErrorIs(t, svc.AddItem(context.Background(), userAlice, 42, 0), ErrValidation)
	assert.ErrorIs(t, svc.AddItem(context.Background(), userAlice, 404, 1), ErrNotFound)
	assert.ErrorIs(t, svc.AddItem(context.Background(), userAlice, 42, 5), ErrInsufficientStock)
}

func TestUpdateQuantity(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addCartItem(userAlice, 42, 2)

	require.NoError(t, svc.UpdateQuantity(context.Background(), userAlice, 42, 7))
	assert.Equal(t, 7, store.cartItems[userAlice][42])

	// Zero or negative removes the item.
	require.NoError(t, svc.UpdateQuantity(context.Background(), userAlice, 42, 0))
	_, ok := store.cartItems[userAlice][42]
	assert.False(t, ok)
}

func TestUpdateQuantity_NotInCart(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)

	assert.ErrorIs(t, svc.UpdateQuantity(context.Background(), userAlice, 42, 1), ErrNotFound)
}

func TestCartOps_ScopedToOwner(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addCartItem(userAlice, 42, 2)

	// Bob cannot see or touch Alice's cart item; existence is not leaked.
	assert.ErrorIs(t, svc.UpdateQuantity(context.Background(), userBob, 42, 1), ErrNotFound)
	assert.ErrorIs(t, svc.RemoveItem(context.Background(), userBob, 42), ErrNotFound)

	cart, err := svc.GetCart(context.Background(), userBob)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Alice's cart is unchanged.
	assert.Equal(t, 2, store.cartItems[userAlice][42])
}

func TestRemoveItem(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addCartItem(userAlice, 42, 2)

	require.NoError(t, svc.RemoveItem(context.Background(), userAlice, 42))
	assert.ErrorIs(t, svc.RemoveItem(context.Background(), userAlice, 42), ErrNotFound)
}

func TestClearCart(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addProduct(7, "Neem Oil 1L", 250, 5)
	store.addCartItem(userAlice, 42, 2)
	store.addCartItem(userAlice, 7, 1)

	require.NoError(t, svc.ClearCart(context.Background(), userAlice))
	assert.Empty(t, store.cartItems[userAlice])
}

func TestGetCart_Totals(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addProduct(7, "Neem Oil 1L", 250, 5)
	store.addCartItem(userAlice, 42, 2)
	store.addCartItem(userAlice, 7, 1)

	cart, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)

	assert.Equal(t, 450.0, cart.Subtotal)
	assert.Equal(t, 3, cart.TotalItems)
	assert.Len(t, cart.Items, 2)
	for _, item := range cart.Items {
		assert.Equal(t, item.Price*float64(item.Quantity), item.LineTotal)
	}
}

func TestGetCart_ReadThroughCache(t *testing.T) {
	svc, store, cartCache := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addCartItem(userAlice, 42, 2)

	// First read populates the cache.
	_, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)
	_, cached := cartCache.carts[userAlice]
	assert.True(t, cached)

	// Second read is served from cache even if the store changes underneath.
	store.cartItems[userAlice][42] = 9
	cart, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartMutations_InvalidateCache(t *testing.T) {
	svc, store, cartCache := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)

	_, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)

	require.NoError(t, svc.AddItem(context.Background(), userAlice, 42, 1))
	assert.Equal(t, 1, cartCache.deletes)

	// The next read reflects the mutation.
	cart, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TotalItems)
}

func TestCheckout_InvalidatesCartCache(t *testing.T) {
	svc, store, _ := newCartService()
	store.addProduct(42, "Urea 50kg", 100, 10)
	store.addCartItem(userAlice, 42, 2)

	_, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), userAlice, CreateOrderInput{OrderType: OrderTypeCart})
	require.NoError(t, err)

	cart, err := svc.GetCart(context.Background(), userAlice)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
