package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines the interface for cart data access.
// Every item-targeted method is scoped by the owning user's id.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error)
	AddOrIncrementItem(ctx context.Context, cartID, productID uint, quantity int) (*models.CartItem, error)
	GetItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error)
	SetItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error)
}
