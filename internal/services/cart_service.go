package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartService holds the per-user cart rules: stock is checked on add,
// quantities accumulate per product and a non-positive quantity removes the line.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	events   events.Publisher
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository, publisher events.Publisher) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		events:   publisher,
	}
}

// GetOrCreateCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

// AddItem puts quantity units of a product into the user's cart. Products with no
// stock are refused with database.ErrOutOfStock and the cart is left untouched.
// Stock is not reserved here.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock() {
		return nil, fmt.Errorf("product %d: %w", productID, database.ErrOutOfStock)
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.carts.AddOrIncrementItem(ctx, cart.ID, product.ID, quantity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCartItemAdded, userID, item)
	return item, nil
}

// GetItem returns an item from the user's cart. Items in other carts are
// reported as database.ErrNotFound.
func (s *CartService) GetItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	return s.carts.GetItem(ctx, userID, itemID)
}

// UpdateQuantity sets an item's quantity. A quantity of zero or less removes the
// item and reports removed=true.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (item *models.CartItem, removed bool, err error) {
	if quantity <= 0 {
		item, err = s.carts.RemoveItem(ctx, userID, itemID)
		if err != nil {
			return nil, false, err
		}
		s.publish(ctx, events.EventCartItemRemoved, userID, item)
		return item, true, nil
	}

	item, err = s.carts.SetItemQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, false, err
	}
	s.publish(ctx, events.EventCartItemUpdated, userID, item)
	return item, false, nil
}

// RemoveItem deletes an item from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	item, err := s.carts.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.EventCartItemRemoved, userID, item)
	return nil
}

// TotalItems is the sum of all quantities in cart.
func (s *CartService) TotalItems(cart *models.Cart) int {
	return cart.TotalItems()
}

func (s *CartService) publish(ctx context.Context, eventType string, userID uint, item *models.CartItem) {
	payload := events.CartItemPayload{
		UserID:    userID,
		CartID:    item.CartID,
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if eventType == events.EventCartItemRemoved {
		payload.Quantity = 0
	}

	if err := s.events.Publish(ctx, eventType, strconv.FormatUint(uint64(item.CartID), 10), payload); err != nil {
		log.Printf("Failed to publish %s for cart item %d: %v", eventType, item.ID, err)
	}
}
