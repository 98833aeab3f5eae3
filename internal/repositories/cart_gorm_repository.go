package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/database"
	"storefront/internal/models"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db   *gorm.DB
	opts database.TxOptions
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db:   db,
		opts: database.DefaultTxOptions(),
	}
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("cart_items.id")
}

// ownedBy restricts cart_items to those in the cart of userID.
func ownedBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("cart_items.cart_id IN (SELECT id FROM carts WHERE user_id = ?)", userID)
	}
}

// GetOrCreate returns the user's cart with its items, inserting an empty one on first access.
// The insert is a single ON CONFLICT DO NOTHING against the unique user_id index, so
// concurrent callers always converge on the same row.
func (r *GORMCartRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := database.WithRetry(ctx, r.db, r.opts, func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Cart{UserID: userID})
		if res.Error != nil {
			return fmt.Errorf("failed to insert cart: %w", res.Error)
		}

		return tx.Preload("Items", orderItems).
			Preload("Items.Product").
			Where("user_id = ?", userID).
			First(&cart).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for user %d: %w", userID, database.Translate(err))
	}
	return &cart, nil
}

// AddOrIncrementItem creates the (cart, product) line with quantity, or adds quantity to
// the existing one, in one upsert against the unique (cart_id, product_id) index.
func (r *GORMCartRepository) AddOrIncrementItem(ctx context.Context, cartID, productID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := database.WithRetry(ctx, r.db, r.opts, func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
				"updated_at": now,
			}),
		}).Create(&models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity})
		if res.Error != nil {
			return fmt.Errorf("failed to upsert cart item: %w", res.Error)
		}

		if err := touchCart(tx, cartID, now); err != nil {
			return err
		}

		return tx.Preload("Product").
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&item).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add product %d to cart %d: %w", productID, cartID, database.Translate(err))
	}
	return &item, nil
}

// GetItem retrieves an item only if it belongs to userID's cart.
func (r *GORMCartRepository) GetItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Scopes(ownedBy(userID)).Preload("Product").
		First(&item, "cart_items.id = ?", itemID).Error; err != nil {
		return nil, fmt.Errorf("cart item %d: %w", itemID, database.Translate(err))
	}
	return &item, nil
}

// SetItemQuantity overwrites the quantity of an item owned by userID.
func (r *GORMCartRepository) SetItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := database.WithRetry(ctx, r.db, r.opts, func(tx *gorm.DB) error {
		if err := tx.Scopes(ownedBy(userID)).First(&item, "cart_items.id = ?", itemID).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&item).Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		if err := touchCart(tx, item.CartID, now); err != nil {
			return err
		}
		return tx.Preload("Product").First(&item, item.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("cart item %d: %w", itemID, database.Translate(err))
	}
	return &item, nil
}

// RemoveItem deletes an item owned by userID and returns what was removed.
func (r *GORMCartRepository) RemoveItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := database.WithRetry(ctx, r.db, r.opts, func(tx *gorm.DB) error {
		if err := tx.Scopes(ownedBy(userID)).First(&item, "cart_items.id = ?", itemID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.CartItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
		return touchCart(tx, item.CartID, time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("cart item %d: %w", itemID, database.Translate(err))
	}
	return &item, nil
}

func touchCart(tx *gorm.DB, cartID uint, at time.Time) error {
	if err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("updated_at", at).Error; err != nil {
		return fmt.Errorf("failed to touch cart %d: %w", cartID, err)
	}
	return nil
}
