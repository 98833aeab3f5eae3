package models

import "time"

// Cart is the single per-user container of intended purchases.
// The unique index on UserID backs the conflict-tolerant get-or-create.
type Cart struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	User      *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TotalItems is the sum of all item quantities. It is derived, never stored.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// CartItem is a (product, quantity) line. At most one exists per (cart, product).
type CartItem struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CartID    uint      `json:"cart_id" gorm:"not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_items_cart_product"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
