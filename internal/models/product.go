package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the store.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(8,2);not null"`
	Description *string         `json:"description"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Images      []ProductImage  `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InStock reports whether the product can be added to a cart.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// ProductImage is an image reference owned by exactly one product.
type ProductImage struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID uint   `json:"product_id" gorm:"not null;index"`
	Image     string `json:"image" gorm:"type:varchar(255);not null"`
}
