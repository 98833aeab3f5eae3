package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/database"
	"storefront/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("product_images.id")
}

// GetAll retrieves the whole catalog with images, ordered by id.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Preload("Images", orderImages).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Images", orderImages).First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, database.Translate(err))
	}
	return &product, nil
}

// Create inserts a new product.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit("Images").Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes every editable column, zero values included.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).
		Select("name", "price", "description", "stock", "updated_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", product.ID, database.ErrNotFound)
	}
	return nil
}

// Delete removes a product together with its images and every cart line that references it.
func (r *GORMProductRepository) Delete(ctx context.Context, id uint) error {
	return database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete product images: %w", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %d: %w", id, database.ErrNotFound)
		}
		return nil
	})
}

// AddImage attaches an image reference to an existing product.
func (r *GORMProductRepository) AddImage(ctx context.Context, image *models.ProductImage) error {
	return database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", image.ProductID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("product %d: %w", image.ProductID, database.ErrNotFound)
		}
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("failed to create product image: %w", err)
		}
		return nil
	})
}
