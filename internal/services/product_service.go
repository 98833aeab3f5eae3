package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/shopspring/decimal"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo   repositories.ProductRepository
	events events.Publisher
}

// ProductPatch carries the fields of a partial update. Nil fields are left alone.
type ProductPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Description *string
	Stock       *int
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, publisher events.Publisher) *ProductService {
	return &ProductService{
		repo:   repo,
		events: publisher,
	}
}

// GetAllProducts retrieves the whole catalog.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new product with its price rounded to cents.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Price = product.Price.Round(2)
	return s.repo.Create(ctx, product)
}

// UpdateProduct applies patch to the product with the given id.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Price != nil {
		product.Price = patch.Price.Round(2)
	}
	if patch.Description != nil {
		product.Description = patch.Description
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deletes a product together with its images and any cart lines pointing at it.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	err := s.events.Publish(ctx, events.EventProductDeleted, strconv.FormatUint(uint64(id), 10),
		events.ProductDeletedPayload{ProductID: id})
	if err != nil {
		log.Printf("Failed to publish %s for product %d: %v", events.EventProductDeleted, id, err)
	}
	return nil
}

// AddImage attaches an image reference to an existing product.
func (s *ProductService) AddImage(ctx context.Context, productID uint, image string) (*models.ProductImage, error) {
	img := &models.ProductImage{ProductID: productID, Image: image}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, fmt.Errorf("failed to add image to product %d: %w", productID, err)
	}
	return img, nil
}
