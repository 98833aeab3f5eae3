package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/services"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	productService *services.ProductService
	validate       *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validate:       newValidator(),
	}
}

// RegisterRoutes registers the product routes. Listing is public, everything else runs behind auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/products", h.HandleList)
	router.Post("/products", auth, h.HandleCreate)
	router.Get("/products/:id", auth, h.HandleGet)
	router.Put("/products/:id", auth, h.HandleUpdate)
	router.Patch("/products/:id", auth, h.HandleUpdate)
	router.Delete("/products/:id", auth, h.HandleDelete)
	router.Post("/products/:id/images", auth, h.HandleAddImage)
}

// CreateProductRequest is the body of a product creation.
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=999999.99"`
	Description *string          `json:"description"`
	Stock       int              `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest is the body of a partial update; absent fields are kept.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=999999.99"`
	Description *string          `json:"description"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

// AddImageRequest attaches an image reference to a product.
type AddImageRequest struct {
	Image string `json:"image" validate:"required,max=255"`
}

type productResponse struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	Price       string                `json:"price"`
	Description *string               `json:"description"`
	Stock       int                   `json:"stock"`
	Images      []models.ProductImage `json:"images"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func toProductResponse(p *models.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []models.ProductImage{}
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
		Stock:       p.Stock,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// roundPrice rounds to cents so range checks see the value that gets stored.
func roundPrice(price *decimal.Decimal) *decimal.Decimal {
	if price == nil {
		return nil
	}
	rounded := price.Round(2)
	return &rounded
}

// HandleList returns the entire catalog.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	products, err := h.productService.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, "Could not retrieve products", err)
	}

	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return c.JSON(out)
}

// HandleCreate creates a product and returns only the new record.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	req.Price = roundPrice(req.Price)
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	product := &models.Product{
		Name:        req.Name,
		Price:       *req.Price,
		Description: req.Description,
		Stock:       req.Stock,
	}
	if err := h.productService.CreateProduct(c.UserContext(), product); err != nil {
		return respondError(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(product))
}

// HandleGet returns one product.
func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Product not found", err)
	}

	product, err := h.productService.GetProductByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Product not found", err)
	}
	return c.JSON(toProductResponse(product))
}

// HandleUpdate applies a partial update. PUT and PATCH behave the same.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Product not found", err)
	}

	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	req.Price = roundPrice(req.Price)
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	product, err := h.productService.UpdateProduct(c.UserContext(), id, services.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Stock:       req.Stock,
	})
	if err != nil {
		return respondError(c, "Could not update product", err)
	}
	return c.JSON(toProductResponse(product))
}

// HandleDelete removes a product.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Product not found", err)
	}

	if err := h.productService.DeleteProduct(c.UserContext(), id); err != nil {
		return respondError(c, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAddImage attaches an image reference to a product.
func (h *ProductHandler) HandleAddImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Product not found", err)
	}

	var req AddImageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	image, err := h.productService.AddImage(c.UserContext(), id, req.Image)
	if err != nil {
		return respondError(c, "Could not add image", err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}
