package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	cartService *services.CartService
	validate    *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the cart routes; every one of them requires auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cart := router.Group("/cart", auth)
	cart.Get("/", h.HandleView)
	cart.Get("/items/:item_id", h.HandleItem)
	cart.Post("/add/:product_id", h.HandleAdd)
	cart.Post("/update/:item_id", h.HandleUpdate)
	cart.Post("/remove/:item_id", h.HandleRemove)
}

// AddItemRequest is the optional body of an add; quantity defaults to 1.
type AddItemRequest struct {
	Quantity *int `json:"quantity" form:"quantity" validate:"omitempty,min=1"`
}

// UpdateItemRequest sets a new quantity; zero or less removes the item.
// A missing quantity counts as 1.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" form:"quantity"`
}

type cartItemResponse struct {
	ID        uint             `json:"id"`
	ProductID uint             `json:"product_id"`
	Product   *productResponse `json:"product,omitempty"`
	Quantity  int              `json:"quantity"`
}

type cartResponse struct {
	ID         uint               `json:"id"`
	UserID     uint               `json:"user_id"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func toCartItemResponse(item *models.CartItem) cartItemResponse {
	out := cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		p := toProductResponse(item.Product)
		out.Product = &p
	}
	return out
}

// HandleView returns the caller's cart, creating it on first access.
func (h *CartHandler) HandleView(c *fiber.Ctx) error {
	cart, err := h.cartService.GetOrCreateCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, "Could not load cart", err)
	}

	items := make([]cartItemResponse, 0, len(cart.Items))
	for i := range cart.Items {
		items = append(items, toCartItemResponse(&cart.Items[i]))
	}
	return c.JSON(cartResponse{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalItems: h.cartService.TotalItems(cart),
		UpdatedAt:  cart.UpdatedAt,
	})
}

// HandleItem returns one line of the caller's cart.
func (h *CartHandler) HandleItem(c *fiber.Ctx) error {
	itemID, err := paramID(c, "item_id")
	if err != nil {
		return respondError(c, "Cart item not found", err)
	}

	item, err := h.cartService.GetItem(c.UserContext(), middleware.UserID(c), itemID)
	if err != nil {
		return respondError(c, "Cart item not found", err)
	}
	return c.JSON(toCartItemResponse(item))
}

// HandleAdd adds a product to the cart or increments its line.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	productID, err := paramID(c, "product_id")
	if err != nil {
		return respondError(c, "Product not found", err)
	}

	var req AddItemRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body", err)
		}
		if err := h.validate.Struct(req); err != nil {
			return validationFailed(c, err)
		}
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.cartService.AddItem(c.UserContext(), middleware.UserID(c), productID, quantity)
	if err != nil {
		return respondError(c, "Could not add to cart", err)
	}
	return c.JSON(fiber.Map{
		"message": "Added to cart",
		"item":    toCartItemResponse(item),
	})
}

// HandleUpdate sets an item's quantity, removing it when the quantity is not positive.
func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	itemID, err := paramID(c, "item_id")
	if err != nil {
		return respondError(c, "Cart item not found", err)
	}

	var req UpdateItemRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body", err)
		}
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, removed, err := h.cartService.UpdateQuantity(c.UserContext(), middleware.UserID(c), itemID, quantity)
	if err != nil {
		return respondError(c, "Could not update cart item", err)
	}
	if removed {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{
		"message": "Cart updated",
		"item":    toCartItemResponse(item),
	})
}

// HandleRemove deletes an item from the cart.
func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	itemID, err := paramID(c, "item_id")
	if err != nil {
		return respondError(c, "Cart item not found", err)
	}

	if err := h.cartService.RemoveItem(c.UserContext(), middleware.UserID(c), itemID); err != nil {
		return respondError(c, "Could not remove cart item", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
