package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// UserHandler exposes user management to staff.
type UserHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{
		authService: authService,
		validate:    newValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	users := router.Group("/users", auth, middleware.StaffRequired())
	users.Get("/", h.HandleList)
	users.Post("/", h.HandleCreate)
}

// HandleList returns every user; password hashes are never serialized.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, "Could not retrieve users", err)
	}
	return c.JSON(users)
}

// HandleCreate registers an account on behalf of a staff member. The caller's
// own session is left as it is.
func (h *UserHandler) HandleCreate(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing user request body: %v", err)
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.authService.RegisterUser(c.UserContext(), user); err != nil {
		return respondError(c, "Could not create user", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    models.Summarize(user),
	})
}
