package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	sessionTTL  time.Duration
	secure      bool
}

// NewAuthHandler creates a new AuthHandler. secureCookies marks the session cookie Secure.
func NewAuthHandler(authService *services.AuthService, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
		sessionTTL:  sessionTTL,
		secure:      secureCookies,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/signup", h.HandleSignup)
	router.Post("/api/login", h.HandleLogin)
	router.Post("/logout", auth, h.HandleLogout)
	router.Post("/token", h.HandleToken)
	router.Post("/token/refresh", h.HandleRefresh)
}

// SignupRequest represents the request body for registration.
type SignupRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// HandleSignup registers a user and logs them in with a session.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing signup request body: %v", err)
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.authService.RegisterUser(c.UserContext(), user); err != nil {
		return respondError(c, "Registration failed", err)
	}

	if err := h.startSession(c, user); err != nil {
		return respondError(c, "Could not start session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    models.Summarize(user),
	})
}

// HandleLogin authenticates with username/password and opens a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, "Authentication failed", err)
	}

	if err := h.startSession(c, user); err != nil {
		return respondError(c, "Could not start session", err)
	}
	return c.JSON(fiber.Map{
		"ok":   true,
		"user": models.Summarize(user),
	})
}

// HandleToken authenticates with username/password and returns an access/refresh pair.
func (h *AuthHandler) HandleToken(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, "Authentication failed", err)
	}

	pair, err := h.authService.IssueTokenPair(user)
	if err != nil {
		return respondError(c, "Could not issue token", err)
	}
	return c.JSON(pair)
}

// HandleRefresh exchanges a refresh token for a new access token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	access, err := h.authService.RefreshAccessToken(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, "Token refresh failed", err)
	}
	return c.JSON(fiber.Map{"access": access})
}

// HandleLogout ends the caller's session and clears the cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if sessionID := middleware.SessionID(c); sessionID != "" {
		if err := h.authService.EndSession(c.UserContext(), sessionID); err != nil {
			return respondError(c, "Could not log out", err)
		}
	}
	c.ClearCookie(middleware.SessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) startSession(c *fiber.Ctx, user models.Identity) error {
	sessionID, err := h.authService.StartSession(c.UserContext(), user)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
