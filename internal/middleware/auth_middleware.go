package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

// SessionCookie is the cookie carrying the server-side session id.
const SessionCookie = "sessionid"

// AuthRequired is a Fiber middleware that accepts either a Bearer access token
// or a session cookie and stores the caller's identity in the context.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header format must be 'Bearer <token>'",
				})
			}

			claims, err := authService.ValidateToken(parts[1])
			if err != nil {
				log.Printf("JWT validation failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Invalid or expired token",
				})
			}

			c.Locals("user_id", claims.UserID)
			c.Locals("username", claims.Username)
			c.Locals("is_staff", claims.IsStaff)
			return c.Next()
		}

		sessionID := c.Cookies(SessionCookie)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication credentials were not provided",
			})
		}

		user, err := authService.ResolveSession(c.UserContext(), sessionID)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				log.Printf("Session lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Could not verify session",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Session expired or invalid",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("username", user.Username)
		c.Locals("is_staff", user.IsStaff)
		c.Locals("session_id", sessionID)
		return c.Next()
	}
}

// StaffRequired rejects authenticated callers without the staff flag.
// It must run after AuthRequired.
func StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsStaff(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Staff privileges required",
			})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's id, or 0 outside AuthRequired.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}

// IsStaff reports whether the authenticated user is staff.
func IsStaff(c *fiber.Ctx) bool {
	staff, _ := c.Locals("is_staff").(bool)
	return staff
}

// SessionID returns the session id the request authenticated with, if any.
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals("session_id").(string)
	return id
}
