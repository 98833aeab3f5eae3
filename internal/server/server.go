package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/services"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Products      *services.ProductService
	Carts         *services.CartService
	Auth          *services.AuthService
	SessionTTL    time.Duration
	SecureCookies bool
	// Ping reports storage health for /health. Optional.
	Ping func(ctx context.Context) error
	// DisableRequestLog turns off the access log, mostly for tests.
	DisableRequestLog bool
}

// New builds the Fiber app with middleware and every route registered.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if !d.DisableRequestLog {
		app.Use(logger.New()) // Request logger
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))

	app.Get("/health", healthHandler(d.Ping))

	auth := middleware.AuthRequired(d.Auth)

	handlers.NewAuthHandler(d.Auth, d.SessionTTL, d.SecureCookies).RegisterRoutes(app, auth)
	handlers.NewProductHandler(d.Products).RegisterRoutes(app, auth)
	handlers.NewCartHandler(d.Carts).RegisterRoutes(app, auth)
	handlers.NewUserHandler(d.Auth).RegisterRoutes(app, auth)

	return app
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				log.Printf("Health check failed: %v", err)
				status["status"] = "unhealthy"
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	}
}

// errorHandler renders errors that escape handlers (unknown routes, panics) as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
	})
}
