package handlers

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/database"
	"storefront/internal/services"
)

// newValidator returns a validator that checks decimal.Decimal fields as numbers
// and reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return badRequest(c, "Validation failed", err)
	}

	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func badRequest(c *fiber.Ctx, message string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and answered with a generic 500.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := fiber.StatusInternalServerError
	detail := "internal server error"

	switch {
	case errors.Is(err, database.ErrNotFound):
		status, detail = fiber.StatusNotFound, "not found"
	case errors.Is(err, database.ErrOutOfStock):
		status, detail = fiber.StatusBadRequest, "out of stock"
	case errors.Is(err, services.ErrInvalidQuantity):
		status, detail = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		// max=72 counts runes, bcrypt counts bytes
		status, detail = fiber.StatusBadRequest, "password must be at most 72 bytes"
	case errors.Is(err, database.ErrDuplicate):
		status, detail = fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		status, detail = fiber.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, services.ErrInvalidToken):
		status, detail = fiber.StatusUnauthorized, "invalid or expired token"
	default:
		log.Printf("%s: %v", message, err)
	}

	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   detail,
	})
}

// paramID parses a positive integer path parameter. Anything else cannot name a
// row, so it is reported as database.ErrNotFound.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, c.Params(name), database.ErrNotFound)
	}
	return uint(id), nil
}
