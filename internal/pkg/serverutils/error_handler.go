package serverutils

import (
	"errors"

	"ai-topic-notes/internal/store"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message, details := classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message, details...))
	}
}

func classify(err error) (int, string, []string) {
	var validationErr *ValidationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, "Validation failed", validationErr.Fields
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message, nil
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, err.Error(), nil
	case errors.Is(err, store.ErrConstraintViolation):
		return fiber.StatusConflict, err.Error(), nil
	case errors.Is(err, store.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, err.Error(), nil
	default:
		return fiber.StatusInternalServerError, err.Error(), nil
	}
}
