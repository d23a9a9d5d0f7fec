package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
)

const intakePath = "/api/v1/intake"

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Authentication required",
		"code":  "unauthenticated",
	})
}

func mapServiceError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	var profileErr *services.ProfileWriteError
	var conditionsErr *services.ConditionsWriteError
	var appErr *services.ApplicationError
	var transportErr *services.TransportError
	var storeErr *services.StoreError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Message, "field": validationErr.Field})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrReadOnlyField), errors.Is(err, services.ErrUnknownField):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		return unauthorized(c)
	case errors.Is(err, services.ErrNotOnboarded):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "Profile not found",
			"code":     "not_onboarded",
			"redirect": intakePath,
		})
	case errors.Is(err, services.ErrNotLoaded), errors.Is(err, services.ErrNotEditing):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "code": "not_editing"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "code": "invalid_transition"})
	case errors.Is(err, services.ErrAlreadyComplete):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "code": "already_complete"})
	case errors.Is(err, services.ErrUnknownAction):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &profileErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": profileErr.Error(), "profile_saved": false})
	case errors.As(err, &conditionsErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": conditionsErr.Error(), "profile_saved": true})
	case errors.As(err, &appErr):
		return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr.Message, "details": appErr.Body})
	case errors.As(err, &storeErr):
		slog.Warn("profile store failed", "op", storeErr.Op, "path", c.Path(), "error", storeErr.Err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": storeErr.Error()})
	case errors.As(err, &transportErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "AI service unavailable"})
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
