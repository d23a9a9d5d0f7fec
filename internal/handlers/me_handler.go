package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
	"github.com/google/uuid"
)

type profileViewer interface {
	GetView(ctx context.Context, userID uuid.UUID) (*models.ProfileView, error)
}

// MeHandler reports the signed-in identity and whether intake has been completed.
type MeHandler struct {
	profiles profileViewer
}

func NewMeHandler(profiles profileViewer) *MeHandler {
	return &MeHandler{profiles: profiles}
}

func (h *MeHandler) Me(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	response := fiber.Map{
		"user": fiber.Map{
			"id":    session.UserID,
			"email": session.Email,
			"role":  session.Role,
		},
	}

	view, err := h.profiles.GetView(c.Context(), session.UserID)
	switch {
	case err == nil:
		response["onboarded"] = true
		response["derived"] = view.Derived
	case errors.Is(err, services.ErrNotOnboarded):
		response["onboarded"] = false
		response["redirect"] = intakePath
	default:
		return mapServiceError(c, err)
	}

	return c.JSON(response)
}
