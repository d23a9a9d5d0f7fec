package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
	"github.com/google/uuid"
)

type profileService interface {
	GetView(ctx context.Context, userID uuid.UUID) (*models.ProfileView, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req repository.UpdateUserProfileInput) (*models.ProfileView, error)
	EditorState(userID uuid.UUID) services.EditorState
	BeginEdit(ctx context.Context, userID uuid.UUID) (services.EditorState, error)
	SetFields(userID uuid.UUID, fields map[string]any) (services.EditorState, error)
	Commit(ctx context.Context, userID uuid.UUID) (*models.ProfileView, error)
	Cancel(userID uuid.UUID) (services.EditorState, error)
	ListConditions(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.ConditionRecord, int, error)
	LogCondition(ctx context.Context, userID uuid.UUID, name string, diagnosed *time.Time) (*models.ConditionRecord, error)
}

type ProfileHandler struct {
	service profileService
}

func NewProfileHandler(service profileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateUserProfileRequest struct {
	Age                *int            `json:"age"`
	Gender             *string         `json:"gender"`
	HeightCM           *float64        `json:"height_cm"`
	WeightKG           *float64        `json:"weight_kg"`
	DietaryPreferences json.RawMessage `json:"dietary_preferences"`
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	view, err := h.service.GetView(c.Context(), session.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req updateUserProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	input, validationErr := toUpdateInput(req)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	view, err := h.service.UpdateProfile(c.Context(), session.UserID, input)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *ProfileHandler) BeginEdit(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	state, err := h.service.BeginEdit(c.Context(), session.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"editor": state})
}

func (h *ProfileHandler) GetEditor(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{"editor": h.service.EditorState(session.UserID)})
}

// SetFields takes a JSON object of field names to new values and applies them to the draft.
func (h *ProfileHandler) SetFields(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var fields map[string]any
	if err := json.Unmarshal(c.Body(), &fields); err != nil || len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	state, err := h.service.SetFields(session.UserID, fields)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"editor": state})
}

func (h *ProfileHandler) Commit(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	view, err := h.service.Commit(c.Context(), session.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *ProfileHandler) Cancel(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	state, err := h.service.Cancel(session.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"editor": state})
}
