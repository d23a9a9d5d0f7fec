package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
	"github.com/google/uuid"
)

type intakeService interface {
	State(userID uuid.UUID) services.IntakeState
	SetDemographics(userID uuid.UUID, d services.Demographics) (services.IntakeState, error)
	ToggleCondition(userID uuid.UUID, condition string) (services.IntakeState, error)
	SetDietType(userID uuid.UUID, dietType string) (services.IntakeState, error)
	SetGoal(userID uuid.UUID, goal string) (services.IntakeState, error)
	Next(userID uuid.UUID) (services.IntakeState, error)
	Back(userID uuid.UUID) (services.IntakeState, error)
	Submit(ctx context.Context, userID uuid.UUID) (services.IntakeResult, error)
	Reset(userID uuid.UUID)
}

type IntakeHandler struct {
	service intakeService
}

func NewIntakeHandler(service intakeService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

type toggleConditionRequest struct {
	Condition string `json:"condition"`
}

type dietTypeRequest struct {
	DietType string `json:"diet_type"`
}

type goalRequest struct {
	Goal string `json:"goal"`
}

func (h *IntakeHandler) GetState(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{"intake": h.service.State(session.UserID)})
}

func (h *IntakeHandler) Options(c *fiber.Ctx) error {
	return c.JSON(services.Options())
}

func (h *IntakeHandler) SetDemographics(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.Demographics
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.SetDemographics(session.UserID, req)
	})
}

func (h *IntakeHandler) ToggleCondition(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req toggleConditionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.ToggleCondition(session.UserID, req.Condition)
	})
}

func (h *IntakeHandler) SetDietType(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req dietTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.SetDietType(session.UserID, req.DietType)
	})
}

func (h *IntakeHandler) SetGoal(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req goalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.SetGoal(session.UserID, req.Goal)
	})
}

func (h *IntakeHandler) Next(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.Next(session.UserID)
	})
}

func (h *IntakeHandler) Back(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return h.respond(c, func() (services.IntakeState, error) {
		return h.service.Back(session.UserID)
	})
}

func (h *IntakeHandler) Submit(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	result, err := h.service.Submit(c.Context(), session.UserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"intake":   result.State,
		"redirect": result.Redirect,
	})
}

func (h *IntakeHandler) Reset(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	h.service.Reset(session.UserID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *IntakeHandler) respond(c *fiber.Ctx, call func() (services.IntakeState, error)) error {
	state, err := call()
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"intake": state})
}
