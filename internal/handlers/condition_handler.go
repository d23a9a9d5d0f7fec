package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
)

const diagnosedDateLayout = "2006-01-02"

type logConditionRequest struct {
	ConditionName string `json:"condition_name"`
	DiagnosedDate string `json:"diagnosed_date"`
}

func (h *ProfileHandler) ListConditions(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	conditions, total, err := h.service.ListConditions(c.Context(), session.UserID, page, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"conditions": conditions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ProfileHandler) LogCondition(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req logConditionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var diagnosed *time.Time
	if raw := strings.TrimSpace(req.DiagnosedDate); raw != "" {
		parsed, err := time.Parse(diagnosedDateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "diagnosed_date must be YYYY-MM-DD"})
		}
		diagnosed = &parsed
	}

	record, err := h.service.LogCondition(c.Context(), session.UserID, req.ConditionName, diagnosed)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"condition": record})
}
