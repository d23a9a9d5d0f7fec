package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
)

type actionDispatcher interface {
	Dispatch(ctx context.Context, req services.ActionRequest) (*services.ActionResult, error)
	Chat(ctx context.Context, req services.ChatRequest, token string) (*services.ActionResult, error)
}

// ActionHandler proxies AI backend actions with the caller's own access token.
type ActionHandler struct {
	dispatcher actionDispatcher
}

func NewActionHandler(dispatcher actionDispatcher) *ActionHandler {
	return &ActionHandler{dispatcher: dispatcher}
}

func (h *ActionHandler) Forward(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := middleware.SessionFrom(c)
		if !ok {
			return unauthorized(c)
		}

		req := services.ActionRequest{
			Action: action,
			Method: c.Method(),
			Token:  session.Token,
		}
		if c.Method() == fiber.MethodGet {
			query := url.Values{}
			c.Context().QueryArgs().VisitAll(func(key, value []byte) {
				query.Add(string(key), string(value))
			})
			req.Query = query
		} else {
			body := c.Body()
			req.Payload = append([]byte(nil), body...)
		}

		result, err := h.dispatcher.Dispatch(c.Context(), req)
		if err != nil {
			return mapServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(result.Status).Send(result.Data)
	}
}

func (h *ActionHandler) Chat(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.dispatcher.Chat(c.Context(), req, session.Token)
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(result.Status).Send(result.Data)
}
