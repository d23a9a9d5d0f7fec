package handlers

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	eventsws "github.com/gogetteranushka/wellness-agent-core/internal/websocket"
	"github.com/google/uuid"
)

type EventsHandler struct {
	hub *eventsws.Hub
}

func NewEventsHandler(hub *eventsws.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Upgrade runs after AuthRequired and hands the session to the websocket connection.
func (h *EventsHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return unauthorized(c)
	}
	c.Locals("user_id", session.UserID)
	return c.Next()
}

func (h *EventsHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, ok := conn.Locals("user_id").(uuid.UUID)
	if !ok {
		_ = conn.Close()
		return
	}
	client := eventsws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}
