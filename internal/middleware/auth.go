package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/pkg/utils"
	"github.com/google/uuid"
)

const sessionKey = "session"

// Session is the signed-in identity attached to a request by AuthRequired.
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   string
	Token  string
}

// SessionFrom returns the request's session. ok is false on routes outside AuthRequired.
func SessionFrom(c *fiber.Ctx) (Session, bool) {
	session, ok := c.Locals(sessionKey).(Session)
	return session, ok
}

func unauthenticated(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "unauthenticated",
	})
}

// AuthRequired validates the Supabase access token from the Authorization header.
// Websocket upgrades may pass it as the access_token query parameter instead.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		authHeader := c.Get("Authorization")
		switch {
		case authHeader != "":
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return unauthenticated(c, "Invalid authorization header format")
			}
			tokenString = parts[1]
		case c.Query("access_token") != "":
			tokenString = c.Query("access_token")
		default:
			return unauthenticated(c, "Missing authorization header")
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			return unauthenticated(c, "Invalid or expired token")
		}

		c.Locals(sessionKey, Session{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
			Token:  tokenString,
		})

		return c.Next()
	}
}
