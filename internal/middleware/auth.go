package middleware

import (
	"errors"
	"strings"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/gofiber/fiber/v2"
)

func AuthRequired(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
		}

		identity, err := gate.Verify(authHeader)
		if err != nil {
			if errors.Is(err, auth.ErrExpired) {
				return httpx.Unauthorized(c, "expired_access_token", "Token expired")
			}
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
		}

		c.Locals("userID", identity.UserID)
		c.Locals("role", identity.Role)
		return c.Next()
	}
}

// AuthOptional is used on the websocket upgrade. A valid credential from the
// Authorization header or the token query parameter marks the connection as
// authenticated; anything else leaves it pending so the client can still
// authenticate over the socket.
func AuthOptional(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := c.Get("Authorization")
		if credential == "" {
			credential = c.Query("token")
		}
		if credential == "" {
			return c.Next()
		}

		identity, err := gate.Verify(credential)
		if err != nil {
			c.Locals("authError", err.Error())
			return c.Next()
		}
		c.Locals("userID", identity.UserID)
		c.Locals("role", identity.Role)
		return c.Next()
	}
}
