package middleware

import (
	"strings"

	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/gofiber/fiber/v2"
)

// RequireRole checks the system role set by AuthRequired. It must run after it.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return func(c *fiber.Ctx) error {
		userRole, _ := c.Locals("role").(string)
		if !allowed[strings.ToLower(userRole)] {
			return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
		}
		return c.Next()
	}
}
