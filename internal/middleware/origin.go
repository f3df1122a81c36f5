package middleware

import (
	"strings"

	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/gofiber/fiber/v2"
)

// OriginAllowed rejects browser requests from origins outside the list. An
// empty list allows everything.
func OriginAllowed(allowedOrigins []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := strings.TrimSpace(c.Get("Origin"))
		if origin == "" || len(allowedOrigins) == 0 {
			return c.Next()
		}
		if !originAllowed(origin, allowedOrigins) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		return c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
