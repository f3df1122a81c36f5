package httpx

import (
	"fmt"
	"strconv"

	"github.com/FranMor97/Book-Server/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

func Conflict(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError writes the response for a service failure. Anything that is not
// a *service.Error is logged and reported as a 500 without details.
func FromError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := service.KindOf(err)
	switch kind {
	case service.KindUnauthorized:
		return Unauthorized(c, string(kind), err.Error())
	case service.KindNotFound:
		return NotFound(c, string(kind), err.Error())
	case service.KindForbidden:
		return Forbidden(c, string(kind), err.Error())
	case service.KindConflict:
		return Conflict(c, string(kind), err.Error())
	case service.KindInvalidArgument, service.KindInvalidState:
		return BadRequest(c, string(kind), err.Error())
	}

	if log != nil {
		log.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return Internal(c, "internal_error")
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}

// ParamUint parses a positive numeric route parameter.
func ParamUint(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(n), nil
}
