package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vigilo-edu/vigilo-go-api/internal/middleware"
)

// requestContext carries the correlation identifier into the service layer so
// decision fan-out and logs can be tied back to the originating request.
func requestContext(c *fiber.Ctx) context.Context {
	return middleware.ContextWithCorrelation(c.Context(), middleware.GetCorrelationID(c))
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}
