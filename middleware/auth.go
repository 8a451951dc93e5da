package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIKeyAuthMiddleware validates the Bearer token sent by the Discord bot
// and by the matchzy plugin on webhook deliveries.
func APIKeyAuthMiddleware(apiKey string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.Warn("missing Authorization header", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "missing API key",
			})
		}

		// Accept "Bearer <key>" or the raw key.
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token != apiKey {
			logger.Warn("invalid API key", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid API key",
			})
		}

		return c.Next()
	}
}
