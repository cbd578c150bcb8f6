// middleware/webhook_auth.go
package middleware

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// WebhookAuthMiddleware validates the secret token the chat platform echoes
// back on every webhook delivery. Deliveries without the exact token are
// rejected before any body parsing happens.
func WebhookAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	if expectedToken == "" {
		log.Fatal("❌ TELEGRAM_WEBHOOK_SECRET is not set, webhook cannot authenticate deliveries")
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Telegram-Bot-Api-Secret-Token")
		if token == "" {
			log.Printf("🚫 [WEBHOOK_AUTH] Missing secret token header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "webhook secret token missing",
			})
		}
		if token != expectedToken {
			log.Printf("❌ [WEBHOOK_AUTH] Invalid secret token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook secret token",
			})
		}
		return c.Next()
	}
}
