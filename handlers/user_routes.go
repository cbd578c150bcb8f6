// handlers/user_routes.go
package handlers

import (
	"log"
	"strings"

	"coin-tycoon/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := userService.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			log.Printf("❌ Health check: DB unreachable: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/users", func(c *fiber.Ctx) error {
		var req struct {
			ID         string  `json:"id"`
			Username   string  `json:"username"`
			ReferrerID *string `json:"referrer_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Username = strings.TrimSpace(req.Username)
		if req.ID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
		}
		if req.Username == "" {
			req.Username = "player-" + req.ID
		}

		user, err := userService.CreateOrFetchUser(req.ID, req.Username, req.ReferrerID)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(user)
	})

	app.Get("/users/:id", func(c *fiber.Ctx) error {
		user, err := userService.GetUser(c.Params("id"))
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(user)
	})

	app.Post("/users/:id/mine", func(c *fiber.Ctx) error {
		result, err := userService.Mine(c.Params("id"))
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(result)
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := userService.Leaderboard(c.QueryInt("limit", 10))
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{"leaderboard": entries})
	})
}
