// handlers/business_routes.go
package handlers

import (
	"coin-tycoon/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBusinessRoutes(app *fiber.App, businessService *services.BusinessService, userService *services.UserService) {
	app.Get("/businesses", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"businesses": services.BusinessCatalog})
	})

	app.Get("/businesses/stats", func(c *fiber.Ctx) error {
		stats, err := businessService.Stats()
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{"stats": stats})
	})

	app.Post("/users/:id/purchase", func(c *fiber.Ctx) error {
		var req struct {
			BusinessID string `json:"business_id"`
			Quantity   int64  `json:"quantity"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		receipt, err := businessService.Purchase(c.Params("id"), req.BusinessID, req.Quantity)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(receipt)
	})

	app.Get("/users/:id/businesses", func(c *fiber.Ctx) error {
		holdings, err := userService.Holdings(c.Params("id"))
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{
			"holdings":    holdings,
			"income_rate": services.IncomeRate(holdings),
		})
	})
}
