package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Qwizi/cs2-battle-bot/services"
)

func SetupPlayerRoutes(app *fiber.App, playerService *services.PlayerService) {
	api := app.Group("/api")

	api.Get("/players", func(c *fiber.Ctx) error {
		players, err := playerService.ListPlayers(c.Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(players)
	})

	api.Get("/players/discord/:user_id", func(c *fiber.Ctx) error {
		player, err := playerService.FindByDiscordID(c.Context(), c.Params("user_id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(player)
	})

	api.Post("/players", func(c *fiber.Ctx) error {
		var req services.RegisterPlayerRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		player, err := playerService.RegisterPlayer(c.Context(), req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(player)
	})
}
