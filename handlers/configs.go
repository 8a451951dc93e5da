package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Qwizi/cs2-battle-bot/services"
)

func SetupConfigRoutes(app *fiber.App, configService *services.ConfigService) {
	api := app.Group("/api")

	api.Get("/maps", func(c *fiber.Ctx) error {
		maps, err := configService.ListMaps(c.Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(maps)
	})

	api.Post("/maps", func(c *fiber.Ctx) error {
		var req services.CreateMapRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		m, err := configService.CreateMap(c.Context(), req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	api.Get("/map-pools", func(c *fiber.Ctx) error {
		pools, err := configService.ListMapPools(c.Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(pools)
	})

	api.Post("/map-pools", func(c *fiber.Ctx) error {
		var req services.CreateMapPoolRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		pool, err := configService.CreateMapPool(c.Context(), req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(pool)
	})

	api.Get("/match-configs", func(c *fiber.Ctx) error {
		configs, err := configService.ListConfigs(c.Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(configs)
	})

	api.Get("/match-configs/:name", func(c *fiber.Ctx) error {
		config, err := configService.GetConfigByName(c.Context(), c.Params("name"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(config)
	})

	api.Post("/match-configs", func(c *fiber.Ctx) error {
		var req services.CreateConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		config, err := configService.CreateConfig(c.Context(), req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(config)
	})
}
