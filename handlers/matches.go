package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Qwizi/cs2-battle-bot/services"
)

// Interaction bodies mirror what the Discord bot sends for slash commands.
type interactionBody struct {
	InteractionUserID string `json:"interaction_user_id"`
	Team              string `json:"team,omitempty"`
	MapTag            string `json:"map_tag,omitempty"`
}

func parseInteraction(c *fiber.Ctx) (*interactionBody, error) {
	var body interactionBody
	if err := c.BodyParser(&body); err != nil {
		return nil, services.ValidationError("invalid JSON body")
	}
	if body.InteractionUserID == "" {
		return nil, services.ValidationError("interaction_user_id is required")
	}
	return &body, nil
}

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	api := app.Group("/api")

	api.Post("/matches", func(c *fiber.Ctx) error {
		var req services.CreateMatchRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		match, err := matchService.CreateMatch(c.Context(), req)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(match)
	})

	api.Get("/matches", func(c *fiber.Ctx) error {
		matches, err := matchService.ListMatches(c.Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(matches)
	})

	api.Get("/matches/:id", func(c *fiber.Ctx) error {
		match, err := matchService.GetMatch(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	// The game server plugin fetches this URL when the match is loaded.
	api.Get("/matches/:id/config", func(c *fiber.Ctx) error {
		match, err := matchService.GetMatch(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match.MatchzyConfig())
	})

	// The bot registers the Discord message it renders the match in.
	api.Put("/matches/:id/message", func(c *fiber.Ctx) error {
		var body struct {
			MessageID string `json:"message_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errorResponse(c, services.ValidationError("invalid JSON body"))
		}
		match, err := matchService.SetMessageID(c.Context(), c.Params("id"), body.MessageID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/join", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.Join(c.Context(), c.Params("id"), body.InteractionUserID, body.Team)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/leave", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.Leave(c.Context(), c.Params("id"), body.InteractionUserID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/start", func(c *fiber.Ctx) error {
		match, err := matchService.StartMatch(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/captain", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.SelectCaptain(c.Context(), c.Params("id"), body.InteractionUserID, body.Team)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/shuffle", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.Shuffle(c.Context(), c.Params("id"), body.InteractionUserID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/ban", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		result, err := matchService.BanMap(c.Context(), c.Params("id"), body.InteractionUserID, body.MapTag)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(result)
	})

	api.Post("/matches/:id/pick", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		result, err := matchService.PickMap(c.Context(), c.Params("id"), body.InteractionUserID, body.MapTag)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(result)
	})

	api.Post("/matches/:id/load", func(c *fiber.Ctx) error {
		result, err := matchService.LoadMatch(c.Context(), c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(result)
	})

	api.Post("/matches/:id/cancel", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.Cancel(c.Context(), c.Params("id"), body.InteractionUserID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(match)
	})

	api.Post("/matches/:id/recreate", func(c *fiber.Ctx) error {
		body, err := parseInteraction(c)
		if err != nil {
			return errorResponse(c, err)
		}
		match, err := matchService.Recreate(c.Context(), c.Params("id"), body.InteractionUserID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(match)
	})

	api.Post("/matches/:id/webhook", func(c *fiber.Ctx) error {
		result, err := matchService.ApplyWebhookEvent(c.Context(), c.Params("id"), c.Body())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(result)
	})
}
