package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Qwizi/cs2-battle-bot/services"
)

// statusForError maps service error kinds onto HTTP statuses. The services
// themselves never see transport codes.
func statusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindPermission:
		return fiber.StatusForbidden
	case services.KindConflict:
		return fiber.StatusConflict
	case services.KindValidation, services.KindInvalidState:
		return fiber.StatusBadRequest
	case services.KindUpstreamUnavailable:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"message": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}
