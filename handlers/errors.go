package handlers

import (
	"errors"

	"coin-tycoon/services"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps service outcomes to HTTP statuses: validation failures
// are 400, unknown ids 404, business-outcome conflicts (already claimed, not
// enough coins, cooldown) 409 so callers can tell "no-op because already
// done" apart from success.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrUnknownBusiness):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrReferrerNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrReferredExists),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrMineCooldown):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
