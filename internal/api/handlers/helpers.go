package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/voicedeck/postqueue/internal/apperrors"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// errorJSON maps service errors onto HTTP statuses. Anything not an
// expected domain error is reported as a 500 without leaking details.
func errorJSON(c *fiber.Ctx, err error) error {
	var quotaErr *apperrors.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":    "posting limit reached",
			"reset_at": quotaErr.ResetAt,
		})
	}

	var slotErr *apperrors.SlotConflictError
	if errors.As(err, &slotErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": slotErr.Error(),
		})
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrInvalidState):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrConfiguration):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "integration is not configured",
		})
	case errors.Is(err, apperrors.ErrAuthorizationFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "authorization exchange failed",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "something went wrong",
	})
}
