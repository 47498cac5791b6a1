package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voicedeck/postqueue/internal/service"
)

type LimitsHandler struct {
	s service.QuotaService
}

func NewLimitsHandler(s service.QuotaService) *LimitsHandler {
	return &LimitsHandler{s: s}
}

func (h *LimitsHandler) GetLimits(c *fiber.Ctx) error {
	userId := GetUserID(c)

	limits, err := h.s.Limits(c.Context(), userId)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(limits)
}
