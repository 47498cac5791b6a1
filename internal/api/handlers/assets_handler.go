package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voicedeck/postqueue/internal/service"
)

type AssetsHandler struct {
	s service.AssetService
}

func NewAssetsHandler(s service.AssetService) *AssetsHandler {
	return &AssetsHandler{s: s}
}

func (h *AssetsHandler) Upload(c *fiber.Ctx) error {
	userId := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse multipart form",
		})
	}

	files := form.File["media"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No media files provided",
		})
	}

	assets, err := h.s.Upload(c.Context(), userId, files)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(assets)
}

func (h *AssetsHandler) List(c *fiber.Ctx) error {
	userId := GetUserID(c)

	assets, err := h.s.List(c.Context(), userId)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(assets)
}
