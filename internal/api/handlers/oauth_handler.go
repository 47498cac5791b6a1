package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/service"
)

type OAuthHandler struct {
	s   service.CredentialService
	cfg config.Config
}

func NewOAuthHandler(cfg config.Config, s service.CredentialService) *OAuthHandler {
	return &OAuthHandler{s: s, cfg: cfg}
}

func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	userId := GetUserID(c)

	authURL, err := h.s.BeginAuthorization(c.Context(), userId)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	userId := GetUserID(c)

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code or state is missing",
		})
	}

	if err := h.s.CompleteAuthorization(c.Context(), userId, code, state); err != nil {
		return errorJSON(c, err)
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) Disconnect(c *fiber.Ctx) error {
	userId := GetUserID(c)

	if err := h.s.Disconnect(c.Context(), userId); err != nil {
		return errorJSON(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *OAuthHandler) Status(c *fiber.Ctx) error {
	userId := GetUserID(c)

	cred, found, err := h.s.Status(c.Context(), userId)
	if err != nil {
		return errorJSON(c, err)
	}

	if !found {
		return c.JSON(fiber.Map{
			"connected": false,
		})
	}

	return c.JSON(fiber.Map{
		"connected":    true,
		"account_name": cred.AccountName,
		"expires_at":   cred.ExpiresAt,
	})
}
