package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voicedeck/postqueue/internal/service"
	"github.com/voicedeck/postqueue/internal/transfer"
)

type QueueHandler struct {
	q  service.QueueService
	ap service.ApprovalService
}

func NewQueueHandler(q service.QueueService, ap service.ApprovalService) *QueueHandler {
	return &QueueHandler{q: q, ap: ap}
}

func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	userId := GetUserID(c)

	var req transfer.EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	item, err := h.q.Enqueue(c.Context(), userId, &req)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *QueueHandler) List(c *fiber.Ctx) error {
	userId := GetUserID(c)

	filter := transfer.QueueFilter{
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}

	items, total, err := h.q.List(c.Context(), userId, &filter)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"items": items,
		"total": total,
	})
}

func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	userId := GetUserID(c)

	stats, err := h.q.Stats(c.Context(), userId)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(stats)
}

func (h *QueueHandler) Approve(c *fiber.Ctx) error {
	userId := GetUserID(c)

	itemId, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item id",
		})
	}

	var edit transfer.ApproveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&edit); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse json",
			})
		}
	}

	item, err := h.ap.Approve(c.Context(), int64(itemId), userId, &edit)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(item)
}

func (h *QueueHandler) Reject(c *fiber.Ctx) error {
	userId := GetUserID(c)

	itemId, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item id",
		})
	}

	var req transfer.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	item, err := h.ap.Reject(c.Context(), int64(itemId), userId, req.Reason)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(item)
}

func (h *QueueHandler) BulkApprove(c *fiber.Ctx) error {
	userId := GetUserID(c)

	var req transfer.BulkApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	approved, err := h.ap.BulkApprove(c.Context(), req.ItemIDs, userId)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"approved": approved,
	})
}

func (h *QueueHandler) Reschedule(c *fiber.Ctx) error {
	userId := GetUserID(c)

	itemId, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item id",
		})
	}

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	item, err := h.q.Reschedule(c.Context(), int64(itemId), userId, &req)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(item)
}

func (h *QueueHandler) Cancel(c *fiber.Ctx) error {
	userId := GetUserID(c)

	itemId, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item id",
		})
	}

	if err := h.q.Cancel(c.Context(), int64(itemId), userId); err != nil {
		return errorJSON(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) History(c *fiber.Ctx) error {
	userId := GetUserID(c)

	history, err := h.q.History(c.Context(), userId, c.QueryInt("limit", 0))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(history)
}
