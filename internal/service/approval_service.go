package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/transfer"
)

type ApprovalService interface {
	Approve(ctx context.Context, itemID, actorID int64, edit *transfer.ApproveRequest) (*models.QueueItem, error)
	Reject(ctx context.Context, itemID, actorID int64, reason string) (*models.QueueItem, error)
	BulkApprove(ctx context.Context, itemIDs []int64, actorID int64) ([]int64, error)
}

type approvalService struct {
	qr  repository.QueueRepository
	sch SchedulerService
}

func NewApprovalService(qr repository.QueueRepository, sch SchedulerService) ApprovalService {
	return &approvalService{
		qr:  qr,
		sch: sch,
	}
}

func (s *approvalService) getOwnedItem(ctx context.Context, itemID, actorID int64) (*models.QueueItem, error) {
	item, err := s.qr.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != actorID {
		return nil, apperrors.ErrNotFound
	}
	return item, nil
}

// Approve applies an optional payload edit, asks the scheduler for a
// slot and lands the item in scheduled with a scheduled_for stamp. The
// slot is found before any status write: when no slot exists the item
// stays pending and can be approved again later.
func (s *approvalService) Approve(ctx context.Context, itemID, actorID int64, edit *transfer.ApproveRequest) (*models.QueueItem, error) {
	item, err := s.getOwnedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}

	if item.Status != models.ItemStatusPending {
		slog.Info("approve attempted on non-pending item", "item_id", itemID, "status", item.Status)
		return nil, apperrors.ErrInvalidTransition
	}

	if edit != nil {
		title, body, hashtags := item.Title, item.Body, item.Hashtags
		if edit.Title != nil {
			title = *edit.Title
		}
		if edit.Body != nil {
			body = *edit.Body
		}
		if edit.Hashtags != nil {
			hashtags = *edit.Hashtags
		}
		if strings.TrimSpace(body) == "" {
			slog.Info("edited payload has empty body")
			return nil, apperrors.ErrValidation
		}
		if err := s.qr.UpdatePayload(ctx, itemID, title, body, hashtags); err != nil {
			return nil, err
		}
	}

	slot, err := s.sch.FindSlot(ctx, item.UserID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.qr.SetApprovedScheduled(ctx, itemID, actorID, slot); err != nil {
		return nil, err
	}

	return s.qr.GetByID(ctx, itemID)
}

func (s *approvalService) Reject(ctx context.Context, itemID, actorID int64, reason string) (*models.QueueItem, error) {
	if strings.TrimSpace(reason) == "" {
		slog.Info("reject requires a non-empty reason")
		return nil, apperrors.ErrValidation
	}

	item, err := s.getOwnedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}

	if item.Status != models.ItemStatusPending {
		slog.Info("reject attempted on non-pending item", "item_id", itemID, "status", item.Status)
		return nil, apperrors.ErrInvalidTransition
	}

	if err := s.qr.SetRejected(ctx, itemID, actorID, reason); err != nil {
		return nil, err
	}

	return s.qr.GetByID(ctx, itemID)
}

// BulkApprove approves what it can and reports the ids that went
// through; items that are absent or not pending are skipped.
func (s *approvalService) BulkApprove(ctx context.Context, itemIDs []int64, actorID int64) ([]int64, error) {
	var approved []int64
	for _, id := range itemIDs {
		if _, err := s.Approve(ctx, id, actorID, nil); err != nil {
			slog.Info("bulk approve skipped item", "item_id", id, "error", err.Error())
			continue
		}
		approved = append(approved, id)
	}
	return approved, nil
}
