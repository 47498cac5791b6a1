package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/transfer"
)

const (
	ContentTypePost    = "post"
	ContentTypeArticle = "article"
	ContentTypeStory   = "story"
)

type QueueService interface {
	Enqueue(ctx context.Context, userID int64, req *transfer.EnqueueRequest) (*models.QueueItem, error)
	List(ctx context.Context, userID int64, filter *transfer.QueueFilter) ([]*models.QueueItem, int, error)
	Stats(ctx context.Context, userID int64) (*models.QueueStats, error)
	Reschedule(ctx context.Context, itemID, userID int64, req *transfer.RescheduleRequest) (*models.QueueItem, error)
	Cancel(ctx context.Context, itemID, userID int64) error
	History(ctx context.Context, userID int64, limit int) ([]*models.PostingHistory, error)
}

type queueService struct {
	db  *sql.DB
	qr  repository.QueueRepository
	ma  repository.MediaAssetRepository
	im  repository.ItemMediaRepository
	sr  repository.SettingsRepository
	ph  repository.PostingHistoryRepository
	sch SchedulerService
}

func NewQueueService(
	db *sql.DB,
	qr repository.QueueRepository,
	ma repository.MediaAssetRepository,
	im repository.ItemMediaRepository,
	sr repository.SettingsRepository,
	ph repository.PostingHistoryRepository,
	sch SchedulerService) QueueService {
	return &queueService{
		db:  db,
		qr:  qr,
		ma:  ma,
		im:  im,
		sr:  sr,
		ph:  ph,
		sch: sch,
	}
}

// Enqueue creates a pending queue item from the content source. Users
// on an auto-approval tier skip human review: the item is approved and
// handed to the scheduler in the same call.
func (s *queueService) Enqueue(ctx context.Context, userID int64, req *transfer.EnqueueRequest) (*models.QueueItem, error) {
	if req == nil || strings.TrimSpace(req.Body) == "" {
		slog.Info("enqueue requires a non-empty body")
		return nil, apperrors.ErrValidation
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentTypePost
	}

	settings, hasSettings, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	autoApprove := hasSettings && settings.AutoApprove()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	item := models.QueueItem{
		UserID:      userID,
		ContentType: contentType,
		Source:      req.Source,
		Title:       req.Title,
		Body:        req.Body,
		Hashtags:    req.Hashtags,
		Status:      models.ItemStatusPending,
	}

	itemID, err := s.qr.Create(ctx, tx, &item)
	if err != nil {
		return nil, fmt.Errorf("error creating queue item: %w", err)
	}

	for order, assetID := range req.MediaIDs {
		owned, checkErr := s.ma.CheckByUserID(ctx, assetID, userID)
		if checkErr != nil {
			err = checkErr
			return nil, err
		}
		if !owned {
			slog.Info("media asset does not belong to user", "asset_id", assetID)
			err = apperrors.ErrValidation
			return nil, err
		}
		err = s.im.Create(ctx, tx, &models.QueueItemMedia{
			ItemID:       itemID,
			AssetID:      assetID,
			DisplayOrder: order,
		})
		if err != nil {
			return nil, fmt.Errorf("error attaching media: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if autoApprove {
		s.autoApprove(ctx, itemID, userID)
	}

	return s.qr.GetByID(ctx, itemID)
}

// autoApprove schedules a freshly ingested item for an auto-approval
// tier. The status flips only once a slot is found; if none is open the
// item stays pending for manual review instead of stranding approved
// without a scheduled_for.
func (s *queueService) autoApprove(ctx context.Context, itemID, userID int64) {
	slot, err := s.sch.FindSlot(ctx, userID, itemID)
	if err != nil {
		slog.Info("auto approval found no open slot, item stays pending", "item_id", itemID, "error", err.Error())
		return
	}
	if err := s.qr.SetApprovedScheduled(ctx, itemID, userID, slot); err != nil {
		slog.Info("error scheduling auto-approved item", "item_id", itemID, "error", err.Error())
	}
}

func (s *queueService) List(ctx context.Context, userID int64, filter *transfer.QueueFilter) ([]*models.QueueItem, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	return s.qr.List(ctx, userID, filter.Status, limit, (page-1)*limit)
}

func (s *queueService) Stats(ctx context.Context, userID int64) (*models.QueueStats, error) {
	return s.qr.Stats(ctx, userID)
}

// Reschedule updates the delivery slot and/or the payload of an item
// that has not been delivered yet.
func (s *queueService) Reschedule(ctx context.Context, itemID, userID int64, req *transfer.RescheduleRequest) (*models.QueueItem, error) {
	item, err := s.qr.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	if req.Title != nil || req.Body != nil || req.Hashtags != nil {
		if item.Status != models.ItemStatusPending && !models.IsActive(item.Status) {
			slog.Info("payload edit attempted on terminal item", "item_id", itemID, "status", item.Status)
			return nil, apperrors.ErrInvalidTransition
		}
		title, body, hashtags := item.Title, item.Body, item.Hashtags
		if req.Title != nil {
			title = *req.Title
		}
		if req.Body != nil {
			body = *req.Body
		}
		if req.Hashtags != nil {
			hashtags = *req.Hashtags
		}
		if strings.TrimSpace(body) == "" {
			return nil, apperrors.ErrValidation
		}
		if err := s.qr.UpdatePayload(ctx, itemID, title, body, hashtags); err != nil {
			return nil, err
		}
	}

	if req.ScheduledFor != nil {
		if !models.IsActive(item.Status) {
			slog.Info("reschedule attempted on non-active item", "item_id", itemID, "status", item.Status)
			return nil, apperrors.ErrInvalidTransition
		}
		if err := s.sch.ValidateSlot(ctx, userID, *req.ScheduledFor, itemID); err != nil {
			return nil, err
		}
		if err := s.qr.SetScheduled(ctx, itemID, *req.ScheduledFor); err != nil {
			return nil, err
		}
	}

	return s.qr.GetByID(ctx, itemID)
}

// Cancel is terminal and frees the item's slot. A cancel racing an
// in-flight publish loses to a success but always wins over a retry.
func (s *queueService) Cancel(ctx context.Context, itemID, userID int64) error {
	owned, err := s.qr.CheckByUserID(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return apperrors.ErrNotFound
	}

	cancelled, err := s.qr.MarkCancelled(ctx, itemID)
	if err != nil {
		return err
	}
	if !cancelled {
		slog.Info("cancel attempted on terminal item", "item_id", itemID)
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (s *queueService) History(ctx context.Context, userID int64, limit int) ([]*models.PostingHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ph.ListByUserID(ctx, userID, limit)
}
