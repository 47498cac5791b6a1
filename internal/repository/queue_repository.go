package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/models"
)

const queueItemColumns = `id, user_id, content_type, source, title, body, hashtags, status,
	scheduled_for, published_at, external_post_id, retry_count, next_attempt_at, last_error,
	approved_by, rejected_by, rejection_reason, created_at, updated_at`

type QueueRepository interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.QueueItem, error)
	List(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.QueueItem, int, error)
	Stats(ctx context.Context, userID int64) (*models.QueueStats, error)
	UpdatePayload(ctx context.Context, id int64, title, body, hashtags string) error
	SetApprovedScheduled(ctx context.Context, id, actorID int64, scheduledFor time.Time) error
	SetRejected(ctx context.Context, id, actorID int64, reason string) error
	SetScheduled(ctx context.Context, id int64, scheduledFor time.Time) error
	MarkPublished(ctx context.Context, id int64, externalPostID string, publishedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, lastError string) (bool, error)
	MarkCancelled(ctx context.Context, id int64) (bool, error)
	UpdateRetry(ctx context.Context, id int64, retryCount int, nextAttemptAt time.Time, lastError string) error
	ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.QueueItem, error)
	ListUsersWithDue(ctx context.Context, now time.Time) ([]int64, error)
	ExistsAtMinute(ctx context.Context, userID int64, at time.Time, excludeID int64) (bool, error)
	CountActiveBetween(ctx context.Context, userID int64, from, to time.Time) (int, error)
	CheckByUserID(ctx context.Context, itemID, userID int64) (bool, error)
}

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

func scanQueueItem(row interface{ Scan(...any) error }) (*models.QueueItem, error) {
	var item models.QueueItem
	err := row.Scan(&item.ID, &item.UserID, &item.ContentType, &item.Source, &item.Title,
		&item.Body, &item.Hashtags, &item.Status, &item.ScheduledFor, &item.PublishedAt,
		&item.ExternalPostID, &item.RetryCount, &item.NextAttemptAt, &item.LastError,
		&item.ApprovedBy, &item.RejectedBy, &item.RejectionReason, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *queueRepository) Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error) {
	query := `
		INSERT INTO queue_items (user_id, content_type, source, title, body, hashtags, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, item.UserID, item.ContentType, item.Source,
			item.Title, item.Body, item.Hashtags, item.Status, item.ScheduledFor).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, item.UserID, item.ContentType, item.Source,
			item.Title, item.Body, item.Hashtags, item.Status, item.ScheduledFor).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE id = $1`
	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

func (r *queueRepository) List(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.QueueItem, int, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM queue_items WHERE user_id = $1`
	args := []any{userID}

	if status != "" {
		query += ` AND status = $2`
		countQuery += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`
	if status != "" {
		query += ` LIMIT $3 OFFSET $4`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (r *queueRepository) Stats(ctx context.Context, userID int64) (*models.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM queue_items WHERE user_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var stats models.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		switch status {
		case models.ItemStatusPending:
			stats.Pending = count
		case models.ItemStatusApproved:
			stats.Approved = count
		case models.ItemStatusScheduled:
			stats.Scheduled = count
		case models.ItemStatusPublished:
			stats.Published = count
		case models.ItemStatusRejected:
			stats.Rejected = count
		case models.ItemStatusFailed:
			stats.Failed = count
		case models.ItemStatusCancelled:
			stats.Cancelled = count
		}
	}
	return &stats, nil
}

func (r *queueRepository) UpdatePayload(ctx context.Context, id int64, title, body, hashtags string) error {
	query := `
		UPDATE queue_items
		SET title = $1,
			body = $2,
			hashtags = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, title, body, hashtags, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetApprovedScheduled stamps the approval and the slot in one
// statement, so an item is never left approved without a scheduled_for.
func (r *queueRepository) SetApprovedScheduled(ctx context.Context, id, actorID int64, scheduledFor time.Time) error {
	query := `
		UPDATE queue_items
		SET status = $1,
			approved_by = $2,
			scheduled_for = $3,
			next_attempt_at = NULL,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.ItemStatusScheduled, actorID, scheduledFor, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) SetRejected(ctx context.Context, id, actorID int64, reason string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
			rejected_by = $2,
			rejection_reason = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.ItemStatusRejected, actorID, reason, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) SetScheduled(ctx context.Context, id int64, scheduledFor time.Time) error {
	query := `
		UPDATE queue_items
		SET status = $1,
			scheduled_for = $2,
			next_attempt_at = NULL,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.ItemStatusScheduled, scheduledFor, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPublished is conditional on the item still being active so a
// concurrent cancellation is never overwritten. It reports whether the
// row was updated.
func (r *queueRepository) MarkPublished(ctx context.Context, id int64, externalPostID string, publishedAt time.Time) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
			published_at = $2,
			external_post_id = $3,
			last_error = NULL,
			updated_at = $4
		WHERE id = $5 AND status IN ($6, $7)
	`
	result, err := r.db.ExecContext(ctx, query, models.ItemStatusPublished, publishedAt,
		externalPostID, time.Now(), id, models.ItemStatusApproved, models.ItemStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *queueRepository) MarkFailed(ctx context.Context, id int64, lastError string) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
			last_error = $2,
			updated_at = $3
		WHERE id = $4 AND status IN ($5, $6)
	`
	result, err := r.db.ExecContext(ctx, query, models.ItemStatusFailed, lastError,
		time.Now(), id, models.ItemStatusApproved, models.ItemStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *queueRepository) MarkCancelled(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status IN ($4, $5, $6)
	`
	result, err := r.db.ExecContext(ctx, query, models.ItemStatusCancelled, time.Now(), id,
		models.ItemStatusPending, models.ItemStatusApproved, models.ItemStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *queueRepository) UpdateRetry(ctx context.Context, id int64, retryCount int, nextAttemptAt time.Time, lastError string) error {
	query := `
		UPDATE queue_items
		SET retry_count = $1,
			next_attempt_at = $2,
			last_error = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, retryCount, nextAttemptAt, lastError, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + `
		FROM queue_items
		WHERE user_id = $1
		  AND status IN ($2, $3)
		  AND scheduled_for <= $4
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $4)
		ORDER BY scheduled_for ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, models.ItemStatusApproved, models.ItemStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *queueRepository) ListUsersWithDue(ctx context.Context, now time.Time) ([]int64, error) {
	query := `SELECT DISTINCT user_id
		FROM queue_items
		WHERE status IN ($1, $2)
		  AND scheduled_for <= $3
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $3)`
	rows, err := r.db.QueryContext(ctx, query, models.ItemStatusApproved, models.ItemStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

func (r *queueRepository) ExistsAtMinute(ctx context.Context, userID int64, at time.Time, excludeID int64) (bool, error) {
	query := `SELECT 1 FROM queue_items
		WHERE user_id = $1
		  AND status IN ($2, $3)
		  AND date_trunc('minute', scheduled_for) = date_trunc('minute', $4::timestamptz)
		  AND id <> $5`

	var result int
	err := r.db.QueryRowContext(ctx, query, userID, models.ItemStatusApproved, models.ItemStatusScheduled, at, excludeID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *queueRepository) CountActiveBetween(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM queue_items
		WHERE user_id = $1
		  AND status IN ($2, $3)
		  AND scheduled_for >= $4
		  AND scheduled_for < $5`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, models.ItemStatusApproved, models.ItemStatusScheduled, from, to).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *queueRepository) CheckByUserID(ctx context.Context, itemID, userID int64) (bool, error) {
	query := "SELECT 1 FROM queue_items WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, itemID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}
