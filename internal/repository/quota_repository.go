package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/voicedeck/postqueue/internal/models"
)

type QuotaRepository interface {
	Get(ctx context.Context, userID int64, kind string) (*models.QuotaWindow, bool, error)
	Reset(ctx context.Context, w *models.QuotaWindow) error
	Increment(ctx context.Context, userID int64, kind string) (bool, error)
	Decrement(ctx context.Context, userID int64, kind string) error
}

type quotaRepository struct {
	db *sql.DB
}

func NewQuotaRepository(db *sql.DB) QuotaRepository {
	return &quotaRepository{db: db}
}

func (r *quotaRepository) Get(ctx context.Context, userID int64, kind string) (*models.QuotaWindow, bool, error) {
	query := `SELECT user_id, window_kind, count, limit_value, window_start, reset_at
		FROM quota_windows WHERE user_id = $1 AND window_kind = $2`
	row := r.db.QueryRowContext(ctx, query, userID, kind)

	var w models.QuotaWindow
	err := row.Scan(&w.UserID, &w.WindowKind, &w.Count, &w.Limit, &w.WindowStart, &w.ResetAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &w, true, nil
}

// Reset opens a new zeroed window, but only when the stored row is
// stale. A row whose reset_at is still ahead of the new window start is
// left alone, so a lazy reset racing a reservation can never erase it.
func (r *quotaRepository) Reset(ctx context.Context, w *models.QuotaWindow) error {
	query := `
		INSERT INTO quota_windows (user_id, window_kind, count, limit_value, window_start, reset_at)
		VALUES ($1, $2, 0, $3, $4, $5)
		ON CONFLICT (user_id, window_kind)
		DO UPDATE SET count = 0, limit_value = EXCLUDED.limit_value,
			window_start = EXCLUDED.window_start, reset_at = EXCLUDED.reset_at
		WHERE quota_windows.reset_at <= EXCLUDED.window_start
	`
	_, err := r.db.ExecContext(ctx, query, w.UserID, w.WindowKind, w.Limit, w.WindowStart, w.ResetAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Increment bumps the counter only while it is below the limit, so
// count <= limit holds even under concurrent reservations. It reports
// whether the reservation was granted.
func (r *quotaRepository) Increment(ctx context.Context, userID int64, kind string) (bool, error) {
	query := `
		UPDATE quota_windows
		SET count = count + 1
		WHERE user_id = $1 AND window_kind = $2 AND count < limit_value
	`
	result, err := r.db.ExecContext(ctx, query, userID, kind)
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

func (r *quotaRepository) Decrement(ctx context.Context, userID int64, kind string) error {
	query := `
		UPDATE quota_windows
		SET count = GREATEST(count - 1, 0)
		WHERE user_id = $1 AND window_kind = $2
	`
	_, err := r.db.ExecContext(ctx, query, userID, kind)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
