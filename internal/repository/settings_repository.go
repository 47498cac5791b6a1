package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/models"
)

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.PostingSettings, bool, error)
	Create(ctx context.Context, s *models.PostingSettings) (int64, error)
	UpdateSettings(ctx context.Context, s *models.PostingSettings, userID int64) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.PostingSettings, bool, error) {
	query := `SELECT id, user_id, tier, posts_per_day, posts_per_week, exclude_weekends, preferred_times, timezone, created_at, updated_at
		FROM posting_settings WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var settings models.PostingSettings
	err := row.Scan(&settings.ID, &settings.UserID, &settings.Tier, &settings.PostsPerDay,
		&settings.PostsPerWeek, &settings.ExcludeWeekends, &settings.PreferredTimes,
		&settings.Timezone, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &settings, true, nil
}

func (r *settingsRepository) Create(ctx context.Context, settings *models.PostingSettings) (int64, error) {
	query := `
		INSERT INTO posting_settings (user_id, tier, posts_per_day, posts_per_week, exclude_weekends, preferred_times, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, settings.UserID, settings.Tier, settings.PostsPerDay,
		settings.PostsPerWeek, settings.ExcludeWeekends, settings.PreferredTimes, settings.Timezone).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *settingsRepository) UpdateSettings(ctx context.Context, s *models.PostingSettings, userID int64) error {
	query := `
		UPDATE posting_settings
		SET tier = $1,
			posts_per_day = $2,
			posts_per_week = $3,
			exclude_weekends = $4,
			preferred_times = $5,
			timezone = $6,
			updated_at = $7
		WHERE user_id = $8
	`
	_, err := r.db.ExecContext(ctx, query, s.Tier, s.PostsPerDay, s.PostsPerWeek,
		s.ExcludeWeekends, s.PreferredTimes, s.Timezone, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
