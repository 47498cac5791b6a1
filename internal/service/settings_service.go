package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.PostingSettings, error)
	UpdateSettings(ctx context.Context, userID int64, s *models.PostingSettings) error
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.PostingSettings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !isExist {
		slog.Info("settings for given user don't exist")
		return nil, apperrors.ErrNotFound
	}

	return settings, nil
}

func validateSettings(s *models.PostingSettings) error {
	switch s.Tier {
	case models.TierStarter, models.TierPro, models.TierAggressive:
	default:
		return apperrors.ErrValidation
	}

	if s.PostsPerDay < 1 || s.PostsPerWeek < 1 {
		return apperrors.ErrValidation
	}

	for _, t := range s.PreferredTimeList() {
		if _, err := time.Parse("15:04", t); err != nil {
			return apperrors.ErrValidation
		}
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return apperrors.ErrValidation
	}
	return nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, settings *models.PostingSettings) error {
	if err := validateSettings(settings); err != nil {
		slog.Info("invalid posting settings")
		return err
	}

	_, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if !isExist {
		settings.UserID = userID
		_, err = s.sr.Create(ctx, settings)
		return err
	}

	return s.sr.UpdateSettings(ctx, settings, userID)
}
