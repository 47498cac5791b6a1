package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/transfer"
)

// Publish limits per tier. Windows are fixed calendar windows in UTC.
var tierLimits = map[string]struct{ Daily, Hourly int }{
	models.TierStarter:    {Daily: 2, Hourly: 1},
	models.TierPro:        {Daily: 5, Hourly: 2},
	models.TierAggressive: {Daily: 12, Hourly: 3},
}

type QuotaService interface {
	Reserve(ctx context.Context, userID int64) error
	Release(ctx context.Context, userID int64) error
	Limits(ctx context.Context, userID int64) (*transfer.LimitsResponse, error)
}

type quotaService struct {
	qr  repository.QuotaRepository
	sr  repository.SettingsRepository
	now func() time.Time
}

func NewQuotaService(qr repository.QuotaRepository, sr repository.SettingsRepository) QuotaService {
	return &quotaService{
		qr:  qr,
		sr:  sr,
		now: time.Now,
	}
}

func dailyWindowBounds(now time.Time) (time.Time, time.Time) {
	start := now.UTC().Truncate(24 * time.Hour)
	return start, start.Add(24 * time.Hour)
}

func hourlyWindowBounds(now time.Time) (time.Time, time.Time) {
	start := now.UTC().Truncate(time.Hour)
	return start, start.Add(time.Hour)
}

func (s *quotaService) limitsForUser(ctx context.Context, userID int64) (int, int, error) {
	settings, found, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	tier := models.TierStarter
	if found {
		tier = settings.Tier
	}

	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[models.TierStarter]
	}
	return limits.Daily, limits.Hourly, nil
}

// ensureWindow lazily resets a window whose reset time has passed and
// returns the current row.
func (s *quotaService) ensureWindow(ctx context.Context, userID int64, kind string, limit int) (*models.QuotaWindow, error) {
	now := s.now()

	w, found, err := s.qr.Get(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if found && now.Before(w.ResetAt) {
		return w, nil
	}

	var start, reset time.Time
	if kind == models.WindowKindDaily {
		start, reset = dailyWindowBounds(now)
	} else {
		start, reset = hourlyWindowBounds(now)
	}

	w = &models.QuotaWindow{
		UserID:      userID,
		WindowKind:  kind,
		Count:       0,
		Limit:       limit,
		WindowStart: start,
		ResetAt:     reset,
	}
	if err := s.qr.Reset(ctx, w); err != nil {
		return nil, err
	}

	// Reset is a no-op when a concurrent caller already opened the new
	// window, so re-read to pick up any reservation made in between.
	w, found, err = s.qr.Get(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.ErrNotFound
	}
	return w, nil
}

// Reserve takes one unit from both the daily and the hourly window, or
// returns QuotaExceededError with the earliest applicable reset time.
// Reservation happens before the external call; a failed call must
// call Release to give the unit back.
func (s *quotaService) Reserve(ctx context.Context, userID int64) error {
	dailyLimit, hourlyLimit, err := s.limitsForUser(ctx, userID)
	if err != nil {
		return err
	}

	daily, err := s.ensureWindow(ctx, userID, models.WindowKindDaily, dailyLimit)
	if err != nil {
		return err
	}
	hourly, err := s.ensureWindow(ctx, userID, models.WindowKindHourly, hourlyLimit)
	if err != nil {
		return err
	}

	ok, err := s.qr.Increment(ctx, userID, models.WindowKindDaily)
	if err != nil {
		return err
	}
	if !ok {
		return &apperrors.QuotaExceededError{ResetAt: daily.ResetAt}
	}

	ok, err = s.qr.Increment(ctx, userID, models.WindowKindHourly)
	if err != nil {
		// The daily unit is already taken and would leak until midnight.
		if rbErr := s.qr.Decrement(ctx, userID, models.WindowKindDaily); rbErr != nil {
			slog.Info("error rolling back daily reservation", "user_id", userID, "error", rbErr.Error())
		}
		return err
	}
	if !ok {
		if err := s.qr.Decrement(ctx, userID, models.WindowKindDaily); err != nil {
			return err
		}
		return &apperrors.QuotaExceededError{ResetAt: hourly.ResetAt}
	}

	return nil
}

func (s *quotaService) Release(ctx context.Context, userID int64) error {
	if err := s.qr.Decrement(ctx, userID, models.WindowKindDaily); err != nil {
		return err
	}
	return s.qr.Decrement(ctx, userID, models.WindowKindHourly)
}

func (s *quotaService) Limits(ctx context.Context, userID int64) (*transfer.LimitsResponse, error) {
	dailyLimit, hourlyLimit, err := s.limitsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	daily, err := s.ensureWindow(ctx, userID, models.WindowKindDaily, dailyLimit)
	if err != nil {
		return nil, err
	}
	hourly, err := s.ensureWindow(ctx, userID, models.WindowKindHourly, hourlyLimit)
	if err != nil {
		return nil, err
	}

	return &transfer.LimitsResponse{
		Daily:       daily.Limit,
		Hourly:      hourly.Limit,
		DailyUsed:   daily.Count,
		HourlyUsed:  hourly.Count,
		DailyReset:  daily.ResetAt,
		HourlyReset: hourly.ResetAt,
		CanPost:     daily.Remaining() > 0 && hourly.Remaining() > 0,
	}, nil
}
