package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
)

// How far ahead the scheduler searches before giving up, and the
// minimum lead time before a slot may be used.
const (
	slotSearchDays = 60
	slotLeadTime   = 5 * time.Minute
)

var defaultPreferredTimes = []string{"09:00", "13:00", "17:00"}

type SchedulerService interface {
	FindSlot(ctx context.Context, userID, excludeItemID int64) (time.Time, error)
	ValidateSlot(ctx context.Context, userID int64, at time.Time, excludeItemID int64) error
}

type schedulerService struct {
	qr  repository.QueueRepository
	sr  repository.SettingsRepository
	now func() time.Time
}

func NewSchedulerService(qr repository.QueueRepository, sr repository.SettingsRepository) SchedulerService {
	return &schedulerService{
		qr:  qr,
		sr:  sr,
		now: time.Now,
	}
}

func (s *schedulerService) settingsForUser(ctx context.Context, userID int64) (*models.PostingSettings, error) {
	settings, found, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		settings = &models.PostingSettings{
			UserID:          userID,
			Tier:            models.TierStarter,
			PostsPerDay:     1,
			PostsPerWeek:    5,
			ExcludeWeekends: true,
			Timezone:        "UTC",
		}
	}
	return settings, nil
}

func userLocation(settings *models.PostingSettings) *time.Location {
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		slog.Info("unknown timezone, falling back to UTC", "timezone", settings.Timezone)
		return time.UTC
	}
	return loc
}

func isExcludedDay(day time.Time, settings *models.PostingSettings) bool {
	if !settings.ExcludeWeekends {
		return false
	}
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// weekStart returns the Monday 00:00 of the week containing t.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// FindSlot returns the earliest open preferred-time slot consistent
// with the user's posting preferences. It never writes; the caller
// stamps the slot together with the status change so an item can not
// end up approved without a slot. Walks forward one day at a time; a
// day is skipped when it is an excluded weekday or its daily budget is
// full.
func (s *schedulerService) FindSlot(ctx context.Context, userID, excludeItemID int64) (time.Time, error) {
	settings, err := s.settingsForUser(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	loc := userLocation(settings)
	now := s.now().In(loc)
	earliest := now.Add(slotLeadTime)

	preferred := settings.PreferredTimeList()
	if len(preferred) == 0 {
		preferred = defaultPreferredTimes
	}

	for d := 0; d < slotSearchDays; d++ {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, d)
		if isExcludedDay(day, settings) {
			continue
		}

		dayCount, err := s.qr.CountActiveBetween(ctx, userID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return time.Time{}, err
		}
		if settings.PostsPerDay > 0 && dayCount >= settings.PostsPerDay {
			continue
		}

		ws := weekStart(day)
		weekCount, err := s.qr.CountActiveBetween(ctx, userID, ws, ws.AddDate(0, 0, 7))
		if err != nil {
			return time.Time{}, err
		}
		if settings.PostsPerWeek > 0 && weekCount >= settings.PostsPerWeek {
			continue
		}

		for _, pt := range preferred {
			parsed, err := time.ParseInLocation("15:04", pt, loc)
			if err != nil {
				slog.Info("skipping malformed preferred time", "value", pt)
				continue
			}

			candidate := time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
			if candidate.Before(earliest) {
				continue
			}

			taken, err := s.qr.ExistsAtMinute(ctx, userID, candidate, excludeItemID)
			if err != nil {
				return time.Time{}, err
			}
			if taken {
				continue
			}
			return candidate, nil
		}
	}

	err = errors.New("no open slot within the scheduling horizon")
	slog.Info(err.Error())
	return time.Time{}, err
}

// ValidateSlot checks a caller-chosen timestamp against the same
// constraints FindSlot uses, failing with SlotConflictError when
// another item already owns the minute. Callers pick an adjacent slot
// themselves on conflict.
func (s *schedulerService) ValidateSlot(ctx context.Context, userID int64, at time.Time, excludeItemID int64) error {
	if at.Before(s.now()) {
		slog.Info("requested slot is in the past")
		return apperrors.ErrValidation
	}

	taken, err := s.qr.ExistsAtMinute(ctx, userID, at, excludeItemID)
	if err != nil {
		return err
	}
	if taken {
		return &apperrors.SlotConflictError{At: at}
	}
	return nil
}
