package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
)

func newQuotaServiceForTest(now time.Time) (*quotaService, *fakeQuotaRepo, *fakeSettingsRepo) {
	qr := newFakeQuotaRepo()
	sr := newFakeSettingsRepo()
	s := &quotaService{
		qr:  qr,
		sr:  sr,
		now: func() time.Time { return now },
	}
	return s, qr, sr
}

func TestQuotaReserveStarterDefaults(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, _, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	// No settings row means the starter limits apply: 2/day, 1/hour.
	require.NoError(t, s.Reserve(ctx, 1))

	err := s.Reserve(ctx, 1)
	var quotaErr *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC), quotaErr.ResetAt)
}

func TestQuotaReserveRollsBackDailyOnHourlyExhaustion(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, qr, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, 1))
	err := s.Reserve(ctx, 1)
	require.Error(t, err)

	daily, found, err := qr.Get(ctx, 1, models.WindowKindDaily)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, daily.Count)
}

func TestQuotaReserveRollsBackDailyOnHourlyError(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, qr, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	qr.incrementErr = map[string]error{models.WindowKindHourly: errors.New("connection reset")}

	err := s.Reserve(ctx, 1)
	require.Error(t, err)

	daily, found, getErr := qr.Get(ctx, 1, models.WindowKindDaily)
	require.NoError(t, getErr)
	require.True(t, found)
	assert.Equal(t, 0, daily.Count)
}

func TestQuotaReserveDailyLimit(t *testing.T) {
	base := time.Date(2026, 3, 4, 0, 30, 0, 0, time.UTC)
	s, _, _ := newQuotaServiceForTest(base)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, 1))

	// Next hour: hourly window resets, daily still holds one unit.
	s.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, s.Reserve(ctx, 1))

	// Daily window is now full until midnight.
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	err := s.Reserve(ctx, 1)
	var quotaErr *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), quotaErr.ResetAt)
}

func TestQuotaWindowLazyReset(t *testing.T) {
	base := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, _, _ := newQuotaServiceForTest(base)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, 1))
	require.Error(t, s.Reserve(ctx, 1))

	// Crossing the hour boundary opens the hourly window again.
	s.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, s.Reserve(ctx, 1))
}

func TestQuotaReleaseGivesUnitBack(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, _, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, 1))
	require.Error(t, s.Reserve(ctx, 1))

	require.NoError(t, s.Release(ctx, 1))
	require.NoError(t, s.Reserve(ctx, 1))
}

func TestQuotaTierLimits(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, _, sr := newQuotaServiceForTest(now)
	ctx := context.Background()

	sr.settings[1] = &models.PostingSettings{UserID: 1, Tier: models.TierPro}

	// Pro allows two posts per hour.
	require.NoError(t, s.Reserve(ctx, 1))
	require.NoError(t, s.Reserve(ctx, 1))
	require.Error(t, s.Reserve(ctx, 1))
}

func TestQuotaLazyResetKeepsConcurrentReservation(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, qr, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	hourStart := now.Truncate(time.Hour)

	// Stale hourly row from the previous hour.
	qr.windows[quotaKey(1, models.WindowKindHourly)] = &models.QuotaWindow{
		UserID:      1,
		WindowKind:  models.WindowKindHourly,
		Count:       1,
		Limit:       1,
		WindowStart: hourStart.Add(-time.Hour),
		ResetAt:     hourStart,
	}

	// A reservation opens the new hourly window between the stale read
	// and the reset; the reset must not zero it.
	qr.afterGet = func(kind string) {
		if kind != models.WindowKindHourly {
			return
		}
		qr.afterGet = nil
		qr.windows[quotaKey(1, models.WindowKindHourly)] = &models.QuotaWindow{
			UserID:      1,
			WindowKind:  models.WindowKindHourly,
			Count:       1,
			Limit:       1,
			WindowStart: hourStart,
			ResetAt:     hourStart.Add(time.Hour),
		}
	}

	limits, err := s.Limits(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, limits.HourlyUsed)
	assert.False(t, limits.CanPost)
}

func TestQuotaLimitsResponse(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	s, _, _ := newQuotaServiceForTest(now)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, 1))

	limits, err := s.Limits(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, limits.Daily)
	assert.Equal(t, 1, limits.Hourly)
	assert.Equal(t, 1, limits.DailyUsed)
	assert.Equal(t, 1, limits.HourlyUsed)
	assert.False(t, limits.CanPost)
}
