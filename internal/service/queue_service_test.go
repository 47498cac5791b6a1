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
	"github.com/voicedeck/postqueue/internal/transfer"
)

func newQueueServiceForTest(now time.Time) (*queueService, *fakeQueueRepo, *fakeSettingsRepo) {
	qr := newFakeQueueRepo()
	sr := newFakeSettingsRepo()
	sch := &schedulerService{
		qr:  qr,
		sr:  sr,
		now: func() time.Time { return now },
	}
	s := &queueService{
		qr:  qr,
		sr:  sr,
		sch: sch,
	}
	return s, qr, sr
}

func TestEnqueueRequiresBody(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, _, _ := newQueueServiceForTest(now)

	_, err := s.Enqueue(context.Background(), 1, &transfer.EnqueueRequest{Body: "   "})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = s.Enqueue(context.Background(), 1, nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAutoApproveSchedulesItem(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(1))

	s.autoApprove(context.Background(), item.ID, 1)

	stored, _ := qr.GetByID(context.Background(), item.ID)
	assert.Equal(t, models.ItemStatusScheduled, stored.Status)
	require.NotNil(t, stored.ScheduledFor)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, int64(1), *stored.ApprovedBy)
}

func TestAutoApproveWithoutOpenSlotLeavesItemPending(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, sr := newQueueServiceForTest(now)

	sr.settings[1] = &models.PostingSettings{
		UserID:         1,
		Tier:           models.TierAggressive,
		PostsPerDay:    1,
		PostsPerWeek:   1,
		PreferredTimes: "09:00",
		Timezone:       "UTC",
	}
	for w := 0; w < 10; w++ {
		qr.add(activeItemAt(1, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*w)))
	}

	item := qr.add(pendingItem(1))

	s.autoApprove(context.Background(), item.ID, 1)

	stored, _ := qr.GetByID(context.Background(), item.ID)
	assert.Equal(t, models.ItemStatusPending, stored.Status)
	assert.Nil(t, stored.ScheduledFor)
}

func TestRescheduleMovesActiveItem(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(activeItemAt(1, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)))

	target := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	out, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{ScheduledFor: &target})
	require.NoError(t, err)
	require.NotNil(t, out.ScheduledFor)
	assert.True(t, out.ScheduledFor.Equal(target))
}

func TestRescheduleConflictingSlot(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	taken := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	qr.add(activeItemAt(1, taken))
	item := qr.add(activeItemAt(1, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)))

	_, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{ScheduledFor: &taken})
	var conflict *apperrors.SlotConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestReschedulePastSlotRejected(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(activeItemAt(1, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)))

	past := now.Add(-time.Hour)
	_, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{ScheduledFor: &past})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestRescheduleSlotOnPendingItemFails(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(1))

	target := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	_, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{ScheduledFor: &target})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestRescheduleEditsPayload(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(1))

	body := "rewritten"
	out, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", out.Body)
	assert.Equal(t, models.ItemStatusPending, out.Status)
}

func TestRescheduleEditOnPublishedItemFails(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(&models.QueueItem{UserID: 1, Status: models.ItemStatusPublished, Body: "x"})

	body := "rewritten"
	_, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{Body: &body})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestRescheduleForeignItem(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(2))

	body := "rewritten"
	_, err := s.Reschedule(context.Background(), item.ID, 1, &transfer.RescheduleRequest{Body: &body})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCancelPendingItem(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(1))

	require.NoError(t, s.Cancel(context.Background(), item.ID, 1))

	stored, _ := qr.GetByID(context.Background(), item.ID)
	assert.Equal(t, models.ItemStatusCancelled, stored.Status)
}

func TestCancelPublishedItemFails(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(&models.QueueItem{UserID: 1, Status: models.ItemStatusPublished, Body: "x"})

	err := s.Cancel(context.Background(), item.ID, 1)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestCancelForeignItem(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s, qr, _ := newQueueServiceForTest(now)

	item := qr.add(pendingItem(2))

	err := s.Cancel(context.Background(), item.ID, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
