package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/voicedeck/postqueue/internal/models"
)

// fakeQueueRepo is an in-memory QueueRepository for service tests.
type fakeQueueRepo struct {
	items  map[int64]*models.QueueItem
	nextID int64
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{items: make(map[int64]*models.QueueItem)}
}

func (f *fakeQueueRepo) add(item *models.QueueItem) *models.QueueItem {
	if item.ID == 0 {
		f.nextID++
		item.ID = f.nextID
	} else if item.ID > f.nextID {
		f.nextID = item.ID
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeQueueRepo) Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error) {
	copied := *item
	f.add(&copied)
	return copied.ID, nil
}

func (f *fakeQueueRepo) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeQueueRepo) List(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.QueueItem, int, error) {
	var out []*models.QueueItem
	for _, item := range f.items {
		if item.UserID != userID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (f *fakeQueueRepo) Stats(ctx context.Context, userID int64) (*models.QueueStats, error) {
	stats := &models.QueueStats{}
	for _, item := range f.items {
		if item.UserID != userID {
			continue
		}
		switch item.Status {
		case models.ItemStatusPending:
			stats.Pending++
		case models.ItemStatusApproved:
			stats.Approved++
		case models.ItemStatusScheduled:
			stats.Scheduled++
		case models.ItemStatusPublished:
			stats.Published++
		case models.ItemStatusRejected:
			stats.Rejected++
		case models.ItemStatusFailed:
			stats.Failed++
		case models.ItemStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (f *fakeQueueRepo) UpdatePayload(ctx context.Context, id int64, title, body, hashtags string) error {
	if item, ok := f.items[id]; ok {
		item.Title, item.Body, item.Hashtags = title, body, hashtags
	}
	return nil
}

func (f *fakeQueueRepo) SetApprovedScheduled(ctx context.Context, id, actorID int64, scheduledFor time.Time) error {
	if item, ok := f.items[id]; ok {
		item.Status = models.ItemStatusScheduled
		item.ApprovedBy = &actorID
		t := scheduledFor
		item.ScheduledFor = &t
	}
	return nil
}

func (f *fakeQueueRepo) SetRejected(ctx context.Context, id, actorID int64, reason string) error {
	if item, ok := f.items[id]; ok {
		item.Status = models.ItemStatusRejected
		item.RejectedBy = &actorID
		item.RejectionReason = &reason
	}
	return nil
}

func (f *fakeQueueRepo) SetScheduled(ctx context.Context, id int64, scheduledFor time.Time) error {
	if item, ok := f.items[id]; ok {
		item.Status = models.ItemStatusScheduled
		t := scheduledFor
		item.ScheduledFor = &t
	}
	return nil
}

func (f *fakeQueueRepo) MarkPublished(ctx context.Context, id int64, externalPostID string, publishedAt time.Time) (bool, error) {
	item, ok := f.items[id]
	if !ok || !models.IsActive(item.Status) {
		return false, nil
	}
	item.Status = models.ItemStatusPublished
	item.ExternalPostID = &externalPostID
	t := publishedAt
	item.PublishedAt = &t
	return true, nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, id int64, lastError string) (bool, error) {
	item, ok := f.items[id]
	if !ok || !models.IsActive(item.Status) {
		return false, nil
	}
	item.Status = models.ItemStatusFailed
	item.LastError = &lastError
	return true, nil
}

func (f *fakeQueueRepo) MarkCancelled(ctx context.Context, id int64) (bool, error) {
	item, ok := f.items[id]
	if !ok {
		return false, nil
	}
	if item.Status != models.ItemStatusPending && !models.IsActive(item.Status) {
		return false, nil
	}
	item.Status = models.ItemStatusCancelled
	return true, nil
}

func (f *fakeQueueRepo) UpdateRetry(ctx context.Context, id int64, retryCount int, nextAttemptAt time.Time, lastError string) error {
	if item, ok := f.items[id]; ok {
		item.RetryCount = retryCount
		t := nextAttemptAt
		item.NextAttemptAt = &t
		item.LastError = &lastError
	}
	return nil
}

func (f *fakeQueueRepo) ListDue(ctx context.Context, userID int64, now time.Time) ([]*models.QueueItem, error) {
	var out []*models.QueueItem
	for _, item := range f.items {
		if item.UserID != userID || !models.IsActive(item.Status) {
			continue
		}
		if item.ScheduledFor == nil || item.ScheduledFor.After(now) {
			continue
		}
		if item.NextAttemptAt != nil && item.NextAttemptAt.After(now) {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ScheduledFor.Before(*out[i].ScheduledFor) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) ListUsersWithDue(ctx context.Context, now time.Time) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, item := range f.items {
		if !models.IsActive(item.Status) || item.ScheduledFor == nil || item.ScheduledFor.After(now) {
			continue
		}
		if !seen[item.UserID] {
			seen[item.UserID] = true
			out = append(out, item.UserID)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) ExistsAtMinute(ctx context.Context, userID int64, at time.Time, excludeID int64) (bool, error) {
	minute := at.Truncate(time.Minute)
	for _, item := range f.items {
		if item.UserID != userID || item.ID == excludeID || !models.IsActive(item.Status) {
			continue
		}
		if item.ScheduledFor != nil && item.ScheduledFor.Truncate(time.Minute).Equal(minute) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeQueueRepo) CountActiveBetween(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.UserID != userID || !models.IsActive(item.Status) || item.ScheduledFor == nil {
			continue
		}
		if !item.ScheduledFor.Before(from) && item.ScheduledFor.Before(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeQueueRepo) CheckByUserID(ctx context.Context, itemID, userID int64) (bool, error) {
	item, ok := f.items[itemID]
	return ok && item.UserID == userID, nil
}

type fakeSettingsRepo struct {
	settings map[int64]*models.PostingSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[int64]*models.PostingSettings)}
}

func (f *fakeSettingsRepo) GetByUserID(ctx context.Context, userID int64) (*models.PostingSettings, bool, error) {
	s, ok := f.settings[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *s
	return &copied, true, nil
}

func (f *fakeSettingsRepo) Create(ctx context.Context, s *models.PostingSettings) (int64, error) {
	copied := *s
	f.settings[s.UserID] = &copied
	return s.UserID, nil
}

func (f *fakeSettingsRepo) UpdateSettings(ctx context.Context, s *models.PostingSettings, userID int64) error {
	copied := *s
	copied.UserID = userID
	f.settings[userID] = &copied
	return nil
}

type fakeQuotaRepo struct {
	windows      map[string]*models.QuotaWindow
	incrementErr map[string]error
	afterGet     func(kind string)
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{windows: make(map[string]*models.QuotaWindow)}
}

func quotaKey(userID int64, kind string) string {
	return fmt.Sprintf("%d/%s", userID, kind)
}

func (f *fakeQuotaRepo) Get(ctx context.Context, userID int64, kind string) (*models.QuotaWindow, bool, error) {
	w, ok := f.windows[quotaKey(userID, kind)]
	var copied models.QuotaWindow
	if ok {
		copied = *w
	}
	if f.afterGet != nil {
		f.afterGet(kind)
	}
	if !ok {
		return nil, false, nil
	}
	return &copied, true, nil
}

// Reset mirrors the conditional upsert: a row whose reset time is still
// ahead of the new window start is left untouched.
func (f *fakeQuotaRepo) Reset(ctx context.Context, w *models.QuotaWindow) error {
	key := quotaKey(w.UserID, w.WindowKind)
	if cur, ok := f.windows[key]; ok && cur.ResetAt.After(w.WindowStart) {
		return nil
	}
	copied := *w
	copied.Count = 0
	f.windows[key] = &copied
	return nil
}

func (f *fakeQuotaRepo) Increment(ctx context.Context, userID int64, kind string) (bool, error) {
	if err := f.incrementErr[kind]; err != nil {
		return false, err
	}
	w, ok := f.windows[quotaKey(userID, kind)]
	if !ok || w.Count >= w.Limit {
		return false, nil
	}
	w.Count++
	return true, nil
}

func (f *fakeQuotaRepo) Decrement(ctx context.Context, userID int64, kind string) error {
	if w, ok := f.windows[quotaKey(userID, kind)]; ok && w.Count > 0 {
		w.Count--
	}
	return nil
}
