package models

import "time"

type QueueItem struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	ContentType     string     `db:"content_type" json:"content_type"`
	Source          string     `db:"source" json:"source"`
	Title           string     `db:"title" json:"title"`
	Body            string     `db:"body" json:"body"`
	Hashtags        string     `db:"hashtags" json:"hashtags"`
	Status          string     `db:"status" json:"status"`
	ScheduledFor    *time.Time `db:"scheduled_for" json:"scheduled_for"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at"`
	ExternalPostID  *string    `db:"external_post_id" json:"external_post_id"`
	RetryCount      int        `db:"retry_count" json:"retry_count"`
	NextAttemptAt   *time.Time `db:"next_attempt_at" json:"next_attempt_at"`
	LastError       *string    `db:"last_error" json:"last_error"`
	ApprovedBy      *int64     `db:"approved_by" json:"approved_by"`
	RejectedBy      *int64     `db:"rejected_by" json:"rejected_by"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	ItemStatusPending   = "pending"
	ItemStatusApproved  = "approved"
	ItemStatusRejected  = "rejected"
	ItemStatusScheduled = "scheduled"
	ItemStatusPublished = "published"
	ItemStatusFailed    = "failed"
	ItemStatusCancelled = "cancelled"
)

// transitions maps a status to the statuses an item may move to.
// Terminal statuses (rejected, published, failed, cancelled) have no entry.
var transitions = map[string][]string{
	ItemStatusPending:   {ItemStatusApproved, ItemStatusRejected, ItemStatusCancelled},
	ItemStatusApproved:  {ItemStatusScheduled, ItemStatusPublished, ItemStatusFailed, ItemStatusCancelled},
	ItemStatusScheduled: {ItemStatusPublished, ItemStatusFailed, ItemStatusCancelled},
}

func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive reports whether an item is still eligible for delivery.
func IsActive(status string) bool {
	return status == ItemStatusApproved || status == ItemStatusScheduled
}

type QueueStats struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Scheduled int `json:"scheduled"`
	Published int `json:"published"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	ObjectKey string    `db:"object_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type QueueItemMedia struct {
	ItemID       int64     `db:"item_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}
