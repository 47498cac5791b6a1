package transfer

import "time"

type EnqueueRequest struct {
	ContentType string  `json:"content_type"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Hashtags    string  `json:"hashtags"`
	MediaIDs    []int64 `json:"media_ids"`
}

type ApproveRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	Hashtags *string `json:"hashtags"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type BulkApproveRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

type RescheduleRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for"`
	Title        *string    `json:"title"`
	Body         *string    `json:"body"`
	Hashtags     *string    `json:"hashtags"`
}

type QueueFilter struct {
	Status string
	Page   int
	Limit  int
}

type LimitsResponse struct {
	Daily       int       `json:"daily"`
	Hourly      int       `json:"hourly"`
	DailyUsed   int       `json:"daily_used"`
	HourlyUsed  int       `json:"hourly_used"`
	DailyReset  time.Time `json:"daily_reset"`
	HourlyReset time.Time `json:"hourly_reset"`
	CanPost     bool      `json:"can_post"`
}
