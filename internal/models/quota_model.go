package models

import "time"

const (
	WindowKindDaily  = "daily"
	WindowKindHourly = "hourly"
)

type QuotaWindow struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	WindowKind  string    `db:"window_kind" json:"window_kind"`
	Count       int       `db:"count" json:"count"`
	Limit       int       `db:"limit_value" json:"limit"`
	WindowStart time.Time `db:"window_start" json:"window_start"`
	ResetAt     time.Time `db:"reset_at" json:"reset_at"`
}

func (w *QuotaWindow) Remaining() int {
	if w.Count >= w.Limit {
		return 0
	}
	return w.Limit - w.Count
}
