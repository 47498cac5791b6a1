package models

import (
	"strings"
	"time"
)

const (
	TierStarter    = "starter"
	TierPro        = "pro"
	TierAggressive = "aggressive"
)

type PostingSettings struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Tier            string    `db:"tier" json:"tier"`
	PostsPerDay     int       `db:"posts_per_day" json:"posts_per_day"`
	PostsPerWeek    int       `db:"posts_per_week" json:"posts_per_week"`
	ExcludeWeekends bool      `db:"exclude_weekends" json:"exclude_weekends"`
	PreferredTimes  string    `db:"preferred_times" json:"preferred_times"`
	Timezone        string    `db:"timezone" json:"timezone"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PreferredTimeList splits the stored "HH:MM,HH:MM" column.
func (s *PostingSettings) PreferredTimeList() []string {
	var out []string
	for _, t := range strings.Split(s.PreferredTimes, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// AutoApprove reports whether items skip human approval on ingestion.
func (s *PostingSettings) AutoApprove() bool {
	return s.Tier == TierAggressive
}

type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	ItemID         int64     `db:"item_id" json:"item_id"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
