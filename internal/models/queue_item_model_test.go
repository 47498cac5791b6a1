package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to approved", ItemStatusPending, ItemStatusApproved, true},
		{"pending to rejected", ItemStatusPending, ItemStatusRejected, true},
		{"pending to cancelled", ItemStatusPending, ItemStatusCancelled, true},
		{"pending to published", ItemStatusPending, ItemStatusPublished, false},
		{"approved to scheduled", ItemStatusApproved, ItemStatusScheduled, true},
		{"approved to published", ItemStatusApproved, ItemStatusPublished, true},
		{"scheduled to published", ItemStatusScheduled, ItemStatusPublished, true},
		{"scheduled to failed", ItemStatusScheduled, ItemStatusFailed, true},
		{"scheduled to cancelled", ItemStatusScheduled, ItemStatusCancelled, true},
		{"scheduled to pending", ItemStatusScheduled, ItemStatusPending, false},
		{"published is terminal", ItemStatusPublished, ItemStatusCancelled, false},
		{"cancelled is terminal", ItemStatusCancelled, ItemStatusScheduled, false},
		{"failed is terminal", ItemStatusFailed, ItemStatusScheduled, false},
		{"rejected is terminal", ItemStatusRejected, ItemStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(ItemStatusApproved))
	assert.True(t, IsActive(ItemStatusScheduled))
	assert.False(t, IsActive(ItemStatusPending))
	assert.False(t, IsActive(ItemStatusPublished))
	assert.False(t, IsActive(ItemStatusCancelled))
}
