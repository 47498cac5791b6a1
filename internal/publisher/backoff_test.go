package publisher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := 2 * time.Minute
	max := 30 * time.Minute

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 2 * time.Minute},
		{1, 4 * time.Minute},
		{2, 8 * time.Minute},
		{3, 16 * time.Minute},
		{4, 30 * time.Minute},
		{10, 30 * time.Minute},
		{-1, 2 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(base, max, tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}
