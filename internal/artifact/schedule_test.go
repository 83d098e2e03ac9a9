package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestScheduleNextAfter(t *testing.T) {
	t.Parallel()

	s := DefaultSchedule()
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monthly", utc(2025, time.June, 10, 3), utc(2025, time.July, 1, 16)},
		{"fall pre registration", utc(2025, time.July, 19, 16), utc(2025, time.July, 21, 16)},
		{"same day later hour still moves on", utc(2025, time.July, 19, 23), utc(2025, time.July, 21, 16)},
		{"september dense", utc(2025, time.September, 17, 16), utc(2025, time.September, 20, 16)},
		{"end of september", utc(2025, time.September, 30, 16), utc(2025, time.October, 1, 16)},
		{"october", utc(2025, time.October, 1, 16), utc(2025, time.October, 3, 16)},
		{"spring registration", utc(2025, time.March, 27, 16), utc(2025, time.April, 1, 16)},
		{"may", utc(2025, time.May, 16, 16), utc(2025, time.June, 1, 16)},
		{"year wrap", utc(2025, time.December, 1, 16), utc(2026, time.January, 1, 16)},
		{"non utc input", time.Date(2025, time.February, 14, 0, 30, 0, 0, time.FixedZone("JST", 9*3600)), utc(2025, time.February, 14, 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.NextAfter(tt.now))
		})
	}
}

func TestScheduleScheduled(t *testing.T) {
	t.Parallel()

	s := DefaultSchedule()
	assert.True(t, s.Scheduled(utc(2025, time.January, 1, 0)))
	assert.True(t, s.Scheduled(utc(2025, time.August, 23, 0)))
	assert.True(t, s.Scheduled(utc(2025, time.April, 28, 0)))
	assert.False(t, s.Scheduled(utc(2025, time.June, 19, 0)))
	assert.False(t, s.Scheduled(utc(2025, time.December, 25, 0)))
}

func TestEmptyScheduleNeverExpires(t *testing.T) {
	t.Parallel()

	assert.True(t, Schedule{}.NextAfter(utc(2025, time.June, 10, 0)).IsZero())
}
