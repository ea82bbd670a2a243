package study

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWednesday(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"monday", time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC), time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)},
		{"wednesday morning", time.Date(2025, 3, 5, 8, 30, 0, 0, time.UTC), time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)},
		{"wednesday at noon", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		{"thursday", time.Date(2025, 3, 6, 1, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		{"saturday across month", time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)},
		{"tuesday", time.Date(2025, 12, 30, 10, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWednesday(tt.from)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.Wednesday, got.Weekday())
		})
	}
}

func TestNextWednesday_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	got := NextWednesday(time.Date(2025, 3, 3, 10, 0, 0, 0, loc))
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 9, got.Hour())
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	got, err := ParseSchedule("2025-03-12T18:30:00-05:00", base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC), got)

	got, err = ParseSchedule("2025-04-02", base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC), got)

	got, err = ParseSchedule("tomorrow", base)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Day())
	assert.Equal(t, time.March, got.Month())

	_, err = ParseSchedule("   ", base)
	assert.Error(t, err)

	_, err = ParseSchedule("zzzz qqqq", base)
	assert.Error(t, err)
}
