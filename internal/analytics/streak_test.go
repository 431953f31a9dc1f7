package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelaba/job-parser/internal/domain"
)

var now = time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)

// at returns the RFC 3339 timestamp daysAgo days before now at hour:00 UTC.
func at(daysAgo, hour int) string {
	d := now.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  domain.StreakResult
	}{
		{
			name:  "empty",
			dates: nil,
			want:  domain.StreakResult{},
		},
		{
			name:  "three consecutive days ending today",
			dates: []string{at(0, 10), at(1, 10), at(2, 10)},
			want:  domain.StreakResult{TotalCount: 3, MaxStreak: 3, CurrentStreak: 3, LastAppliedDate: "2026-10-16"},
		},
		{
			name:  "gap breaks both runs",
			dates: []string{at(0, 10), at(3, 10)},
			want:  domain.StreakResult{TotalCount: 2, MaxStreak: 1, CurrentStreak: 1, LastAppliedDate: "2026-10-16"},
		},
		{
			name:  "no application today",
			dates: []string{at(1, 10), at(2, 10)},
			want:  domain.StreakResult{TotalCount: 2, MaxStreak: 2, CurrentStreak: 0, LastAppliedDate: "2026-10-15"},
		},
		{
			name:  "older run is the maximum",
			dates: []string{at(0, 9), at(5, 9), at(6, 9), at(7, 9)},
			want:  domain.StreakResult{TotalCount: 4, MaxStreak: 3, CurrentStreak: 1, LastAppliedDate: "2026-10-16"},
		},
		{
			name: "max uses raw timestamps, current uses calendar days",
			// 15h apart: not a full day for maxStreak, but yesterday for currentStreak.
			dates: []string{at(0, 9), at(1, 18)},
			want:  domain.StreakResult{TotalCount: 2, MaxStreak: 1, CurrentStreak: 2, LastAppliedDate: "2026-10-16"},
		},
		{
			name:  "same day twice stops the current walk",
			dates: []string{at(0, 18), at(0, 9), at(1, 9)},
			want:  domain.StreakResult{TotalCount: 3, MaxStreak: 2, CurrentStreak: 1, LastAppliedDate: "2026-10-16"},
		},
		{
			name:  "unparseable entries are skipped",
			dates: []string{"not a date", at(0, 10), ""},
			want:  domain.StreakResult{TotalCount: 1, MaxStreak: 1, CurrentStreak: 1, LastAppliedDate: "2026-10-16"},
		},
		{
			name:  "bare dates",
			dates: []string{"2026-10-16", "2026-10-15", "2026-10-14"},
			want:  domain.StreakResult{TotalCount: 3, MaxStreak: 3, CurrentStreak: 3, LastAppliedDate: "2026-10-16"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.dates, now))
		})
	}
}

func TestComputeStreakUsesCallerTimeZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	evening := time.Date(2026, 10, 16, 22, 0, 0, 0, ny)

	// 01:30 UTC on the 17th is still the 16th in New York.
	got := ComputeStreak([]string{"2026-10-17T01:30:00Z"}, evening)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, "2026-10-16", got.LastAppliedDate)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"2026-10-16T10:00:00Z",
		"2026-10-16T10:00:00.000+02:00",
		"2026-10-16T10:00+02:00",
		"2026-10-16T10:00:00",
		"2026-10-16",
	} {
		got, ok := ParseDate(s, time.UTC)
		require.True(t, ok, s)
		assert.Equal(t, 16, got.Day(), s)
	}

	_, ok := ParseDate("16/10/2026", time.UTC)
	assert.False(t, ok)
}

func TestFloorDays(t *testing.T) {
	assert.Equal(t, 1, floorDays(36*time.Hour))
	assert.Equal(t, 0, floorDays(23*time.Hour))
	assert.Equal(t, -1, floorDays(-1*time.Hour))
	assert.Equal(t, -1, floorDays(-24*time.Hour))
}
