// Package analytics computes application statistics over saved job
// postings. Everything here is pure; callers fetch the records and pass the
// clock in.
package analytics

import (
	"time"

	"github.com/abelaba/job-parser/internal/domain"
)

const day = 24 * time.Hour

// DateLayout is the format of lastAppliedDate and of dailyCount keys.
const DateLayout = domain.DateLayout

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
}

// ParseDate parses a Notion date value: a full timestamp or a bare date.
// Bare dates and zone-less timestamps are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ComputeStreak derives the longest and the current run of consecutive
// application days. appliedDates must be sorted most recent first; the order
// is assumed, not checked. Entries that do not parse are skipped.
//
// maxStreak compares raw timestamps, so two applications on consecutive days
// only chain when they are at least a full 24h apart and less than 48h.
// currentStreak compares calendar days in now's location: the most recent
// date must be today, each following one exactly the day before.
func ComputeStreak(appliedDates []string, now time.Time) domain.StreakResult {
	loc := now.Location()

	dates := make([]time.Time, 0, len(appliedDates))
	for _, s := range appliedDates {
		if t, ok := ParseDate(s, loc); ok {
			dates = append(dates, t)
		}
	}

	if len(dates) == 0 {
		return domain.StreakResult{}
	}

	maxStreak, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if floorDays(dates[i-1].Sub(dates[i])) == 1 {
			run++
			if run > maxStreak {
				maxStreak = run
			}
		} else {
			run = 1
		}
	}

	current := 0
	cursor := civilDay(now, loc)
	for i, d := range dates {
		dd := civilDay(d, loc)
		diff := floorDays(cursor.Sub(dd))
		if i == 0 && diff == 0 {
			current++
		} else if i != 0 && diff == 1 {
			current++
		} else {
			break
		}
		cursor = dd
	}

	return domain.StreakResult{
		TotalCount:      len(dates),
		MaxStreak:       maxStreak,
		CurrentStreak:   current,
		LastAppliedDate: dates[0].In(loc).Format(DateLayout),
	}
}

// civilDay returns t's calendar date in loc as UTC midnight, so that
// subtracting two of them always yields whole days regardless of DST.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floorDays(d time.Duration) int {
	n := d / day
	if d%day != 0 && d < 0 {
		n--
	}
	return int(n)
}
