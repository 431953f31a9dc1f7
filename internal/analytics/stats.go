package analytics

import (
	"time"

	"github.com/abelaba/job-parser/internal/domain"
)

// dailyWindow is how far back applied dates are bucketed per day.
const dailyWindow = 30 * day

// ComputeStats counts records per status, company and country. Empty values
// are not counted. DailyCount is seeded with a zero for each of the last 7
// (PASTWEEK) or 30 days and counts applied dates from the last 30 days.
func ComputeStats(records []domain.JobPosting, rng domain.StatsRange, now time.Time) domain.StatsResult {
	stats := domain.StatsResult{
		StatusCount:  make(map[string]int),
		CompanyCount: make(map[string]int),
		CountryCount: make(map[string]int),
		DailyCount:   make(map[string]int),
	}

	days := 30
	if rng.Normalize() == domain.RangePastWeek {
		days = 7
	}
	for i := 0; i < days; i++ {
		stats.DailyCount[now.AddDate(0, 0, -i).Format(DateLayout)] = 0
	}

	for _, r := range records {
		if r.Status != "" {
			stats.StatusCount[string(r.Status)]++
		}
		if r.Company != "" {
			stats.CompanyCount[r.Company]++
		}
		if r.Country != "" {
			stats.CountryCount[r.Country]++
		}
		if r.AppliedDate != nil && now.Sub(*r.AppliedDate) <= dailyWindow {
			key := r.AppliedDate.In(now.Location()).Format(DateLayout)
			if r.AppliedAllDay {
				key = r.AppliedDate.Format(DateLayout)
			}
			stats.DailyCount[key]++
		}
	}

	return stats
}
