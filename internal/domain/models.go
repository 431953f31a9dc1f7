package domain

import (
	"context"
	"time"
)

// Status is the application state of a saved job posting. The values are the
// option names of the Notion "Status" property.
type Status string

const (
	StatusNotApplied   Status = "Not Applied"
	StatusApplied      Status = "Applied"
	StatusInterviewing Status = "Interviewing"
	StatusOffer        Status = "Offer"
	StatusRejected     Status = "Rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotApplied, StatusApplied, StatusInterviewing, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// JobFields is what the language model extracts from a posting.
type JobFields struct {
	Title       string `json:"jobTitle"`
	Country     string `json:"country"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

type JobPosting struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Country     string     `json:"country"`
	Company     string     `json:"company"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	AppliedDate *time.Time `json:"appliedDate,omitempty"`
	CreatedDate time.Time  `json:"createdDate"`

	// AppliedAllDay is set when the applied date carries no time of day.
	AppliedAllDay bool `json:"-"`
}

// DateLayout is the layout of a bare calendar date.
const DateLayout = "2006-01-02"

// AppliedDateString renders the applied date the way Notion holds it: a bare
// date for all-day values, an RFC 3339 timestamp otherwise. Empty when unset.
func (j JobPosting) AppliedDateString() string {
	switch {
	case j.AppliedDate == nil:
		return ""
	case j.AppliedAllDay:
		return j.AppliedDate.Format(DateLayout)
	default:
		return j.AppliedDate.Format(time.RFC3339)
	}
}

// StatsRange selects the created-date window used for statistics.
type StatsRange string

const (
	RangePastWeek  StatsRange = "PASTWEEK"
	RangePastMonth StatsRange = "PASTMONTH"
	RangePastYear  StatsRange = "PASTYEAR"
)

// Normalize maps unknown or empty ranges to the past year.
func (r StatsRange) Normalize() StatsRange {
	switch r {
	case RangePastWeek, RangePastMonth, RangePastYear:
		return r
	}
	return RangePastYear
}

type StatsResult struct {
	StatusCount  map[string]int `json:"statusCount"`
	CompanyCount map[string]int `json:"companyCount"`
	CountryCount map[string]int `json:"countryCount"`
	DailyCount   map[string]int `json:"dailyCount"`
}

type StreakResult struct {
	TotalCount      int    `json:"totalCount"`
	MaxStreak       int    `json:"maxStreak"`
	CurrentStreak   int    `json:"currentStreak"`
	LastAppliedDate string `json:"lastAppliedDate"`
}

// Comparison is the resume-to-posting match report.
type Comparison struct {
	MatchScore      int      `json:"matchScore"`
	MissingSkills   []string `json:"missingSkills"`
	ExperienceGap   []string `json:"experienceGap"`
	Recommendations []string `json:"recommendations"`
}

// Settings are the user-editable credentials and preferences. They are read
// again before every outbound call, so edits apply on the next request.
type Settings struct {
	ProviderAPIKey string `json:"providerAPIKey"`
	DatabaseAPIKey string `json:"databaseAPIKey"`
	DatabaseID     string `json:"databaseId"`
	BaseURL        string `json:"baseURL"`
	ResumeText     string `json:"resumeText"`
}

// SettingsSource yields the current settings.
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}
