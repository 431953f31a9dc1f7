package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelaba/job-parser/internal/domain"
)

var now = time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)

type fakeDB struct {
	existing map[string]domain.JobPosting
	records  []domain.JobPosting
	err      error

	inserts   int
	patched   map[string]domain.Status
	gotRange  domain.StatsRange
	gotStatus domain.Status
}

func (f *fakeDB) FindByURL(_ context.Context, url string) (domain.JobPosting, bool, error) {
	if f.err != nil {
		return domain.JobPosting{}, false, f.err
	}
	jp, ok := f.existing[url]
	return jp, ok, nil
}

func (f *fakeDB) Insert(_ context.Context, url string, fl domain.JobFields) (domain.JobPosting, error) {
	f.inserts++
	return domain.JobPosting{
		ID: "page-1", URL: url, Title: fl.Title, Company: fl.Company,
		Country: fl.Country, Description: fl.Description, Status: domain.StatusNotApplied,
	}, nil
}

func (f *fakeDB) QueryByStatus(_ context.Context, status domain.Status) ([]domain.JobPosting, error) {
	f.gotStatus = status
	return f.records, f.err
}

func (f *fakeDB) QueryApplied(context.Context) ([]domain.JobPosting, error) {
	return f.records, f.err
}

func (f *fakeDB) QueryCreatedWithin(_ context.Context, rng domain.StatsRange) ([]domain.JobPosting, error) {
	f.gotRange = rng
	return f.records, f.err
}

func (f *fakeDB) PatchStatus(_ context.Context, id string, status domain.Status) error {
	if f.patched == nil {
		f.patched = make(map[string]domain.Status)
	}
	f.patched[id] = status
	return f.err
}

type fakeLLM struct {
	fields domain.JobFields
	cmp    domain.Comparison
	err    error

	extracts  int
	gotResume string
}

func (f *fakeLLM) Extract(context.Context, string) (domain.JobFields, error) {
	f.extracts++
	return f.fields, f.err
}

func (f *fakeLLM) Compare(_ context.Context, resume, _ string) (domain.Comparison, error) {
	f.gotResume = resume
	return f.cmp, f.err
}

func newService(db *fakeDB, llm *fakeLLM, st domain.Settings) *Service {
	return NewService(db, llm, domain.StaticSettings(st),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return now }),
	)
}

func TestSaveJob(t *testing.T) {
	db := &fakeDB{}
	llm := &fakeLLM{fields: domain.JobFields{Title: "Go Developer", Company: "Acme", Country: "Kenya"}}

	got, err := newService(db, llm, domain.Settings{}).SaveJob(context.Background(), " https://jobs.example.com/1 ", "posting text")
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.example.com/1", got.URL)
	assert.Equal(t, "Go Developer", got.Title)
	assert.Equal(t, domain.StatusNotApplied, got.Status)
	assert.Equal(t, 1, db.inserts)
}

func TestSaveJobDuplicate(t *testing.T) {
	db := &fakeDB{existing: map[string]domain.JobPosting{
		"https://jobs.example.com/1": {Status: domain.StatusApplied},
	}}
	llm := &fakeLLM{}

	_, err := newService(db, llm, domain.Settings{}).SaveJob(context.Background(), "https://jobs.example.com/1", "posting")

	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.StatusApplied, dup.Status)
	assert.Equal(t, "job posting already saved (status: Applied)", err.Error())
	assert.Equal(t, 0, llm.extracts)
	assert.Equal(t, 0, db.inserts)
}

func TestSaveJobExtractionFailureStoresNothing(t *testing.T) {
	db := &fakeDB{}
	llm := &fakeLLM{err: &domain.ProviderError{Message: "rate limit reached"}}

	_, err := newService(db, llm, domain.Settings{}).SaveJob(context.Background(), "https://jobs.example.com/2", "posting")

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "provider error: rate limit reached", err.Error())
	assert.Equal(t, 0, db.inserts)
}

func TestSaveJobLookupFailure(t *testing.T) {
	lookup := domain.NewLookupError("Could not find database", nil)
	db := &fakeDB{err: lookup}
	llm := &fakeLLM{}

	_, err := newService(db, llm, domain.Settings{}).SaveJob(context.Background(), "https://jobs.example.com/3", "posting")
	assert.Same(t, lookup, err)
	assert.Equal(t, 0, llm.extracts)
}

func TestSaveJobValidation(t *testing.T) {
	svc := newService(&fakeDB{}, &fakeLLM{}, domain.Settings{})

	_, err := svc.SaveJob(context.Background(), "", "posting")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)

	_, err = svc.SaveJob(context.Background(), "https://x", "  ")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestListSavedDefaultsToNotApplied(t *testing.T) {
	db := &fakeDB{}
	svc := newService(db, &fakeLLM{}, domain.Settings{})

	got, err := svc.ListSaved(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, domain.StatusNotApplied, db.gotStatus)

	_, err = svc.ListSaved(context.Background(), "Ghosted")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStats(t *testing.T) {
	applied := now.Add(-2 * time.Hour)
	db := &fakeDB{records: []domain.JobPosting{
		{Status: domain.StatusApplied, Company: "Acme", Country: "Kenya", AppliedDate: &applied},
		{Status: domain.StatusNotApplied, Company: "Acme"},
	}}

	got, err := newService(db, &fakeLLM{}, domain.Settings{}).Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.RangePastYear, db.gotRange)
	assert.Equal(t, 2, got.CompanyCount["Acme"])
	assert.Equal(t, 1, got.DailyCount["2026-10-16"])
}

func TestStreak(t *testing.T) {
	d0 := now.Add(-1 * time.Hour)
	d1 := d0.AddDate(0, 0, -1)
	db := &fakeDB{records: []domain.JobPosting{
		{AppliedDate: &d0},
		{AppliedDate: &d1},
		{},
	}}

	got, err := newService(db, &fakeLLM{}, domain.Settings{}).Streak(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StreakResult{TotalCount: 2, MaxStreak: 2, CurrentStreak: 2, LastAppliedDate: "2026-10-16"}, got)
}

func TestStreakKeepsAllDayDatesOnTheirCalendarDay(t *testing.T) {
	west := time.FixedZone("PDT", -7*60*60)
	today := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{records: []domain.JobPosting{
		{AppliedDate: &today, AppliedAllDay: true},
		{AppliedDate: &yesterday, AppliedAllDay: true},
	}}

	svc := NewService(db, &fakeLLM{}, domain.StaticSettings{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, west) }),
	)
	got, err := svc.Streak(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StreakResult{TotalCount: 2, MaxStreak: 2, CurrentStreak: 2, LastAppliedDate: "2026-10-16"}, got)
}

func TestUpdateStatus(t *testing.T) {
	db := &fakeDB{}
	svc := newService(db, &fakeLLM{}, domain.Settings{})

	require.NoError(t, svc.UpdateStatus(context.Background(), "p1", ""))
	assert.Equal(t, domain.StatusApplied, db.patched["p1"])

	require.NoError(t, svc.UpdateStatus(context.Background(), "p2", domain.StatusInterviewing))
	assert.Equal(t, domain.StatusInterviewing, db.patched["p2"])

	var verr *domain.ValidationError
	assert.ErrorAs(t, svc.UpdateStatus(context.Background(), "p3", "Hired?"), &verr)
	assert.ErrorAs(t, svc.UpdateStatus(context.Background(), "", ""), &verr)
	assert.NotContains(t, db.patched, "p3")
}

func TestUpdateStatusPropagatesStoreError(t *testing.T) {
	want := domain.NewUpdateError("page archived", nil)
	svc := newService(&fakeDB{err: want}, &fakeLLM{}, domain.Settings{})

	err := svc.UpdateStatus(context.Background(), "p1", domain.StatusApplied)
	assert.True(t, errors.Is(err, want))
}

func TestCompareFallsBackToStoredResume(t *testing.T) {
	llm := &fakeLLM{cmp: domain.Comparison{MatchScore: 80}}
	svc := newService(&fakeDB{}, llm, domain.Settings{ResumeText: "stored resume"})

	got, err := svc.Compare(context.Background(), "", "posting")
	require.NoError(t, err)
	assert.Equal(t, 80, got.MatchScore)
	assert.Equal(t, "stored resume", llm.gotResume)

	_, err = svc.Compare(context.Background(), "given resume", "posting")
	require.NoError(t, err)
	assert.Equal(t, "given resume", llm.gotResume)
}

func TestCompareWithoutResume(t *testing.T) {
	svc := newService(&fakeDB{}, &fakeLLM{}, domain.Settings{})

	_, err := svc.Compare(context.Background(), "", "posting")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "resume", verr.Field)
}
