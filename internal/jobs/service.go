// Package jobs saves postings and answers the tracker's questions about them.
package jobs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abelaba/job-parser/internal/analytics"
	"github.com/abelaba/job-parser/internal/domain"
)

// Database is the job store. *notion.Client implements it.
type Database interface {
	FindByURL(ctx context.Context, url string) (domain.JobPosting, bool, error)
	Insert(ctx context.Context, url string, f domain.JobFields) (domain.JobPosting, error)
	QueryByStatus(ctx context.Context, status domain.Status) ([]domain.JobPosting, error)
	QueryApplied(ctx context.Context) ([]domain.JobPosting, error)
	QueryCreatedWithin(ctx context.Context, rng domain.StatsRange) ([]domain.JobPosting, error)
	PatchStatus(ctx context.Context, id string, status domain.Status) error
}

// Extractor is the language-model side. *ai.Client implements it.
type Extractor interface {
	Extract(ctx context.Context, text string) (domain.JobFields, error)
	Compare(ctx context.Context, resume, posting string) (domain.Comparison, error)
}

type Service struct {
	db       Database
	llm      Extractor
	settings domain.SettingsSource
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db Database, llm Extractor, settings domain.SettingsSource, opts ...Option) *Service {
	s := &Service{
		db:       db,
		llm:      llm,
		settings: settings,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveJob checks the URL is new, extracts the posting's fields and stores
// them. The first failing step's error is returned as is; nothing is stored
// unless extraction succeeded.
func (s *Service) SaveJob(ctx context.Context, url, text string) (domain.JobPosting, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.JobPosting{}, &domain.ValidationError{Field: "url", Message: "required"}
	}
	if strings.TrimSpace(text) == "" {
		return domain.JobPosting{}, &domain.ValidationError{Field: "description", Message: "required"}
	}
	log := s.log.With("op", "save_job", "url", url)

	// --- 1) Already saved? ----------------------------------------------------

	existing, found, err := s.db.FindByURL(ctx, url)
	if err != nil {
		log.Error("existence check failed", "err", err)
		return domain.JobPosting{}, err
	}
	if found {
		log.Info("job already saved", "status", existing.Status)
		return domain.JobPosting{}, &domain.DuplicateError{URL: url, Status: existing.Status}
	}

	// --- 2) Extract fields ----------------------------------------------------

	fields, err := s.llm.Extract(ctx, text)
	if err != nil {
		log.Error("extraction failed", "err", err)
		return domain.JobPosting{}, err
	}
	log.Debug("extracted fields", "title", fields.Title, "company", fields.Company)

	// --- 3) Persist -----------------------------------------------------------

	saved, err := s.db.Insert(ctx, url, fields)
	if err != nil {
		log.Error("insert failed", "err", err)
		return domain.JobPosting{}, err
	}
	log.Info("job saved", "id", saved.ID)
	return saved, nil
}

// ListSaved returns postings in status, "Not Applied" when empty.
func (s *Service) ListSaved(ctx context.Context, status domain.Status) ([]domain.JobPosting, error) {
	if status == "" {
		status = domain.StatusNotApplied
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}
	jobs, err := s.db.QueryByStatus(ctx, status)
	if err != nil {
		s.log.Error("list saved jobs failed", "status", status, "err", err)
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.JobPosting{}
	}
	return jobs, nil
}

func (s *Service) Stats(ctx context.Context, rng domain.StatsRange) (domain.StatsResult, error) {
	rng = rng.Normalize()
	records, err := s.db.QueryCreatedWithin(ctx, rng)
	if err != nil {
		s.log.Error("stats query failed", "range", rng, "err", err)
		return domain.StatsResult{}, err
	}
	return analytics.ComputeStats(records, rng, s.now()), nil
}

func (s *Service) Streak(ctx context.Context) (domain.StreakResult, error) {
	records, err := s.db.QueryApplied(ctx)
	if err != nil {
		s.log.Error("streak query failed", "err", err)
		return domain.StreakResult{}, err
	}
	dates := make([]string, 0, len(records))
	for _, r := range records {
		if d := r.AppliedDateString(); d != "" {
			dates = append(dates, d)
		}
	}
	return analytics.ComputeStreak(dates, s.now()), nil
}

// UpdateStatus moves a posting to status, "Applied" when empty.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{Field: "page id", Message: "required"}
	}
	if status == "" {
		status = domain.StatusApplied
	}
	if !status.Valid() {
		return &domain.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}
	if err := s.db.PatchStatus(ctx, id, status); err != nil {
		s.log.Error("status update failed", "id", id, "status", status, "err", err)
		return err
	}
	s.log.Info("status updated", "id", id, "status", status)
	return nil
}

// Compare scores resume against posting. An empty resume falls back to the
// one kept in settings.
func (s *Service) Compare(ctx context.Context, resume, posting string) (domain.Comparison, error) {
	if strings.TrimSpace(posting) == "" {
		return domain.Comparison{}, &domain.ValidationError{Field: "job posting", Message: "required"}
	}
	if strings.TrimSpace(resume) == "" {
		st, err := s.settings.Settings(ctx)
		if err != nil {
			return domain.Comparison{}, err
		}
		resume = st.ResumeText
	}
	if strings.TrimSpace(resume) == "" {
		return domain.Comparison{}, &domain.ValidationError{Field: "resume", Message: "required"}
	}

	cmp, err := s.llm.Compare(ctx, resume, posting)
	if err != nil {
		s.log.Error("comparison failed", "err", err)
		return domain.Comparison{}, err
	}
	return cmp, nil
}
