// Package messaging is the single entry point the browser extension talks
// to: one message in, one envelope out.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abelaba/job-parser/internal/domain"
)

type Action string

const (
	ActionSaveJob      Action = "SAVEJOB"
	ActionGetSavedJobs Action = "GETSAVEDJOBS"
	ActionGetStats     Action = "GETSTATS"
	ActionGetStreak    Action = "GETSTREAK"
	ActionUpdateJob    Action = "UPDATEJOB"
	ActionCompareJob   Action = "COMPAREJOB"
)

const (
	Success = "SUCCESS"
	Failure = "FAILURE"
)

// Message is the wire request. Which fields are read depends on Action.
type Message struct {
	Action     Action          `json:"action"`
	Data       json.RawMessage `json:"data,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	PageID     string          `json:"pageId,omitempty"`
	Resume     string          `json:"resume,omitempty"`
	JobPosting string          `json:"jobPosting,omitempty"`
}

// Envelope is the wire response.
type Envelope struct {
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Request is one of SaveJob, ListSavedJobs, GetStats, GetStreak,
// UpdateJobStatus or CompareJob.
type Request interface {
	Action() Action
}

type SaveJob struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type ListSavedJobs struct {
	Status domain.Status `json:"status"`
}

type GetStats struct {
	Range domain.StatsRange `json:"range"`
}

type GetStreak struct{}

type UpdateJobStatus struct {
	PageID string
	Status domain.Status `json:"status"`
}

type CompareJob struct {
	Resume     string
	JobPosting string
}

func (SaveJob) Action() Action         { return ActionSaveJob }
func (ListSavedJobs) Action() Action   { return ActionGetSavedJobs }
func (GetStats) Action() Action        { return ActionGetStats }
func (GetStreak) Action() Action       { return ActionGetStreak }
func (UpdateJobStatus) Action() Action { return ActionUpdateJob }
func (CompareJob) Action() Action      { return ActionCompareJob }

// Decode validates a wire message and returns its typed request.
func Decode(m Message) (Request, error) {
	switch Action(strings.ToUpper(string(m.Action))) {
	case ActionSaveJob:
		var r SaveJob
		if err := unmarshalPayload("data", m.Data, &r); err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.URL) == "" {
			return nil, &domain.ValidationError{Field: "data.url", Message: "required"}
		}
		if strings.TrimSpace(r.Description) == "" {
			return nil, &domain.ValidationError{Field: "data.description", Message: "required"}
		}
		return r, nil

	case ActionGetSavedJobs:
		var r ListSavedJobs
		if err := unmarshalPayload("body", m.Body, &r); err != nil {
			return nil, err
		}
		return r, nil

	case ActionGetStats:
		var r GetStats
		if err := unmarshalPayload("body", m.Body, &r); err != nil {
			return nil, err
		}
		r.Range = domain.StatsRange(strings.ToUpper(string(r.Range))).Normalize()
		return r, nil

	case ActionGetStreak:
		return GetStreak{}, nil

	case ActionUpdateJob:
		var r UpdateJobStatus
		if err := unmarshalPayload("body", m.Body, &r); err != nil {
			return nil, err
		}
		r.PageID = strings.TrimSpace(m.PageID)
		if r.PageID == "" {
			return nil, &domain.ValidationError{Field: "pageId", Message: "required"}
		}
		return r, nil

	case ActionCompareJob:
		if strings.TrimSpace(m.JobPosting) == "" {
			return nil, &domain.ValidationError{Field: "jobPosting", Message: "required"}
		}
		return CompareJob{Resume: m.Resume, JobPosting: m.JobPosting}, nil
	}

	if m.Action == "" {
		return nil, &domain.ValidationError{Field: "action", Message: "required"}
	}
	return nil, &domain.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", m.Action)}
}

// unmarshalPayload leaves v at its zero value when raw is empty or null.
func unmarshalPayload(field string, raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &domain.ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

// Service is what the dispatcher drives. *jobs.Service implements it.
type Service interface {
	SaveJob(ctx context.Context, url, text string) (domain.JobPosting, error)
	ListSaved(ctx context.Context, status domain.Status) ([]domain.JobPosting, error)
	Stats(ctx context.Context, rng domain.StatsRange) (domain.StatsResult, error)
	Streak(ctx context.Context) (domain.StreakResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	Compare(ctx context.Context, resume, posting string) (domain.Comparison, error)
}

type Dispatcher struct {
	svc Service
	log *slog.Logger
}

func NewDispatcher(svc Service, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{svc: svc, log: log}
}

// HandleMessage decodes m and handles it. Decoding failures are reported in
// the envelope like any other error.
func (d *Dispatcher) HandleMessage(ctx context.Context, m Message) Envelope {
	req, err := Decode(m)
	if err != nil {
		d.log.Warn("rejected message", "action", m.Action, "err", err)
		return failure(err)
	}
	return d.Handle(ctx, req)
}

// Handle runs req. It never panics: errors and recovered panics both come
// back as a FAILURE envelope.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic handling message", "request", fmt.Sprintf("%T", req), "panic", r)
			env = Envelope{Message: Failure, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	content, err := d.dispatch(ctx, req)
	if err != nil {
		d.log.Error("message failed", "request", fmt.Sprintf("%T", req), "err", err)
		return failure(err)
	}
	return Envelope{Message: Success, Content: content}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case SaveJob:
		return d.svc.SaveJob(ctx, r.URL, r.Description)
	case ListSavedJobs:
		return d.svc.ListSaved(ctx, r.Status)
	case GetStats:
		return d.svc.Stats(ctx, r.Range)
	case GetStreak:
		return d.svc.Streak(ctx)
	case UpdateJobStatus:
		return "", d.svc.UpdateStatus(ctx, r.PageID, r.Status)
	case CompareJob:
		return d.svc.Compare(ctx, r.Resume, r.JobPosting)
	default:
		return nil, &domain.ValidationError{Field: "action", Message: fmt.Sprintf("unsupported request %T", req)}
	}
}

func failure(err error) Envelope {
	return Envelope{Message: Failure, Error: err.Error()}
}
