// Package jobs manages volunteer job postings. A job's availability is
// re-evaluated against the clock on every read and persisted only when it
// changes.
package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service creates and reads jobs.
type Service struct {
	db      *sql.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a job service.
func NewService(db *sql.DB, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, metrics: m, logger: logger, now: time.Now}
}

// CreateRequest describes a new job posting.
type CreateRequest struct {
	OrganizationID string
	EventID        string
	Title          string
	Description    string
	Location       string
	Category       string
	Deadline       time.Time
}

// Create posts a job. It starts available unless its deadline has already
// passed.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Job, error) {
	if req.OrganizationID == "" || req.Title == "" || req.Category == "" {
		return nil, model.InvalidInputf("organization, title and category required")
	}
	if req.Deadline.IsZero() {
		return nil, model.InvalidInputf("deadline required")
	}
	if req.EventID != "" {
		e, err := store.GetEvent(ctx, s.db, req.EventID)
		if err != nil {
			return nil, err
		}
		if e == nil || e.OrganizationID != req.OrganizationID {
			return nil, model.NotFoundf("event %s not found for organization %s", req.EventID, req.OrganizationID)
		}
	}

	now := s.now()
	job := &model.Job{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		EventID:        req.EventID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Category:       req.Category,
		PostedAt:       now,
		Deadline:       req.Deadline,
		Status:         model.JobAvailable,
	}
	job.Status, _ = model.EvaluateJob(*job, now)

	if err := store.CreateJob(ctx, s.db, job); err != nil {
		return nil, err
	}
	s.logger.Info("job posted",
		zap.String("id", job.ID), zap.String("organization", job.OrganizationID),
		zap.Time("deadline", job.Deadline))
	return job, nil
}

// Get returns a job with its status evaluated at the current time.
func (s *Service) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := store.GetJob(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, model.NotFoundf("job %s not found", id)
	}
	if _, err := s.refresh(ctx, job, s.now()); err != nil {
		return nil, err
	}
	return job, nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	OrganizationID string
	EventID        string
	AvailableOnly  bool
}

// List returns matching jobs, most recently posted first, each evaluated at
// the current time.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Job, error) {
	jobs, err := store.ListJobs(ctx, s.db, store.JobFilter{
		OrganizationID: f.OrganizationID,
		EventID:        f.EventID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := jobs[:0]
	for i := range jobs {
		if _, err := s.refresh(ctx, &jobs[i], now); err != nil {
			return nil, err
		}
		if f.AvailableOnly && jobs[i].Status != model.JobAvailable {
			continue
		}
		out = append(out, jobs[i])
	}
	return out, nil
}

// refresh evaluates job at now and persists the new status if it changed.
func (s *Service) refresh(ctx context.Context, job *model.Job, now time.Time) (bool, error) {
	status, changed := model.EvaluateJob(*job, now)
	if !changed {
		return false, nil
	}
	if err := store.UpdateJobStatus(ctx, s.db, job.ID, status); err != nil {
		return false, err
	}
	job.Status = status
	s.metrics.JobExpired(1)
	s.logger.Info("job expired", zap.String("id", job.ID), zap.Time("deadline", job.Deadline))
	return true, nil
}
