// Package volunteer handles applications for jobs and the work logged
// against approved applications.
package volunteer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/shramba/internal/jobs"
	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs the application workflow.
type Service struct {
	db     *sql.DB
	locks  *lock.Keyed
	jobs   *jobs.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an application workflow service.
func NewService(db *sql.DB, locks *lock.Keyed, jobSvc *jobs.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, locks: locks, jobs: jobSvc, logger: logger, now: time.Now}
}

func applicationKey(id string) string {
	return "application:" + id
}

// Apply files a pending application for an available job. The application
// targets the job's event if it has one, otherwise its organization.
func (s *Service) Apply(ctx context.Context, volunteerID, jobID string) (*model.Application, error) {
	if volunteerID == "" || jobID == "" {
		return nil, model.InvalidInputf("volunteer and job required")
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobAvailable {
		return nil, model.InvalidInputf("job %s is no longer available", jobID)
	}

	app := &model.Application{
		ID:          uuid.NewString(),
		VolunteerID: volunteerID,
		JobID:       jobID,
		Status:      model.ApplicationPending,
		AppliedAt:   s.now(),
	}
	if job.EventID != "" {
		app.EventID, app.Category = job.EventID, model.CategoryEvent
	} else {
		app.OrganizationID, app.Category = job.OrganizationID, model.CategoryFoodbank
	}

	if err := store.CreateApplication(ctx, s.db, app); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, model.Conflictf("volunteer %s already applied for job %s", volunteerID, jobID)
		}
		return nil, err
	}

	s.logger.Info("application filed",
		zap.String("id", app.ID), zap.String("volunteer", volunteerID), zap.String("job", jobID))
	return app, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id string) (*model.Application, error) {
	app, err := store.GetApplication(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, model.NotFoundf("application %s not found", id)
	}
	return app, nil
}

// OwnedBy reports whether an application is for the organization or for one
// of its events.
func (s *Service) OwnedBy(ctx context.Context, app *model.Application, organizationID string) (bool, error) {
	if app.OrganizationID != "" {
		return app.OrganizationID == organizationID, nil
	}
	e, err := store.GetEvent(ctx, s.db, app.EventID)
	if err != nil {
		return false, err
	}
	return e != nil && e.OrganizationID == organizationID, nil
}

// Decide approves or rejects a pending application.
func (s *Service) Decide(ctx context.Context, id, status string) (*model.Application, error) {
	unlock, err := s.locks.Lock(ctx, applicationKey(id))
	if err != nil {
		return nil, fmt.Errorf("locking application: %w", err)
	}
	defer unlock()

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(app.Status, status) {
		s.logger.Warn("application decision rejected",
			zap.String("id", id), zap.String("from", app.Status), zap.String("to", status))
		return nil, model.InvalidInputf("application %s cannot move from %s to %s", id, app.Status, status)
	}
	if err := store.UpdateApplicationStatus(ctx, s.db, id, status); err != nil {
		return nil, err
	}

	app.Status = status
	s.logger.Info("application decided", zap.String("id", id), zap.String("status", status))
	return app, nil
}

// Withdraw deletes a volunteer's own pending application.
func (s *Service) Withdraw(ctx context.Context, volunteerID, id string) error {
	unlock, err := s.locks.Lock(ctx, applicationKey(id))
	if err != nil {
		return fmt.Errorf("locking application: %w", err)
	}
	defer unlock()

	app, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if app.VolunteerID != volunteerID {
		return model.NotFoundf("application %s not found", id)
	}
	if app.Status != model.ApplicationPending {
		return model.InvalidInputf("only pending applications can be withdrawn")
	}
	if err := store.DeleteApplication(ctx, s.db, id); err != nil {
		return err
	}

	s.logger.Info("application withdrawn", zap.String("id", id), zap.String("volunteer", volunteerID))
	return nil
}

// Filter narrows List. Empty fields match everything.
type Filter = store.ApplicationFilter

// List returns matching applications, oldest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Application, error) {
	if f.Status != "" && f.Status != model.ApplicationPending &&
		f.Status != model.ApplicationApproved && f.Status != model.ApplicationRejected {
		return nil, model.InvalidInputf("unknown application status %q", f.Status)
	}
	return store.ListApplications(ctx, s.db, f)
}

// Activity is one work session to log.
type Activity struct {
	DateWorked       time.Time
	OrganizationName string
	WorkingHours     model.TimeWindow
}

// LogActivity appends a work session to an approved application. The date
// worked defaults to the day the session started.
func (s *Service) LogActivity(ctx context.Context, applicationID string, a Activity) (*model.ActivityRecord, error) {
	if err := a.WorkingHours.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, applicationKey(applicationID))
	if err != nil {
		return nil, fmt.Errorf("locking application: %w", err)
	}
	defer unlock()

	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationApproved {
		return nil, model.InvalidInputf("application %s is %s, not approved", applicationID, app.Status)
	}

	date := a.DateWorked
	if date.IsZero() {
		start := a.WorkingHours.Start.UTC()
		date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	}
	rec := &model.ActivityRecord{
		ID:               uuid.NewString(),
		ApplicationID:    applicationID,
		DateWorked:       date,
		OrganizationName: a.OrganizationName,
		Category:         app.Category,
		WorkingHours:     a.WorkingHours,
		RecordedAt:       s.now(),
	}
	if err := store.CreateActivity(ctx, s.db, rec); err != nil {
		return nil, err
	}

	s.logger.Info("activity logged",
		zap.String("application", applicationID), zap.String("volunteer", app.VolunteerID),
		zap.Duration("hours", a.WorkingHours.End.Sub(a.WorkingHours.Start)))
	return rec, nil
}

// ListActivities returns every session logged by a volunteer.
func (s *Service) ListActivities(ctx context.Context, volunteerID string) ([]model.ActivityRecord, error) {
	return store.ListActivitiesByVolunteer(ctx, s.db, volunteerID)
}
