// Package events manages the events an organization runs. Each event may
// hold its own stock ledger.
package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service creates and reads events.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an event service.
func NewService(db *sql.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// CreateRequest describes a new event.
type CreateRequest struct {
	OrganizationID string
	Name           string
	Description    string
	Location       string
	Window         model.TimeWindow
}

// Create schedules an event for an organization.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Event, error) {
	if req.OrganizationID == "" || req.Name == "" {
		return nil, model.InvalidInputf("organization and event_name required")
	}
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	e := &model.Event{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		Window:         req.Window,
		Status:         model.EventScheduled,
		CreatedAt:      now,
		LastUpdated:    now,
	}
	if err := store.CreateEvent(ctx, s.db, e); err != nil {
		return nil, err
	}
	s.logger.Info("event created", zap.String("id", e.ID), zap.String("organization", e.OrganizationID))
	return e, nil
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := store.GetEvent(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, model.NotFoundf("event %s not found", id)
	}
	return e, nil
}

// List returns events by start time, optionally for one organization.
func (s *Service) List(ctx context.Context, organizationID string) ([]model.Event, error) {
	return store.ListEvents(ctx, s.db, organizationID)
}

// UpdateRequest replaces the editable details of an event.
type UpdateRequest struct {
	Name        string
	Description string
	Location    string
	Window      model.TimeWindow
}

// Update replaces an event's details and window. Its status and stock are
// left alone.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*model.Event, error) {
	if req.Name == "" {
		return nil, model.InvalidInputf("event_name required")
	}
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}

	ok, err := store.UpdateEvent(ctx, s.db, &model.Event{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Window:      req.Window,
		LastUpdated: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NotFoundf("event %s not found", id)
	}
	s.logger.Info("event updated", zap.String("id", id),
		zap.Time("start", req.Window.Start), zap.Time("end", req.Window.End))
	return s.Get(ctx, id)
}

// SetStatus updates an event's status. It does not move any stock.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*model.Event, error) {
	if !model.ValidEventStatus(status) {
		return nil, model.InvalidInputf("unknown event status %q", status)
	}
	ok, err := store.UpdateEventStatus(ctx, s.db, id, status, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NotFoundf("event %s not found", id)
	}
	s.logger.Info("event status changed", zap.String("id", id), zap.String("status", status))
	return s.Get(ctx, id)
}
