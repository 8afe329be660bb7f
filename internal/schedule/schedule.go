// Package schedule books pickup appointments against an organization's
// stock and keeps appointment windows of one organization from overlapping.
package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service creates, moves and lists appointments.
type Service struct {
	db      *sql.DB
	locks   *lock.Keyed
	ledger  *ledger.Service
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an appointment scheduler. locks must be the set the
// ledger service uses.
func NewService(db *sql.DB, locks *lock.Keyed, ledgerSvc *ledger.Service, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, locks: locks, ledger: ledgerSvc, metrics: m, logger: logger, now: time.Now}
}

func scheduleKey(organizationID string) string {
	return "schedule:" + organizationID
}

// CreateRequest describes a new appointment.
type CreateRequest struct {
	RequesterID    string
	OrganizationID string
	Window         model.TimeWindow
	Items          []model.LineItem
	Description    string
}

// Create books a slot and reserves its items from the organization's main
// ledger. The overlap check, the reservation and the insert commit together.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Appointment, error) {
	appt, err := s.create(ctx, req)
	s.metrics.AppointmentOp("create", err)
	if err != nil {
		s.logFailure("create", err, zap.String("organization", req.OrganizationID), zap.String("requester", req.RequesterID))
		return nil, err
	}
	s.logger.Info("appointment created",
		zap.String("id", appt.ID), zap.String("organization", appt.OrganizationID),
		zap.String("requester", appt.RequesterID), zap.Int("items", len(appt.Items)))
	return appt, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*model.Appointment, error) {
	if req.OrganizationID == "" || req.RequesterID == "" {
		return nil, model.InvalidInputf("organization and requester required")
	}
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}
	items := model.MergeItems(req.Items)
	if err := model.ValidateItems(items); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, scheduleKey(req.OrganizationID), ledger.MainKey(req.OrganizationID))
	if err != nil {
		return nil, fmt.Errorf("locking schedule: %w", err)
	}
	defer unlock()

	now := s.now()
	appt := &model.Appointment{
		ID:             uuid.NewString(),
		RequesterID:    req.RequesterID,
		OrganizationID: req.OrganizationID,
		Window:         req.Window,
		Items:          items,
		Description:    req.Description,
		Status:         model.AppointmentScheduled,
		CreatedAt:      now,
		LastUpdated:    now,
	}

	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkSlot(ctx, tx, appt.OrganizationID, "", appt.Window); err != nil {
			return err
		}
		if _, err := s.ledger.Reserve(ctx, tx, appt.OrganizationID, items, appt.ID, appt.RequesterID); err != nil {
			return err
		}
		return store.CreateAppointment(ctx, tx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule moves an appointment to a new window. Reserved stock is not
// touched.
func (s *Service) Reschedule(ctx context.Context, id string, window model.TimeWindow) (*model.Appointment, error) {
	appt, err := s.reschedule(ctx, id, window)
	s.metrics.AppointmentOp("reschedule", err)
	if err != nil {
		s.logFailure("reschedule", err, zap.String("id", id))
		return nil, err
	}
	s.logger.Info("appointment rescheduled",
		zap.String("id", id), zap.String("organization", appt.OrganizationID),
		zap.Time("start", appt.Window.Start), zap.Time("end", appt.Window.End))
	return appt, nil
}

func (s *Service) reschedule(ctx context.Context, id string, window model.TimeWindow) (*model.Appointment, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, scheduleKey(appt.OrganizationID))
	if err != nil {
		return nil, fmt.Errorf("locking schedule: %w", err)
	}
	defer unlock()

	now := s.now()
	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Re-read under the lock; a concurrent status change may have won.
		current, err := lockedAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkSlot(ctx, tx, current.OrganizationID, current.ID, window); err != nil {
			return err
		}
		if err := store.UpdateAppointmentWindow(ctx, tx, current.ID, window, model.AppointmentRescheduled, now); err != nil {
			return err
		}
		appt = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	appt.Window = window
	appt.Status = model.AppointmentRescheduled
	appt.LastUpdated = now
	return appt, nil
}

func lockedAppointment(ctx context.Context, tx *sql.Tx, id string) (*model.Appointment, error) {
	appt, err := store.GetAppointment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, model.NotFoundf("appointment %s not found", id)
	}
	return appt, nil
}

// checkSlot fails if window overlaps any appointment of the organization
// that still holds its slot, other than the one being edited.
func checkSlot(ctx context.Context, tx *sql.Tx, organizationID, editing string, window model.TimeWindow) error {
	holders, err := store.ListSlotHolders(ctx, tx, organizationID)
	if err != nil {
		return err
	}
	for _, h := range holders {
		if h.ID == editing || !h.HoldsSlot() {
			continue
		}
		if h.Window.Overlaps(window) {
			return model.SlotUnavailablef("slot %s - %s overlaps appointment %s",
				window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339), h.ID)
		}
	}
	return nil
}

// SetStatus writes an appointment status directly. Marking an appointment
// picked or cancelled has no effect on stock.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	appt, err := s.setStatus(ctx, id, status)
	s.metrics.AppointmentOp("status", err)
	if err != nil {
		s.logFailure("status", err, zap.String("id", id), zap.String("status", status))
		return nil, err
	}
	s.logger.Info("appointment status changed", zap.String("id", id), zap.String("status", status))
	return appt, nil
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	if !model.ValidAppointmentStatus(status) {
		return nil, model.InvalidInputf("unknown appointment status %q", status)
	}
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, scheduleKey(appt.OrganizationID))
	if err != nil {
		return nil, fmt.Errorf("locking schedule: %w", err)
	}
	defer unlock()

	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := lockedAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		// Leaving cancelled takes the window back, so it must still be free.
		if !current.HoldsSlot() && status != model.AppointmentCancelled {
			if err := checkSlot(ctx, tx, current.OrganizationID, current.ID, current.Window); err != nil {
				return err
			}
		}
		ok, err := store.UpdateAppointmentStatus(ctx, tx, id, status, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return model.NotFoundf("appointment %s not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := store.GetAppointment(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, model.NotFoundf("appointment %s not found", id)
	}
	return appt, nil
}

// ListByOrganization returns an organization's appointments, optionally only
// those with the given status.
func (s *Service) ListByOrganization(ctx context.Context, organizationID, status string) ([]model.Appointment, error) {
	if status != "" && !model.ValidAppointmentStatus(status) {
		return nil, model.InvalidInputf("unknown appointment status %q", status)
	}
	return store.ListAppointments(ctx, s.db, store.AppointmentFilter{OrganizationID: organizationID, Status: status})
}

// ListByRequester returns the appointments booked by one requester.
func (s *Service) ListByRequester(ctx context.Context, requesterID string) ([]model.Appointment, error) {
	return store.ListAppointments(ctx, s.db, store.AppointmentFilter{RequesterID: requesterID})
}

func (s *Service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if model.KindOf(err) != "" {
		s.logger.Warn(op+" rejected", fields...)
		return
	}
	s.logger.Error(op+" failed", fields...)
}
