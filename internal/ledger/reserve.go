package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"go.uber.org/zap"
)

// Reservation is stock taken from a main ledger for an appointment.
type Reservation struct {
	OrganizationID string           `json:"organization_id"`
	Items          []model.LineItem `json:"items"`
	ReservedAt     time.Time        `json:"reserved_at"`
}

// MainKey is the lock key a caller of Reserve must hold.
func MainKey(organizationID string) string {
	return model.MainScope(organizationID).Key()
}

// Reserve deducts items from an organization's main ledger inside the
// caller's transaction. The caller must hold MainKey(organizationID) until
// the transaction ends. If any item is missing or short nothing is deducted,
// although the caller is still responsible for rolling back tx.
//
// Stock is consumed, not held: nothing returns it to the ledger later.
func (s *Service) Reserve(ctx context.Context, tx *sql.Tx, organizationID string, items []model.LineItem, reference, actor string) (*Reservation, error) {
	scope := model.MainScope(organizationID)
	items = model.MergeItems(items)

	res, err := s.reserve(ctx, tx, scope, items, reference, actor)
	if err != nil {
		s.metrics.ReservationRejected(err)
	}
	s.done("stock reserved", "reserve", err,
		zap.String("organization", organizationID), zap.String("reference", reference),
		zap.Int("items", len(items)))
	return res, err
}

func (s *Service) reserve(ctx context.Context, tx *sql.Tx, scope model.Scope, items []model.LineItem, reference, actor string) (*Reservation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateItems(items); err != nil {
		return nil, err
	}
	if _, err := s.applyTx(ctx, tx, scope, debit(items)); err != nil {
		return nil, err
	}
	if err := s.record(ctx, tx, items, &scope, nil, model.MoveReserve, reference, actor); err != nil {
		return nil, err
	}
	return &Reservation{OrganizationID: scope.ID, Items: items, ReservedAt: s.now()}, nil
}
