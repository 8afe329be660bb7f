// Package ledger keeps the quantity ledgers of organizations and events.
//
// Every mutation runs under the lock of each scope it touches and inside a
// single database transaction. The requested changes are checked against a
// snapshot read in that transaction before anything is written, so a call
// either applies completely or leaves every ledger as it was.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Delta is a signed change to one stock line.
type Delta struct {
	FoodName string
	Quantity decimal.Decimal
}

// Service mutates and reads ledgers.
type Service struct {
	db      *sql.DB
	locks   *lock.Keyed
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a ledger service. The lock set must be shared with every
// other component that touches ledgers.
func NewService(db *sql.DB, locks *lock.Keyed, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, locks: locks, metrics: m, logger: logger, now: time.Now}
}

// Get returns a ledger with catalog unit and expiration on each line.
func (s *Service) Get(ctx context.Context, scope model.Scope) (*model.Ledger, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	ledger, err := store.GetLedger(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, model.NotFoundf("no inventory for %s", scope)
	}
	return ledger, nil
}

// Find returns one line of a ledger.
func (s *Service) Find(ctx context.Context, scope model.Scope, foodName string) (model.StockLine, error) {
	ledger, err := s.Get(ctx, scope)
	if err != nil {
		return model.StockLine{}, err
	}
	line, ok := ledger.Line(foodName)
	if !ok {
		return model.StockLine{}, model.NotFoundf("%q not found in %s", foodName, scope)
	}
	return line, nil
}

// Apply changes several lines of one ledger at once. Positive deltas create
// or increment a line; negative deltas need an existing line holding at
// least that much. Lines that reach zero are removed.
func (s *Service) Apply(ctx context.Context, scope model.Scope, deltas []Delta) error {
	err := s.apply(ctx, scope, deltas)
	return s.done("ledger updated", "apply", err,
		zap.Stringer("scope", scope), zap.Int("lines", len(deltas)))
}

func (s *Service) apply(ctx context.Context, scope model.Scope, deltas []Delta) error {
	if len(deltas) == 0 {
		return model.InvalidInputf("at least one change required")
	}

	return s.locked(ctx, func(tx *sql.Tx) error {
		changes, err := s.applyTx(ctx, tx, scope, deltas)
		if err != nil {
			return err
		}
		now := s.now()
		for _, c := range changes {
			m := &model.StockMovement{FoodName: c.name, Quantity: c.delta.Abs(), MovedAt: now}
			if c.delta.IsPositive() {
				m.To, m.Reason = &scope, model.MoveReceive
			} else {
				m.From, m.Reason = &scope, model.MoveRemove
			}
			if err := store.RecordMovement(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	}, scope)
}

// Receive adds stock to an organization's main ledger. Every food item must
// be in the catalog.
func (s *Service) Receive(ctx context.Context, organizationID string, items []model.LineItem, actor string) error {
	scope := model.MainScope(organizationID)
	items = model.MergeItems(items)

	err := s.move(ctx, items, func(tx *sql.Tx) error {
		for _, it := range items {
			food, err := store.GetFoodItem(ctx, tx, it.FoodName)
			if err != nil {
				return err
			}
			if food == nil {
				return model.NotFoundf("food item %q is not in the catalog", it.FoodName)
			}
		}
		if _, err := s.applyTx(ctx, tx, scope, credit(items)); err != nil {
			return err
		}
		return s.record(ctx, tx, items, nil, &scope, model.MoveReceive, "", actor)
	}, scope)

	return s.done("stock received", "receive", err,
		zap.String("organization", organizationID), zap.Int("items", len(items)), zap.String("actor", actor))
}

// Remove takes stock out of an organization's main ledger, for example
// spoiled food.
func (s *Service) Remove(ctx context.Context, organizationID string, items []model.LineItem, actor string) error {
	scope := model.MainScope(organizationID)
	items = model.MergeItems(items)

	err := s.move(ctx, items, func(tx *sql.Tx) error {
		if _, err := s.applyTx(ctx, tx, scope, debit(items)); err != nil {
			return err
		}
		return s.record(ctx, tx, items, &scope, nil, model.MoveRemove, "", actor)
	}, scope)

	return s.done("stock removed", "remove", err,
		zap.String("organization", organizationID), zap.Int("items", len(items)), zap.String("actor", actor))
}

// move validates items and runs fn with the scopes locked.
func (s *Service) move(ctx context.Context, items []model.LineItem, fn func(tx *sql.Tx) error, scopes ...model.Scope) error {
	if err := model.ValidateItems(items); err != nil {
		return err
	}
	return s.locked(ctx, fn, scopes...)
}

// locked locks every scope and runs fn in a transaction.
func (s *Service) locked(ctx context.Context, fn func(tx *sql.Tx) error, scopes ...model.Scope) error {
	keys := make([]string, len(scopes))
	for i, sc := range scopes {
		if err := sc.Validate(); err != nil {
			return err
		}
		keys[i] = sc.Key()
	}

	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return fmt.Errorf("locking ledgers: %w", err)
	}
	defer unlock()

	return store.WithTx(ctx, s.db, fn)
}

type change struct {
	name  string
	delta decimal.Decimal
	after decimal.Decimal
}

// applyTx writes deltas to one ledger inside tx after checking all of them.
func (s *Service) applyTx(ctx context.Context, tx *sql.Tx, scope model.Scope, deltas []Delta) ([]change, error) {
	current, err := store.GetQuantities(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	changes, err := plan(scope, current, deltas)
	if err != nil {
		return nil, err
	}

	if err := store.TouchLedger(ctx, tx, scope, s.now()); err != nil {
		return nil, err
	}
	for _, c := range changes {
		if err := store.SetQuantity(ctx, tx, scope, c.name, c.after); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// plan computes the resulting quantity of every line touched by deltas.
// Deltas naming the same food are summed first. It fails on the first line
// that is missing or would go negative.
func plan(scope model.Scope, current map[string]decimal.Decimal, deltas []Delta) ([]change, error) {
	index := make(map[string]int, len(deltas))
	var changes []change
	for _, d := range deltas {
		if d.FoodName == "" {
			return nil, model.InvalidInputf("food_name required")
		}
		if d.Quantity.IsZero() {
			return nil, model.InvalidInputf("change to %q must be non-zero", d.FoodName)
		}
		if err := model.CheckQuantity(d.FoodName, d.Quantity); err != nil {
			return nil, err
		}
		if i, ok := index[d.FoodName]; ok {
			changes[i].delta = changes[i].delta.Add(d.Quantity)
			continue
		}
		index[d.FoodName] = len(changes)
		changes = append(changes, change{name: d.FoodName, delta: d.Quantity})
	}

	out := changes[:0]
	for _, c := range changes {
		if c.delta.IsZero() {
			continue
		}
		have, ok := current[c.name]
		if c.delta.IsNegative() {
			if !ok {
				return nil, model.NotFoundf("%q not found in %s", c.name, scope)
			}
			if have.LessThan(c.delta.Neg()) {
				return nil, model.InsufficientStockf("insufficient %q in %s: have %s, need %s",
					c.name, scope, have, c.delta.Neg())
			}
		}
		c.after = have.Add(c.delta)
		out = append(out, c)
	}
	return out, nil
}

func credit(items []model.LineItem) []Delta {
	deltas := make([]Delta, len(items))
	for i, it := range items {
		deltas[i] = Delta{FoodName: it.FoodName, Quantity: it.Quantity}
	}
	return deltas
}

func debit(items []model.LineItem) []Delta {
	deltas := make([]Delta, len(items))
	for i, it := range items {
		deltas[i] = Delta{FoodName: it.FoodName, Quantity: it.Quantity.Neg()}
	}
	return deltas
}

// record writes one movement per item.
func (s *Service) record(ctx context.Context, tx *sql.Tx, items []model.LineItem, from, to *model.Scope, reason, reference, actor string) error {
	now := s.now()
	for _, it := range items {
		err := store.RecordMovement(ctx, tx, &model.StockMovement{
			FoodName:  it.FoodName,
			Quantity:  it.Quantity,
			From:      from,
			To:        to,
			Reason:    reason,
			Reference: reference,
			MovedBy:   actor,
			MovedAt:   now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Movements returns the latest stock movements of a ledger.
func (s *Service) Movements(ctx context.Context, scope model.Scope, limit int) ([]model.StockMovement, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return store.ListMovements(ctx, s.db, scope, limit)
}

// done counts and logs the outcome of an operation and returns err.
func (s *Service) done(msg, op string, err error, fields ...zap.Field) error {
	s.metrics.LedgerOp(op, err)
	switch {
	case err == nil:
		s.logger.Info(msg, fields...)
	case model.KindOf(err) != "":
		s.logger.Warn(op+" rejected", append(fields, zap.Error(err))...)
	default:
		s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	return err
}
