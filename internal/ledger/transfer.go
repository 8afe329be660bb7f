package ledger

import (
	"context"
	"database/sql"
	"sort"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"go.uber.org/zap"
)

// MoveToEvent moves stock from an organization's main ledger to the ledger of
// one of its events. The debit and the credit commit together.
func (s *Service) MoveToEvent(ctx context.Context, organizationID, eventID string, items []model.LineItem, actor string) error {
	main, event := model.MainScope(organizationID), model.EventScope(eventID)
	items = model.MergeItems(items)

	err := s.move(ctx, items, func(tx *sql.Tx) error {
		if err := ownedEvent(ctx, tx, organizationID, eventID); err != nil {
			return err
		}
		if _, err := s.applyTx(ctx, tx, main, debit(items)); err != nil {
			return err
		}
		if _, err := s.applyTx(ctx, tx, event, credit(items)); err != nil {
			return err
		}
		return s.record(ctx, tx, items, &main, &event, model.MoveToEvent, eventID, actor)
	}, main, event)

	return s.done("stock moved to event", "to_event", err,
		zap.String("organization", organizationID), zap.String("event", eventID),
		zap.Int("items", len(items)), zap.String("actor", actor))
}

// MoveToMain returns everything left in an event's ledger to the main ledger
// of its organization and returns what was moved.
func (s *Service) MoveToMain(ctx context.Context, organizationID, eventID, actor string) ([]model.LineItem, error) {
	main, event := model.MainScope(organizationID), model.EventScope(eventID)

	var moved []model.LineItem
	err := s.locked(ctx, func(tx *sql.Tx) error {
		if err := ownedEvent(ctx, tx, organizationID, eventID); err != nil {
			return err
		}
		current, err := store.GetQuantities(ctx, tx, event)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return model.NotFoundf("no inventory to transfer back from event %s", eventID)
		}

		moved = make([]model.LineItem, 0, len(current))
		for name, qty := range current {
			moved = append(moved, model.LineItem{FoodName: name, Quantity: qty})
		}
		sort.Slice(moved, func(i, j int) bool { return moved[i].FoodName < moved[j].FoodName })

		if _, err := s.applyTx(ctx, tx, event, debit(moved)); err != nil {
			return err
		}
		if _, err := s.applyTx(ctx, tx, main, credit(moved)); err != nil {
			return err
		}
		return s.record(ctx, tx, moved, &event, &main, model.MoveToMain, eventID, actor)
	}, main, event)
	if err != nil {
		moved = nil
	}

	s.done("event stock returned", "to_main", err,
		zap.String("organization", organizationID), zap.String("event", eventID),
		zap.Int("items", len(moved)), zap.String("actor", actor))
	return moved, err
}

// ConsumeEvent records items used up during an event.
func (s *Service) ConsumeEvent(ctx context.Context, eventID string, items []model.LineItem, actor string) error {
	event := model.EventScope(eventID)
	items = model.MergeItems(items)

	err := s.move(ctx, items, func(tx *sql.Tx) error {
		e, err := store.GetEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e == nil {
			return model.NotFoundf("event %s not found", eventID)
		}
		if _, err := s.applyTx(ctx, tx, event, debit(items)); err != nil {
			return err
		}
		return s.record(ctx, tx, items, &event, nil, model.MoveConsume, eventID, actor)
	}, event)

	return s.done("event stock consumed", "consume", err,
		zap.String("event", eventID), zap.Int("items", len(items)), zap.String("actor", actor))
}

// ownedEvent checks that the event exists and belongs to the organization.
func ownedEvent(ctx context.Context, tx *sql.Tx, organizationID, eventID string) error {
	e, err := store.GetEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if e == nil || e.OrganizationID != organizationID {
		return model.NotFoundf("event %s not found for organization %s", eventID, organizationID)
	}
	return nil
}
