package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"github.com/shopspring/decimal"
)

type ledgerTestContext struct {
	database *sql.DB
	locks    *lock.Keyed
	svc      *ledger.Service
	err      error
}

func (c *ledgerTestContext) reset() error {
	if c.database != nil {
		c.database.Close()
	}
	database, err := db.Open(":memory:")
	if err != nil {
		return err
	}
	if err := db.EnsureSchema(database); err != nil {
		return err
	}
	c.database = database
	c.locks = lock.New()
	c.svc = ledger.NewService(database, c.locks, nil, nil)
	c.err = nil
	return nil
}

func parseItems(table *godog.Table) ([]model.LineItem, error) {
	var items []model.LineItem
	for i, row := range table.Rows {
		if i == 0 {
			continue // skip header
		}
		q, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		items = append(items, model.LineItem{FoodName: row.Cells[0].Value, Quantity: q})
	}
	return items, nil
}

func (c *ledgerTestContext) theCatalogContains(names string) error {
	now := time.Now()
	for _, name := range strings.Split(names, ",") {
		err := store.CreateFoodItem(context.Background(), c.database, &model.FoodItem{
			Name: strings.TrimSpace(name), Category: "Others", Unit: model.UnitPieces,
			ExpirationDate: now.Add(7 * 24 * time.Hour), AddedOn: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *ledgerTestContext) organizationHasEvent(org, eventID string) error {
	now := time.Now()
	return store.CreateEvent(context.Background(), c.database, &model.Event{
		ID: eventID, OrganizationID: org, Name: "Drive",
		Window: model.TimeWindow{Start: now, End: now.Add(time.Hour)},
		Status: model.EventScheduled, CreatedAt: now, LastUpdated: now,
	})
}

func (c *ledgerTestContext) theMainLedgerHolds(org string, table *godog.Table) error {
	items, err := parseItems(table)
	if err != nil {
		return err
	}
	return c.svc.Receive(context.Background(), org, items, org)
}

func (c *ledgerTestContext) reserves(org string, table *godog.Table) error {
	items, err := parseItems(table)
	if err != nil {
		return err
	}

	ctx := context.Background()
	unlock, err := c.locks.Lock(ctx, ledger.MainKey(org))
	if err != nil {
		return err
	}
	defer unlock()

	c.err = store.WithTx(ctx, c.database, func(tx *sql.Tx) error {
		_, err := c.svc.Reserve(ctx, tx, org, items, "appointment", "requester")
		return err
	})
	return nil
}

func (c *ledgerTestContext) movesToEvent(org, eventID string, table *godog.Table) error {
	items, err := parseItems(table)
	if err != nil {
		return err
	}
	c.err = c.svc.MoveToEvent(context.Background(), org, eventID, items, org)
	return nil
}

func (c *ledgerTestContext) returnsEventToMain(org, eventID string) error {
	if c.err != nil {
		return fmt.Errorf("previous step failed: %v", c.err)
	}
	_, c.err = c.svc.MoveToMain(context.Background(), org, eventID, org)
	return nil
}

func (c *ledgerTestContext) removes(org, quantity, food string) error {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return err
	}
	c.err = c.svc.Remove(context.Background(), org, []model.LineItem{{FoodName: food, Quantity: q}}, org)
	return nil
}

func (c *ledgerTestContext) theOperationSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success but got error: %v", c.err)
	}
	return nil
}

func (c *ledgerTestContext) theOperationFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected an error but the operation succeeded")
	}
	if got := model.KindOf(c.err); string(got) != kind {
		return fmt.Errorf("expected %q error, got %q (%v)", kind, got, c.err)
	}
	return nil
}

func (c *ledgerTestContext) quantity(scope model.Scope, food string) (decimal.Decimal, error) {
	line, err := c.svc.Find(context.Background(), scope, food)
	if errors.Is(err, model.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return line.Quantity, nil
}

func (c *ledgerTestContext) expectQuantity(scope model.Scope, quantity, food string) error {
	want, err := decimal.NewFromString(quantity)
	if err != nil {
		return err
	}
	got, err := c.quantity(scope, food)
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return fmt.Errorf("expected %s %q in %s, got %s", want, food, scope, got)
	}
	return nil
}

func (c *ledgerTestContext) mainLedgerHoldsQuantity(org, quantity, food string) error {
	return c.expectQuantity(model.MainScope(org), quantity, food)
}

func (c *ledgerTestContext) eventLedgerHoldsQuantity(eventID, quantity, food string) error {
	return c.expectQuantity(model.EventScope(eventID), quantity, food)
}

func (c *ledgerTestContext) mainLedgerHasNo(org, food string) error {
	_, err := c.svc.Find(context.Background(), model.MainScope(org), food)
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("expected no %q line, got %v", food, err)
	}
	return nil
}

func (c *ledgerTestContext) eventLedgerIsEmpty(eventID string) error {
	l, err := c.svc.Get(context.Background(), model.EventScope(eventID))
	if err != nil {
		return err
	}
	if len(l.Lines) != 0 {
		return fmt.Errorf("expected empty event ledger, got %d lines", len(l.Lines))
	}
	return nil
}

func (c *ledgerTestContext) togetherHold(org, eventID, quantity, food string) error {
	want, err := decimal.NewFromString(quantity)
	if err != nil {
		return err
	}
	inMain, err := c.quantity(model.MainScope(org), food)
	if err != nil {
		return err
	}
	atEvent, err := c.quantity(model.EventScope(eventID), food)
	if err != nil {
		return err
	}
	if total := inMain.Add(atEvent); !total.Equal(want) {
		return fmt.Errorf("expected %s %q in total, got %s", want, food, total)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &ledgerTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.database != nil {
			tc.database.Close()
			tc.database = nil
		}
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog contains "([^"]*)"$`, tc.theCatalogContains)
	ctx.Step(`^organization "([^"]*)" has event "([^"]*)"$`, tc.organizationHasEvent)
	ctx.Step(`^the main ledger of "([^"]*)" holds:$`, tc.theMainLedgerHolds)

	// When steps
	ctx.Step(`^"([^"]*)" reserves:$`, tc.reserves)
	ctx.Step(`^"([^"]*)" moves to event "([^"]*)":$`, tc.movesToEvent)
	ctx.Step(`^"([^"]*)" returns event "([^"]*)" to main$`, tc.returnsEventToMain)
	ctx.Step(`^"([^"]*)" removes ([\d.]+) "([^"]*)"$`, tc.removes)

	// Then steps
	ctx.Step(`^the operation succeeds$`, tc.theOperationSucceeds)
	ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
	ctx.Step(`^the main ledger of "([^"]*)" holds ([\d.]+) "([^"]*)"$`, tc.mainLedgerHoldsQuantity)
	ctx.Step(`^the event ledger of "([^"]*)" holds ([\d.]+) "([^"]*)"$`, tc.eventLedgerHoldsQuantity)
	ctx.Step(`^the main ledger of "([^"]*)" has no "([^"]*)"$`, tc.mainLedgerHasNo)
	ctx.Step(`^the event ledger of "([^"]*)" is empty$`, tc.eventLedgerIsEmpty)
	ctx.Step(`^"([^"]*)" and event "([^"]*)" together hold ([\d.]+) "([^"]*)"$`, tc.togetherHold)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/ledger.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
