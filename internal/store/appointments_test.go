package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/model"
	"github.com/shopspring/decimal"
)

func testAppointment(id, org, requester string, start time.Time) *model.Appointment {
	return &model.Appointment{
		ID:             id,
		RequesterID:    requester,
		OrganizationID: org,
		Window:         model.TimeWindow{Start: start, End: start.Add(time.Hour)},
		Items: []model.LineItem{
			{FoodName: "rice", Quantity: decimal.NewFromInt(2)},
			{FoodName: "apple", Quantity: decimal.RequireFromString("1.5")},
		},
		Status:      model.AppointmentScheduled,
		CreatedAt:   start.Add(-time.Hour),
		LastUpdated: start.Add(-time.Hour),
	}
}

func TestCreateAndGetAppointment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	if err := CreateAppointment(ctx, database, testAppointment("a1", "org1", "u1", start)); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	got, err := GetAppointment(ctx, database, "a1")
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got == nil {
		t.Fatal("expected appointment")
	}
	if !got.Window.Start.Equal(start) || got.Status != model.AppointmentScheduled {
		t.Errorf("unexpected appointment %+v", got)
	}
	// Items keep request order.
	if len(got.Items) != 2 || got.Items[0].FoodName != "rice" || got.Items[1].FoodName != "apple" {
		t.Fatalf("unexpected items %+v", got.Items)
	}
	if !got.Items[1].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5 apples, got %s", got.Items[1].Quantity)
	}

	missing, _ := GetAppointment(ctx, database, "nope")
	if missing != nil {
		t.Error("expected nil for missing appointment")
	}
}

func TestListAppointmentsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	CreateAppointment(ctx, database, testAppointment("a1", "org1", "u1", start.Add(2*time.Hour)))
	CreateAppointment(ctx, database, testAppointment("a2", "org1", "u2", start))
	CreateAppointment(ctx, database, testAppointment("a3", "org2", "u1", start))
	UpdateAppointmentStatus(ctx, database, "a1", model.AppointmentCancelled, start)

	byOrg, _ := ListAppointments(ctx, database, AppointmentFilter{OrganizationID: "org1"})
	if len(byOrg) != 2 || byOrg[0].ID != "a2" {
		t.Fatalf("expected a2 then a1 for org1, got %+v", byOrg)
	}
	if len(byOrg[0].Items) != 2 {
		t.Errorf("expected items to be loaded, got %+v", byOrg[0].Items)
	}

	cancelled, _ := ListAppointments(ctx, database, AppointmentFilter{OrganizationID: "org1", Status: model.AppointmentCancelled})
	if len(cancelled) != 1 || cancelled[0].ID != "a1" {
		t.Errorf("expected only a1 cancelled, got %+v", cancelled)
	}

	byRequester, _ := ListAppointments(ctx, database, AppointmentFilter{RequesterID: "u1"})
	if len(byRequester) != 2 {
		t.Errorf("expected 2 appointments for u1, got %d", len(byRequester))
	}

	holders, _ := ListSlotHolders(ctx, database, "org1")
	if len(holders) != 1 || holders[0].ID != "a2" {
		t.Errorf("expected a2 as the only slot holder, got %+v", holders)
	}
}

func TestUpdateAppointmentWindow(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	CreateAppointment(ctx, database, testAppointment("a1", "org1", "u1", start))

	moved := model.TimeWindow{Start: start.Add(3 * time.Hour), End: start.Add(4 * time.Hour)}
	if err := UpdateAppointmentWindow(ctx, database, "a1", moved, model.AppointmentRescheduled, start); err != nil {
		t.Fatalf("UpdateAppointmentWindow: %v", err)
	}

	got, _ := GetAppointment(ctx, database, "a1")
	if !got.Window.Start.Equal(moved.Start) || !got.Window.End.Equal(moved.End) {
		t.Errorf("expected window %v, got %v", moved, got.Window)
	}
	if got.Status != model.AppointmentRescheduled {
		t.Errorf("expected rescheduled, got %q", got.Status)
	}
	if !got.LastUpdated.Equal(start) {
		t.Errorf("expected last updated %v, got %v", start, got.LastUpdated)
	}
}
