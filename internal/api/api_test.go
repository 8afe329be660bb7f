package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/catalog"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/events"
	"github.com/erazemk/shramba/internal/jobs"
	"github.com/erazemk/shramba/internal/ledger"
	"github.com/erazemk/shramba/internal/lock"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/schedule"
	"github.com/erazemk/shramba/internal/volunteer"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	locks := lock.New()
	m := metrics.New()

	ledgerSvc := ledger.NewService(database, locks, m, nil)
	jobSvc := jobs.NewService(database, m, nil)
	router := NewRouter(Services{
		Catalog:   catalog.NewService(database, nil),
		Ledger:    ledgerSvc,
		Events:    events.NewService(database, nil),
		Schedule:  schedule.NewService(database, locks, ledgerSvc, m, nil),
		Jobs:      jobSvc,
		Volunteer: volunteer.NewService(database, locks, jobSvc, nil),
	}, testJWTSecret, m, nil)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testJWTSecret, subject, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

// call performs a request and decodes a JSON response into out when given.
func call(t *testing.T, server *httptest.Server, method, path, tok string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func addFood(t *testing.T, server *httptest.Server, tok, name string) {
	t.Helper()
	status := call(t, server, "POST", "/api/catalog", tok, map[string]any{
		"food_name":       name,
		"category":        "Fruits",
		"unit":            model.UnitKilograms,
		"expiration_date": time.Now().Add(30 * 24 * time.Hour),
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("creating %s: expected 201, got %d", name, status)
	}
}

func line(name, qty string) map[string]any {
	return map[string]any{"food_name": name, "quantity": json.Number(qty)}
}

func TestHealthAndMetrics(t *testing.T) {
	server := setupTestServer(t)

	if status := call(t, server, "GET", "/healthz", "", nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", status)
	}

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "shramba_http_request_duration_seconds") {
		t.Error("expected request duration histogram in /metrics")
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := setupTestServer(t)

	if status := call(t, server, "GET", "/api/catalog", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", status)
	}
	if status := call(t, server, "GET", "/api/catalog", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", status)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	server := setupTestServer(t)
	person := token(t, "person-1", model.RoleIndividual)

	if status := call(t, server, "POST", "/api/inventory/receive", person, map[string]any{
		"items": []any{line("apple", "1")},
	}, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for an individual receiving stock, got %d", status)
	}
	if status := call(t, server, "POST", "/api/applications", person, map[string]any{"job_id": "x"}, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for an individual applying, got %d", status)
	}
}

func TestInventoryFlow(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	addFood(t, server, bank, "apple")

	var l model.Ledger
	status := call(t, server, "POST", "/api/inventory/receive", bank, map[string]any{
		"items": []any{line("apple", "10")},
	}, &l)
	if status != http.StatusOK {
		t.Fatalf("receive: expected 200, got %d", status)
	}
	if got, _ := l.Line("apple"); !got.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected 10 apples, got %s", got.Quantity)
	}

	var eb errorBody
	status = call(t, server, "POST", "/api/inventory/remove", bank, map[string]any{
		"items": []any{line("apple", "11")},
	}, &eb)
	if status != http.StatusConflict || eb.Kind != string(model.KindInsufficientStock) {
		t.Errorf("expected 409 insufficient_stock, got %d %+v", status, eb)
	}

	status = call(t, server, "POST", "/api/inventory/receive", bank, map[string]any{
		"items": []any{line("pear", "1")},
	}, &eb)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for an uncatalogued food, got %d", status)
	}

	var found model.StockLine
	if status := call(t, server, "GET", "/api/inventory/apple", bank, nil, &found); status != http.StatusOK {
		t.Fatalf("find: expected 200, got %d", status)
	}
	if !found.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected 10 apples, got %s", found.Quantity)
	}

	var public model.Ledger
	person := token(t, "person-1", model.RoleIndividual)
	if status := call(t, server, "GET", "/api/organizations/org-1/inventory", person, nil, &public); status != http.StatusOK {
		t.Fatalf("public inventory: expected 200, got %d", status)
	}
	if len(public.Lines) != 1 {
		t.Errorf("expected 1 public line, got %+v", public.Lines)
	}

	var adjusted model.Ledger
	status = call(t, server, "POST", "/api/inventory/adjust", bank, map[string]any{
		"changes": []any{map[string]any{"food_name": "apple", "delta": -4}},
	}, &adjusted)
	if status != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d", status)
	}
	if got, _ := adjusted.Line("apple"); !got.Quantity.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected 6 apples after adjust, got %s", got.Quantity)
	}

	var moves []model.StockMovement
	if status := call(t, server, "GET", "/api/movements", bank, nil, &moves); status != http.StatusOK {
		t.Fatalf("movements: expected 200, got %d", status)
	}
	if len(moves) != 2 || moves[0].Reason != model.MoveRemove || moves[1].Reason != model.MoveReceive {
		t.Errorf("expected remove then receive movements, got %+v", moves)
	}
}

func TestEventStockFlow(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	other := token(t, "org-2", model.RoleFoodbank)
	addFood(t, server, bank, "rice")
	call(t, server, "POST", "/api/inventory/receive", bank, map[string]any{"items": []any{line("rice", "20")}}, nil)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Hour)
	var e model.Event
	status := call(t, server, "POST", "/api/events", bank, map[string]any{
		"event_name": "market",
		"start_time": start,
		"end_time":   start.Add(4 * time.Hour),
	}, &e)
	if status != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d", status)
	}

	path := "/api/events/" + e.ID + "/inventory"
	if status := call(t, server, "POST", path, other, map[string]any{"items": []any{line("rice", "1")}}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 moving to another organization's event, got %d", status)
	}

	var el model.Ledger
	if status := call(t, server, "POST", path, bank, map[string]any{"items": []any{line("rice", "8")}}, &el); status != http.StatusOK {
		t.Fatalf("move to event: expected 200, got %d", status)
	}
	if got, _ := el.Line("rice"); !got.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected 8 rice at event, got %s", got.Quantity)
	}

	if status := call(t, server, "POST", path+"/consume", other, map[string]any{"items": []any{line("rice", "1")}}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 consuming another organization's event stock, got %d", status)
	}
	if status := call(t, server, "POST", path+"/consume", bank, map[string]any{"items": []any{line("rice", "3")}}, nil); status != http.StatusOK {
		t.Fatalf("consume: expected 200, got %d", status)
	}

	var returned struct {
		Returned []model.LineItem `json:"returned"`
	}
	if status := call(t, server, "POST", path+"/return", bank, nil, &returned); status != http.StatusOK {
		t.Fatalf("return: expected 200, got %d", status)
	}
	if len(returned.Returned) != 1 || !returned.Returned[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected 5 rice returned, got %+v", returned.Returned)
	}

	var main model.Ledger
	call(t, server, "GET", "/api/inventory", bank, nil, &main)
	if got, _ := main.Line("rice"); !got.Quantity.Equal(decimal.NewFromInt(17)) {
		t.Errorf("expected 17 rice in main, got %s", got.Quantity)
	}
}

func TestAppointmentFlow(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	alice := token(t, "alice", model.RoleIndividual)
	bob := token(t, "bob", model.RoleIndividual)
	addFood(t, server, bank, "milk")
	call(t, server, "POST", "/api/inventory/receive", bank, map[string]any{"items": []any{line("milk", "5")}}, nil)

	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Hour)
	book := func(tok string, from time.Time, qty string) (int, model.Appointment, errorBody) {
		var raw json.RawMessage
		status := call(t, server, "POST", "/api/appointments", tok, map[string]any{
			"organization_id": "org-1",
			"start_time":      from,
			"end_time":        from.Add(time.Hour),
			"items":           []any{line("milk", qty)},
		}, &raw)
		var a model.Appointment
		var eb errorBody
		json.Unmarshal(raw, &a)
		json.Unmarshal(raw, &eb)
		return status, a, eb
	}

	status, appt, _ := book(alice, start, "2")
	if status != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d", status)
	}
	if appt.Status != model.AppointmentScheduled {
		t.Errorf("expected scheduled, got %q", appt.Status)
	}

	if status, _, eb := book(bob, start.Add(30*time.Minute), "1"); status != http.StatusConflict || eb.Kind != string(model.KindSlotUnavailable) {
		t.Errorf("expected 409 slot_unavailable, got %d %+v", status, eb)
	}
	if status, _, eb := book(bob, start.Add(time.Hour), "4"); status != http.StatusConflict || eb.Kind != string(model.KindInsufficientStock) {
		t.Errorf("expected 409 insufficient_stock, got %d %+v", status, eb)
	}

	if status := call(t, server, "GET", "/api/appointments/"+appt.ID, bob, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for another requester, got %d", status)
	}

	var moved model.Appointment
	status = call(t, server, "PUT", "/api/appointments/"+appt.ID+"/reschedule", alice, map[string]any{
		"start_time": start.Add(3 * time.Hour),
		"end_time":   start.Add(4 * time.Hour),
	}, &moved)
	if status != http.StatusOK || moved.Status != model.AppointmentRescheduled {
		t.Fatalf("reschedule: got %d %+v", status, moved)
	}

	var picked model.Appointment
	status = call(t, server, "PUT", "/api/appointments/"+appt.ID+"/status", bank, map[string]any{"status": "picked"}, &picked)
	if status != http.StatusOK || picked.Status != model.AppointmentPicked {
		t.Fatalf("status: got %d %+v", status, picked)
	}

	var list []model.Appointment
	call(t, server, "GET", "/api/appointments?status=picked", bank, nil, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 picked appointment, got %d", len(list))
	}
	call(t, server, "GET", "/api/appointments", bob, nil, &list)
	if len(list) != 0 {
		t.Errorf("expected no appointments for bob, got %d", len(list))
	}
}

func TestVolunteerFlow(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	other := token(t, "org-2", model.RoleFoodbank)
	vol := token(t, "vol-1", model.RoleVolunteer)

	var job model.Job
	status := call(t, server, "POST", "/api/jobs", bank, map[string]any{
		"title":    "sorting",
		"category": "warehouse",
		"deadline": time.Now().Add(7 * 24 * time.Hour),
	}, &job)
	if status != http.StatusCreated || job.Status != model.JobAvailable {
		t.Fatalf("create job: got %d %+v", status, job)
	}

	var app model.Application
	if status := call(t, server, "POST", "/api/applications", vol, map[string]any{"job_id": job.ID}, &app); status != http.StatusCreated {
		t.Fatalf("apply: expected 201, got %d", status)
	}
	if status := call(t, server, "POST", "/api/applications", vol, map[string]any{"job_id": job.ID}, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate application, got %d", status)
	}

	var apps []model.Application
	call(t, server, "GET", "/api/applications?status=pending", bank, nil, &apps)
	if len(apps) != 1 {
		t.Fatalf("expected 1 pending application, got %d", len(apps))
	}

	decide := "/api/applications/" + app.ID + "/decision"
	if status := call(t, server, "PUT", decide, other, map[string]any{"status": "approved"}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 deciding another organization's application, got %d", status)
	}

	hours := map[string]any{
		"organization_name": "Food Bank",
		"start_time":        time.Date(2025, 5, 3, 9, 0, 0, 0, time.UTC),
		"end_time":          time.Date(2025, 5, 3, 13, 0, 0, 0, time.UTC),
	}
	if status := call(t, server, "POST", "/api/applications/"+app.ID+"/activities", bank, hours, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 logging activity on a pending application, got %d", status)
	}

	if status := call(t, server, "PUT", decide, bank, map[string]any{"status": "approved"}, &app); status != http.StatusOK {
		t.Fatalf("decide: expected 200, got %d", status)
	}
	if status := call(t, server, "PUT", decide, bank, map[string]any{"status": "rejected"}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for a second decision, got %d", status)
	}

	if status := call(t, server, "POST", "/api/applications/"+app.ID+"/activities", bank, hours, nil); status != http.StatusCreated {
		t.Fatalf("log activity: expected 201, got %d", status)
	}
	var acts []model.ActivityRecord
	call(t, server, "GET", "/api/activities", vol, nil, &acts)
	if len(acts) != 1 || acts[0].Category != model.CategoryFoodbank {
		t.Errorf("expected one foodbank activity, got %+v", acts)
	}

	if status := call(t, server, "DELETE", "/api/applications/"+app.ID, vol, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 withdrawing an approved application, got %d", status)
	}
}

func TestUpdateEvent(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	other := token(t, "org-2", model.RoleFoodbank)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Hour)
	var e model.Event
	if status := call(t, server, "POST", "/api/events", bank, map[string]any{
		"event_name": "market",
		"start_time": start,
		"end_time":   start.Add(4 * time.Hour),
	}, &e); status != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d", status)
	}

	body := map[string]any{
		"event_name": "evening market",
		"location":   "Square",
		"start_time": start.Add(6 * time.Hour),
		"end_time":   start.Add(9 * time.Hour),
	}
	path := "/api/events/" + e.ID
	if status := call(t, server, "PUT", path, other, body, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 updating another organization's event, got %d", status)
	}

	var updated model.Event
	if status := call(t, server, "PUT", path, bank, body, &updated); status != http.StatusOK {
		t.Fatalf("update event: expected 200, got %d", status)
	}
	if updated.Name != "evening market" || updated.Location != "Square" || !updated.Window.Start.Equal(start.Add(6*time.Hour)) {
		t.Errorf("unexpected updated event %+v", updated)
	}
	if updated.Status != model.EventScheduled {
		t.Errorf("expected status kept, got %q", updated.Status)
	}

	body["end_time"] = start
	if status := call(t, server, "PUT", path, bank, body, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for a backwards window, got %d", status)
	}
	if status := call(t, server, "PUT", "/api/events/nope", bank, body, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for a missing event, got %d", status)
	}
}

func TestUnstorableQuantityIsBadRequest(t *testing.T) {
	server := setupTestServer(t)
	bank := token(t, "org-1", model.RoleFoodbank)
	addFood(t, server, bank, "rice")

	for _, q := range []string{"1e-400", "0.0000001"} {
		status := call(t, server, "POST", "/api/inventory/receive", bank, map[string]any{"items": []any{line("rice", q)}}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("receive %s: expected 400, got %d", q, status)
		}
	}
}
