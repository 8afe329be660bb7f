package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

const appointmentColumns = `id, requester_id, organization_id, start_time, end_time, description, status, created_at, last_updated`

// CreateAppointment inserts an appointment and its items in request order.
func CreateAppointment(ctx context.Context, db Querier, a *model.Appointment) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RequesterID, a.OrganizationID, utc(a.Window.Start), utc(a.Window.End),
		nullString(a.Description), a.Status, utc(a.CreatedAt), utc(a.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}

	for i, it := range a.Items {
		_, err := db.ExecContext(ctx,
			`INSERT INTO appointment_items (appointment_id, position, food_name, quantity) VALUES (?, ?, ?, ?)`,
			a.ID, i, it.FoodName, it.Quantity.String(),
		)
		if err != nil {
			return fmt.Errorf("creating appointment item: %w", err)
		}
	}
	return nil
}

// GetAppointment returns an appointment with its items, or nil if it does
// not exist.
func GetAppointment(ctx context.Context, db Querier, id string) (*model.Appointment, error) {
	appts, err := queryAppointments(ctx, db,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting appointment: %w", err)
	}
	if len(appts) == 0 {
		return nil, nil
	}
	if err := loadAppointmentItems(ctx, db, appts); err != nil {
		return nil, err
	}
	return &appts[0], nil
}

// AppointmentFilter narrows ListAppointments. Empty fields match everything.
type AppointmentFilter struct {
	OrganizationID string
	RequesterID    string
	Status         string
}

// ListAppointments returns matching appointments with their items, ordered
// by start time.
func ListAppointments(ctx context.Context, db Querier, f AppointmentFilter) ([]model.Appointment, error) {
	var where []string
	var args []any
	if f.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time, id`

	appts, err := queryAppointments(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	if err := loadAppointmentItems(ctx, db, appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// ListSlotHolders returns the appointments of an organization that still
// occupy their window, without items.
func ListSlotHolders(ctx context.Context, db Querier, organizationID string) ([]model.Appointment, error) {
	appts, err := queryAppointments(ctx, db,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE organization_id = ? AND status != ?
		 ORDER BY start_time`,
		organizationID, model.AppointmentCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("listing slot holders: %w", err)
	}
	return appts, nil
}

// UpdateAppointmentWindow moves an appointment to a new window and sets its
// status.
func UpdateAppointmentWindow(ctx context.Context, db Querier, id string, w model.TimeWindow, status string, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE appointments SET start_time = ?, end_time = ?, status = ?, last_updated = ? WHERE id = ?`,
		utc(w.Start), utc(w.End), status, utc(now), id,
	)
	if err != nil {
		return fmt.Errorf("updating appointment window: %w", err)
	}
	return nil
}

// UpdateAppointmentStatus sets an appointment's status. It reports false if
// the appointment does not exist.
func UpdateAppointmentStatus(ctx context.Context, db Querier, id, status string, now time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, last_updated = ? WHERE id = ?`,
		status, utc(now), id,
	)
	if err != nil {
		return false, fmt.Errorf("updating appointment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated appointment: %w", err)
	}
	return n > 0, nil
}

func queryAppointments(ctx context.Context, db Querier, query string, args ...any) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var description sql.NullString
		if err := rows.Scan(&a.ID, &a.RequesterID, &a.OrganizationID, &a.Window.Start, &a.Window.End,
			&description, &a.Status, &a.CreatedAt, &a.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		a.Description = description.String
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// loadAppointmentItems fills in the items of each appointment. The rows are
// fully read before the next query so a single connection is never asked to
// run two statements at once.
func loadAppointmentItems(ctx context.Context, db Querier, appts []model.Appointment) error {
	for i := range appts {
		rows, err := db.QueryContext(ctx,
			`SELECT food_name, quantity FROM appointment_items WHERE appointment_id = ? ORDER BY position`,
			appts[i].ID,
		)
		if err != nil {
			return fmt.Errorf("listing appointment items: %w", err)
		}

		appts[i].Items = []model.LineItem{}
		for rows.Next() {
			var it model.LineItem
			if err := rows.Scan(&it.FoodName, &it.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("scanning appointment item: %w", err)
			}
			appts[i].Items = append(appts[i].Items, it)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("reading appointment items: %w", err)
		}
	}
	return nil
}
