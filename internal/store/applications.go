package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/shramba/internal/model"
)

const applicationColumns = `id, volunteer_id, organization_id, event_id, job_id, category, status, applied_at`

// CreateApplication inserts an application. A second application by the same
// volunteer for the same job fails with a unique violation.
func CreateApplication(ctx context.Context, db Querier, a *model.Application) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.VolunteerID, nullString(a.OrganizationID), nullString(a.EventID),
		a.JobID, a.Category, a.Status, utc(a.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}
	return nil
}

// GetApplication returns an application by ID, or nil if it does not exist.
func GetApplication(ctx context.Context, db Querier, id string) (*model.Application, error) {
	apps, err := queryApplications(ctx, db,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting application: %w", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

// ApplicationFilter narrows ListApplications. Empty fields match everything.
type ApplicationFilter struct {
	VolunteerID    string
	OrganizationID string
	EventID        string
	JobID          string
	Status         string
}

// ListApplications returns matching applications, oldest first.
func ListApplications(ctx context.Context, db Querier, f ApplicationFilter) ([]model.Application, error) {
	var where []string
	var args []any
	for _, c := range []struct{ col, val string }{
		{"volunteer_id", f.VolunteerID},
		{"organization_id", f.OrganizationID},
		{"event_id", f.EventID},
		{"job_id", f.JobID},
		{"status", f.Status},
	} {
		if c.val != "" {
			where = append(where, c.col+" = ?")
			args = append(args, c.val)
		}
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY applied_at, id`

	apps, err := queryApplications(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return apps, nil
}

// UpdateApplicationStatus persists an application's status.
func UpdateApplicationStatus(ctx context.Context, db Querier, id, status string) error {
	_, err := db.ExecContext(ctx, `UPDATE applications SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating application status: %w", err)
	}
	return nil
}

// DeleteApplication removes an application.
func DeleteApplication(ctx context.Context, db Querier, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting application: %w", err)
	}
	return nil
}

func queryApplications(ctx context.Context, db Querier, query string, args ...any) ([]model.Application, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		var orgID, eventID sql.NullString
		if err := rows.Scan(&a.ID, &a.VolunteerID, &orgID, &eventID, &a.JobID, &a.Category, &a.Status, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		a.OrganizationID = orgID.String
		a.EventID = eventID.String
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// CreateActivity appends an activity record.
func CreateActivity(ctx context.Context, db Querier, r *model.ActivityRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity_records
		 (id, application_id, date_worked, organization_name, category, start_time, end_time, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ApplicationID, utc(r.DateWorked), r.OrganizationName, r.Category,
		utc(r.WorkingHours.Start), utc(r.WorkingHours.End), utc(r.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("creating activity record: %w", err)
	}
	return nil
}

// ListActivitiesByVolunteer returns every activity logged against the
// volunteer's applications, most recent work first.
func ListActivitiesByVolunteer(ctx context.Context, db Querier, volunteerID string) ([]model.ActivityRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.application_id, r.date_worked, r.organization_name, r.category,
		        r.start_time, r.end_time, r.recorded_at
		 FROM activity_records r
		 JOIN applications a ON a.id = r.application_id
		 WHERE a.volunteer_id = ?
		 ORDER BY r.date_worked DESC, r.start_time DESC`, volunteerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var records []model.ActivityRecord
	for rows.Next() {
		var r model.ActivityRecord
		if err := rows.Scan(&r.ID, &r.ApplicationID, &r.DateWorked, &r.OrganizationName, &r.Category,
			&r.WorkingHours.Start, &r.WorkingHours.End, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
