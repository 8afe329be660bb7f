package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

const eventColumns = `id, organization_id, name, description, location, start_time, end_time, status, created_at, last_updated`

// CreateEvent inserts an event.
func CreateEvent(ctx context.Context, db Querier, e *model.Event) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizationID, e.Name, nullString(e.Description), nullString(e.Location),
		utc(e.Window.Start), utc(e.Window.End), e.Status, utc(e.CreatedAt), utc(e.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// GetEvent returns an event by ID, or nil if it does not exist.
func GetEvent(ctx context.Context, db Querier, id string) (*model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting event: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// ListEvents returns events ordered by start time, optionally limited to one
// organization.
func ListEvents(ctx context.Context, db Querier, organizationID string) ([]model.Event, error) {
	var rows *sql.Rows
	var err error

	if organizationID != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE organization_id = ? ORDER BY start_time`, organizationID,
		)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// UpdateEvent replaces an event's details and window. Organization, status
// and creation time are kept. It reports false if the event does not exist.
func UpdateEvent(ctx context.Context, db Querier, e *model.Event) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE events SET name = ?, description = ?, location = ?, start_time = ?, end_time = ?, last_updated = ?
		 WHERE id = ?`,
		e.Name, nullString(e.Description), nullString(e.Location),
		utc(e.Window.Start), utc(e.Window.End), utc(e.LastUpdated), e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("updating event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated event: %w", err)
	}
	return n > 0, nil
}

// UpdateEventStatus sets an event's status. It reports false if the event
// does not exist.
func UpdateEventStatus(ctx context.Context, db Querier, id, status string, now time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE events SET status = ?, last_updated = ? WHERE id = ?`,
		status, utc(now), id,
	)
	if err != nil {
		return false, fmt.Errorf("updating event status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated event: %w", err)
	}
	return n > 0, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		var description, location sql.NullString
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Name, &description, &location,
			&e.Window.Start, &e.Window.End, &e.Status, &e.CreatedAt, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Description = description.String
		e.Location = location.String
		events = append(events, e)
	}
	return events, rows.Err()
}
