package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/shramba/internal/model"
)

const jobColumns = `id, organization_id, event_id, title, description, location, category, posted_at, deadline, status`

// CreateJob inserts a job.
func CreateJob(ctx context.Context, db Querier, j *model.Job) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.OrganizationID, nullString(j.EventID), j.Title, nullString(j.Description),
		nullString(j.Location), j.Category, utc(j.PostedAt), utc(j.Deadline), j.Status,
	)
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID, or nil if it does not exist.
func GetJob(ctx context.Context, db Querier, id string) (*model.Job, error) {
	jobs, err := queryJobs(ctx, db, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// JobFilter narrows ListJobs. Empty fields match everything.
type JobFilter struct {
	OrganizationID string
	EventID        string
	Status         string
}

// ListJobs returns matching jobs, most recently posted first. The status
// filter applies to the stored status.
func ListJobs(ctx context.Context, db Querier, f JobFilter) ([]model.Job, error) {
	var where []string
	var args []any
	if f.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, f.EventID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY posted_at DESC, id`

	jobs, err := queryJobs(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// UpdateJobStatus persists a job's status.
func UpdateJobStatus(ctx context.Context, db Querier, id, status string) error {
	_, err := db.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating job status: %w", err)
	}
	return nil
}

func queryJobs(ctx context.Context, db Querier, query string, args ...any) ([]model.Job, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var eventID, description, location sql.NullString
		if err := rows.Scan(&j.ID, &j.OrganizationID, &eventID, &j.Title, &description, &location,
			&j.Category, &j.PostedAt, &j.Deadline, &j.Status); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.EventID = eventID.String
		j.Description = description.String
		j.Location = location.String
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
