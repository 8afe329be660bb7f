package model

import "time"

// Job is a volunteer position offered by an organization, optionally for a
// specific event.
type Job struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	EventID        string    `json:"event_id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Category       string    `json:"category"`
	PostedAt       time.Time `json:"date_posted"`
	Deadline       time.Time `json:"deadline"`
	Status         string    `json:"status"`
}

// Job statuses.
const (
	JobAvailable   = "available"
	JobUnavailable = "unavailable"
)

// EvaluateJob returns the status a job should have at now and whether it
// differs from the stored one. Jobs only move from available to unavailable.
func EvaluateJob(job Job, now time.Time) (string, bool) {
	if job.Status == JobAvailable && !now.Before(job.Deadline) {
		return JobUnavailable, true
	}
	return job.Status, false
}
