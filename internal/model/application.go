package model

import "time"

// Application is a volunteer's request to take a job, either at an
// organization or at one of its events.
type Application struct {
	ID             string    `json:"id"`
	VolunteerID    string    `json:"volunteer_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	EventID        string    `json:"event_id,omitempty"`
	JobID          string    `json:"job_id"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	AppliedAt      time.Time `json:"applied_at"`
}

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Application categories.
const (
	CategoryFoodbank = "Foodbank"
	CategoryEvent    = "Event"
)

// CanTransition reports whether an application may move from one status to
// another. Approved and rejected are terminal.
func CanTransition(from, to string) bool {
	return from == ApplicationPending && (to == ApplicationApproved || to == ApplicationRejected)
}

// ActivityRecord is one logged work session of an approved application.
type ActivityRecord struct {
	ID               string     `json:"id"`
	ApplicationID    string     `json:"application_id"`
	DateWorked       time.Time  `json:"date_worked"`
	OrganizationName string     `json:"organization_name"`
	Category         string     `json:"category"`
	WorkingHours     TimeWindow `json:"working_hours"`
	RecordedAt       time.Time  `json:"recorded_at"`
}
