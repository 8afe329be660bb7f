package model

import "time"

// Event is a distribution run by an organization. Stock moved to an event is
// held in the event's own ledger until it is used or returned.
type Event struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"event_name"`
	Description    string     `json:"description,omitempty"`
	Location       string     `json:"location,omitempty"`
	Window         TimeWindow `json:"window"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdated    time.Time  `json:"last_updated"`
}

// Event statuses.
const (
	EventScheduled = "scheduled"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s string) bool {
	switch s {
	case EventScheduled, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}
