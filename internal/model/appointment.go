package model

import "time"

// Appointment is a pickup slot whose items were deducted from the
// organization's main ledger when it was created.
type Appointment struct {
	ID             string     `json:"id"`
	RequesterID    string     `json:"requester_id"`
	OrganizationID string     `json:"organization_id"`
	Window         TimeWindow `json:"window"`
	Items          []LineItem `json:"items"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdated    time.Time  `json:"last_updated"`
}

// Appointment statuses.
const (
	AppointmentScheduled   = "scheduled"
	AppointmentRescheduled = "rescheduled"
	AppointmentPicked      = "picked"
	AppointmentCancelled   = "cancelled"
)

// ValidAppointmentStatus reports whether s is a known appointment status.
func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentScheduled, AppointmentRescheduled, AppointmentPicked, AppointmentCancelled:
		return true
	}
	return false
}

// HoldsSlot reports whether the appointment blocks its window for other
// appointments of the same organization.
func (a *Appointment) HoldsSlot() bool {
	return a.Status != AppointmentCancelled
}
