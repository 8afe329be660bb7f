package model

import "fmt"

// Scope identifies the holder of a ledger: an organization's main stock or a
// single event's stock.
type Scope struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Scope kinds.
const (
	ScopeMain  = "main"
	ScopeEvent = "event"
)

// MainScope returns the main ledger scope of an organization.
func MainScope(organizationID string) Scope {
	return Scope{Kind: ScopeMain, ID: organizationID}
}

// EventScope returns the ledger scope of an event.
func EventScope(eventID string) Scope {
	return Scope{Kind: ScopeEvent, ID: eventID}
}

// Key is the lock key for the scope.
func (s Scope) Key() string {
	return s.Kind + ":" + s.ID
}

// Validate checks the scope kind and id.
func (s Scope) Validate() error {
	if s.Kind != ScopeMain && s.Kind != ScopeEvent {
		return InvalidInputf("unknown ledger kind %q", s.Kind)
	}
	if s.ID == "" {
		return InvalidInputf("%s ledger id required", s.Kind)
	}
	return nil
}

func (s Scope) String() string {
	return fmt.Sprintf("%s ledger %s", s.Kind, s.ID)
}
