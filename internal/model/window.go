package model

import "time"

// TimeWindow is the half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Validate requires Start to be before End.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return InvalidInputf("start and end time must be provided")
	}
	if !w.Start.Before(w.End) {
		return InvalidInputf("end time must be after start time")
	}
	return nil
}

// Overlaps reports whether two windows share any instant. Windows that only
// touch at a boundary do not overlap.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}
