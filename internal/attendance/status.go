// Package attendance classifies check-in and check-out events against
// scheduled sessions and keeps the per-subject check-in/check-out toggle.
package attendance

// Status is the punctuality classification of a check-in or check-out.
type Status string

const (
	StatusEarly     Status = "early"
	StatusOnTime    Status = "on_time"
	StatusLate      Status = "late"
	StatusUndefined Status = "undefined" // no boundary configured
)

// BoundaryKind tells which side of a session a boundary belongs to.
type BoundaryKind string

const (
	Arrival   BoundaryKind = "arrival"
	Departure BoundaryKind = "departure"
)

// RecordState is the lifecycle state of an attendance record.
type RecordState string

const (
	StateCheckedIn  RecordState = "checked_in"
	StateCheckedOut RecordState = "checked_out"
)

// Action describes what the tracker did with an event.
type Action string

const (
	ActionCheckedIn  Action = "checked_in"
	ActionCheckedOut Action = "checked_out"
	ActionSuppressed Action = "suppressed"
)
