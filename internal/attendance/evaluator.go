package attendance

import (
	"fmt"
	"time"
)

// DefaultTimezone is the civil timezone session boundaries are expressed in.
const DefaultTimezone = "Asia/Phnom_Penh"

// SessionWindow is one side of a session: a boundary time, its grace period
// and whether it is an arrival or departure. A nil Boundary means unset.
type SessionWindow struct {
	Boundary *TimeOfDay
	Grace    time.Duration
	Kind     BoundaryKind
}

// Evaluator classifies events in a fixed civil timezone.
type Evaluator struct {
	loc *time.Location
}

// NewEvaluator creates an evaluator for loc. A nil loc means time.Local.
func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{loc: loc}
}

// NewEvaluatorForZone loads an IANA zone name (empty means DefaultTimezone).
func NewEvaluatorForZone(name string) (*Evaluator, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return NewEvaluator(loc), nil
}

// Location returns the evaluator's timezone.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Expected returns the boundary instant on the event's local calendar date.
func (e *Evaluator) Expected(eventTime time.Time, boundary TimeOfDay) time.Time {
	local := eventTime.In(e.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, boundary.Hour(), boundary.Minute(), 0, 0, e.loc)
}

// Classify labels an event against a session window.
//
// Arrival: at or before the boundary is on time, after boundary+grace is
// late, in between is early. Departure: at or before boundary-grace is
// early, at or after the boundary is on time, in between is late.
// An unset boundary yields StatusUndefined.
func (e *Evaluator) Classify(eventTime time.Time, w SessionWindow) Status {
	if w.Boundary == nil || !w.Boundary.Valid() {
		return StatusUndefined
	}

	expected := e.Expected(eventTime, *w.Boundary)
	grace := max(w.Grace, 0)

	switch w.Kind {
	case Arrival:
		switch {
		case !eventTime.After(expected):
			return StatusOnTime
		case eventTime.After(expected.Add(grace)):
			return StatusLate
		default:
			return StatusEarly
		}
	case Departure:
		switch {
		case !eventTime.After(expected.Add(-grace)):
			return StatusEarly
		case !eventTime.Before(expected):
			return StatusOnTime
		default:
			return StatusLate
		}
	}
	return StatusUndefined
}
