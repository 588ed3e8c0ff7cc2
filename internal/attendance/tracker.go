package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultCooldown is the minimum gap between two accepted events of one subject.
const DefaultCooldown = time.Minute

// Outcome reports what the tracker did with one recognized event.
type Outcome struct {
	Action  Action
	Record  *Record  // the created or updated record; the blocking record when suppressed
	Session *Session // the session used for classification, nil when unassigned
}

// Tracker drives the check-in/check-out toggle for each subject.
type Tracker struct {
	records   Repository
	sessions  SessionProvider
	evaluator *Evaluator
	cooldown  time.Duration
	locks     *subjectLocks
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithCooldown overrides DefaultCooldown. Zero disables debouncing.
func WithCooldown(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.cooldown = max(d, 0)
	}
}

// NewTracker creates a tracker over the given stores.
func NewTracker(records Repository, sessions SessionProvider, evaluator *Evaluator, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		records:   records,
		sessions:  sessions,
		evaluator: evaluator,
		cooldown:  DefaultCooldown,
		locks:     newSubjectLocks(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cooldown returns the configured debounce window.
func (t *Tracker) Cooldown() time.Duration {
	return t.cooldown
}

// Evaluator returns the tracker's classifier.
func (t *Tracker) Evaluator() *Evaluator {
	return t.evaluator
}

// Record applies one recognized event for subjectID at time at.
//
// Events within the cooldown of the latest record's last check-in or
// check-out are suppressed. Otherwise a subject without an open record is
// checked in on a new record, and a subject with an open record is checked
// out on that same record. Calls for the same subject are serialized.
func (t *Tracker) Record(ctx context.Context, subjectID string, at time.Time) (*Outcome, error) {
	if subjectID == "" {
		return nil, errors.New("subject ID is required")
	}

	unlock := t.locks.lock(subjectID)
	defer unlock()

	latest, err := t.records.Latest(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("fetching latest record for %s: %w", subjectID, err)
	}

	if latest != nil && t.withinCooldown(latest, at) {
		return &Outcome{Action: ActionSuppressed, Record: latest}, nil
	}

	if latest == nil || !latest.IsOpen() {
		return t.checkIn(ctx, subjectID, at)
	}
	return t.checkOut(ctx, latest, at)
}

// withinCooldown reports whether rec saw an event less than cooldown before at.
func (t *Tracker) withinCooldown(rec *Record, at time.Time) bool {
	if t.cooldown == 0 {
		return false
	}
	since := at.Add(-t.cooldown)
	for _, ts := range []*time.Time{rec.CheckIn, rec.CheckOut} {
		if ts != nil && ts.After(since) {
			return true
		}
	}
	return false
}

func (t *Tracker) checkIn(ctx context.Context, subjectID string, at time.Time) (*Outcome, error) {
	session, err := t.sessions.SessionForSubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("resolving session for %s: %w", subjectID, err)
	}

	checkIn := at
	rec := &Record{
		SubjectID:     subjectID,
		CheckIn:       &checkIn,
		State:         StateCheckedIn,
		CheckInStatus: StatusUndefined,
	}
	if session != nil {
		rec.SessionID = session.ID
		rec.CheckInStatus = t.evaluator.Classify(at, session.ArrivalWindow())
	}

	if err := t.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating check-in for %s: %w", subjectID, err)
	}
	return &Outcome{Action: ActionCheckedIn, Record: rec, Session: session}, nil
}

func (t *Tracker) checkOut(ctx context.Context, rec *Record, at time.Time) (*Outcome, error) {
	var session *Session
	if rec.SessionID != "" {
		var err error
		session, err = t.sessions.Session(ctx, rec.SessionID)
		if err != nil {
			return nil, fmt.Errorf("resolving session %s: %w", rec.SessionID, err)
		}
	}

	checkOut := at
	rec.CheckOut = &checkOut
	rec.State = StateCheckedOut
	rec.CheckOutStatus = StatusUndefined
	if session != nil {
		rec.CheckOutStatus = t.evaluator.Classify(at, session.DepartureWindow())
	}

	if err := t.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording check-out for %s: %w", rec.SubjectID, err)
	}
	return &Outcome{Action: ActionCheckedOut, Record: rec, Session: session}, nil
}
