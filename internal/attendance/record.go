package attendance

import (
	"context"
	"time"
)

// Record is one check-in/check-out cycle of a subject.
type Record struct {
	ID             string
	SubjectID      string
	SessionID      string // empty when the subject has no assigned session
	CheckIn        *time.Time
	CheckOut       *time.Time
	State          RecordState
	CheckInStatus  Status
	CheckOutStatus Status
}

// IsOpen reports whether the record still waits for a check-out.
func (r *Record) IsOpen() bool {
	return r.State == StateCheckedIn
}

// LastEventAt returns the most recent of check-in and check-out.
func (r *Record) LastEventAt() (time.Time, bool) {
	switch {
	case r.CheckOut != nil && (r.CheckIn == nil || r.CheckOut.After(*r.CheckIn)):
		return *r.CheckOut, true
	case r.CheckIn != nil:
		return *r.CheckIn, true
	}
	return time.Time{}, false
}

// Title renders "Name - check-in | check-out" in loc, with N/A for missing
// timestamps and "Unknown" for an empty name.
func (r *Record) Title(loc *time.Location, subjectName string) string {
	if subjectName == "" {
		subjectName = "Unknown"
	}
	return subjectName + " - " + formatStamp(r.CheckIn, loc) + " | " + formatStamp(r.CheckOut, loc)
}

func formatStamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "N/A"
	}
	if loc != nil {
		return t.In(loc).Format(time.DateTime)
	}
	return t.Format(time.DateTime)
}

// RecordFinder looks up attendance history.
type RecordFinder interface {
	// Latest returns the subject's most recent record by check-in time, or nil if none.
	Latest(ctx context.Context, subjectID string) (*Record, error)
}

// RecordWriter persists attendance records.
type RecordWriter interface {
	// Create stores a new record. Implementations assign ID when it is empty.
	Create(ctx context.Context, rec *Record) error
	// Update overwrites an existing record's check-out fields and state.
	Update(ctx context.Context, rec *Record) error
}

// Repository combines RecordFinder and RecordWriter.
type Repository interface {
	RecordFinder
	RecordWriter
}

// SessionProvider resolves scheduled sessions.
type SessionProvider interface {
	// SessionForSubject returns the subject's assigned session, or nil if none.
	SessionForSubject(ctx context.Context, subjectID string) (*Session, error)
	// Session returns a session by ID, or nil if it does not exist.
	Session(ctx context.Context, id string) (*Session, error)
}
