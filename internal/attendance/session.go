package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultGracePeriod is applied to new sessions when no grace is configured.
const DefaultGracePeriod = 5 * time.Minute

// ErrInvalidSession is returned by Session.Validate.
var ErrInvalidSession = errors.New("invalid session")

// SessionType categorizes a study session or shift.
type SessionType string

const (
	SessionRegular        SessionType = "regular"
	SessionShortCourse    SessionType = "short_course"
	SessionSummerCourse   SessionType = "summer_course"
	SessionIntensive      SessionType = "intensive"
	SessionWorkshop       SessionType = "workshop"
	SessionSeminar        SessionType = "seminar"
	SessionSpecialProgram SessionType = "special_program"
)

var sessionTypes = map[SessionType]bool{
	SessionRegular:        true,
	SessionShortCourse:    true,
	SessionSummerCourse:   true,
	SessionIntensive:      true,
	SessionWorkshop:       true,
	SessionSeminar:        true,
	SessionSpecialProgram: true,
}

// Session is a scheduled shift with arrival and departure boundaries.
type Session struct {
	ID            string
	Name          string
	Description   string
	Type          SessionType
	Start         *TimeOfDay
	End           *TimeOfDay
	CheckInGrace  time.Duration
	CheckOutGrace time.Duration
}

// NewSession creates a regular session with the default grace periods.
func NewSession(id, name string, start, end TimeOfDay) *Session {
	return &Session{
		ID:            id,
		Name:          name,
		Type:          SessionRegular,
		Start:         start.Ptr(),
		End:           end.Ptr(),
		CheckInGrace:  DefaultGracePeriod,
		CheckOutGrace: DefaultGracePeriod,
	}
}

// Validate checks the session's invariants.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSession)
	}
	if s.Type != "" && !sessionTypes[s.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSession, s.Type)
	}
	if s.Start != nil && !s.Start.Valid() {
		return fmt.Errorf("%w: start %w", ErrInvalidSession, ErrInvalidTimeOfDay)
	}
	if s.End != nil && !s.End.Valid() {
		return fmt.Errorf("%w: end %w", ErrInvalidSession, ErrInvalidTimeOfDay)
	}
	if s.CheckInGrace < 0 || s.CheckOutGrace < 0 {
		return fmt.Errorf("%w: grace periods must not be negative", ErrInvalidSession)
	}
	return nil
}

// ArrivalWindow returns the check-in side of the session.
func (s *Session) ArrivalWindow() SessionWindow {
	return SessionWindow{Boundary: s.Start, Grace: s.CheckInGrace, Kind: Arrival}
}

// DepartureWindow returns the check-out side of the session.
func (s *Session) DepartureWindow() SessionWindow {
	return SessionWindow{Boundary: s.End, Grace: s.CheckOutGrace, Kind: Departure}
}
