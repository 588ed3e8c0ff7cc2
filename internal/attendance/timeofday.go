package attendance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTimeOfDay is returned for values outside 00:00-23:59.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

const minutesPerDay = 24 * 60

// TimeOfDay is a civil wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// FromHours converts a fractional hour value (9.5 = 09:30) to a TimeOfDay.
// Fractions of a minute are truncated.
func FromHours(h float64) (TimeOfDay, error) {
	if math.IsNaN(h) || h < 0 || h >= 24 {
		return 0, fmt.Errorf("%w: %v hours", ErrInvalidTimeOfDay, h)
	}
	hours := int(h)
	minutes := int((h - float64(hours)) * 60)
	return NewTimeOfDay(hours, minutes)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return NewTimeOfDay(hour, minute)
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Hours returns the fractional hour representation (09:30 = 9.5).
func (t TimeOfDay) Hours() float64 {
	return float64(t) / 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Ptr returns a pointer to a copy of t, for optional boundaries.
func (t TimeOfDay) Ptr() *TimeOfDay {
	return &t
}

// MarshalText encodes the value as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTimeOfDay, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts "HH:MM" or a fractional hour value such as "9.5".
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	var (
		v   TimeOfDay
		err error
	)
	if strings.Contains(s, ":") {
		v, err = ParseTimeOfDay(s)
	} else {
		var h float64
		h, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		v, err = FromHours(h)
	}
	if err != nil {
		return err
	}
	*t = v
	return nil
}
