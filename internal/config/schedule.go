package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

//go:embed schedule.yaml
var scheduleYAML []byte

// ScheduleConfig is a list of sessions that can be imported in bulk.
type ScheduleConfig struct {
	Timezone string         `yaml:"timezone"`
	Sessions []SessionEntry `yaml:"sessions"`
}

// SessionEntry is one session as written in a schedule file. Times accept
// "HH:MM" or fractional hours (9.5 = 09:30); grace periods are minutes and
// default to 5 when omitted.
type SessionEntry struct {
	ID                   string                `yaml:"id"`
	Name                 string                `yaml:"name"`
	Description          string                `yaml:"description"`
	Type                 string                `yaml:"type"`
	Start                *attendance.TimeOfDay `yaml:"start"`
	End                  *attendance.TimeOfDay `yaml:"end"`
	CheckInGraceMinutes  *int                  `yaml:"check_in_grace"`
	CheckOutGraceMinutes *int                  `yaml:"check_out_grace"`
}

func graceMinutes(m *int) time.Duration {
	if m == nil {
		return attendance.DefaultGracePeriod
	}
	return time.Duration(*m) * time.Minute
}

// Session converts the entry to a validated attendance session.
func (s SessionEntry) Session() (*attendance.Session, error) {
	session := &attendance.Session{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		Type:          attendance.SessionType(s.Type),
		Start:         s.Start,
		End:           s.End,
		CheckInGrace:  graceMinutes(s.CheckInGraceMinutes),
		CheckOutGrace: graceMinutes(s.CheckOutGraceMinutes),
	}
	if session.Type == "" {
		session.Type = attendance.SessionRegular
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: id is required", attendance.ErrInvalidSession)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}
	return session, nil
}

// BuildSessions converts every entry, failing on the first invalid one.
func (c *ScheduleConfig) BuildSessions() ([]*attendance.Session, error) {
	sessions := make([]*attendance.Session, 0, len(c.Sessions))
	for _, entry := range c.Sessions {
		s, err := entry.Session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func parseSchedule(data []byte) (*ScheduleConfig, error) {
	var schedule ScheduleConfig
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	if schedule.Timezone == "" {
		schedule.Timezone = attendance.DefaultTimezone
	}
	if _, err := time.LoadLocation(schedule.Timezone); err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}

	seen := make(map[string]bool, len(schedule.Sessions))
	for _, s := range schedule.Sessions {
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &schedule, nil
}

// LoadSchedule reads a schedule file. An empty path returns the built-in
// example schedule.
func LoadSchedule(path string) (*ScheduleConfig, error) {
	if path == "" {
		return parseSchedule(scheduleYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return parseSchedule(data)
}
