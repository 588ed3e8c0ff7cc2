package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an event time against a session boundary",
	Long: `Classify a check-in or check-out time as early, on_time or late.

The boundary is either given directly with --boundary and --grace or taken
from a session of the schedule with --session.

Examples:
  # Arrival at 09:33 against a 09:30 start with 5 minutes grace
  face-attendance classify --at "2024-05-06 09:33" --boundary 09:30

  # Departure against the afternoon session of the schedule
  face-attendance classify --at "2024-05-06 17:20" --session afternoon --kind departure`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	addClassifyFlags(classifyCmd)
}

func addClassifyFlags(cmd *cobra.Command) {
	cmd.Flags().String("at", "", "Event time as \"2006-01-02 15:04[:05]\" in the attendance timezone or RFC3339 (default now)")
	cmd.Flags().String("boundary", "", "Boundary time of day as HH:MM or fractional hours (9.5)")
	cmd.Flags().Int("grace", 5, "Grace period in minutes")
	cmd.Flags().String("kind", string(attendance.Arrival), "Boundary kind: arrival or departure")
	cmd.Flags().String("session", "", "Use a session of the schedule instead of --boundary")
	cmd.Flags().String("schedule", "", "Schedule YAML file (default: built-in schedule)")
	cmd.Flags().Bool("json", false, "Output as JSON")
}

// ClassifyOutput is the JSON output of the classify command.
type ClassifyOutput struct {
	At       time.Time         `json:"at"`
	Expected time.Time         `json:"expected"`
	Kind     string            `json:"kind"`
	Grace    string            `json:"grace"`
	Boundary string            `json:"boundary"`
	Status   attendance.Status `json:"status"`
}

// parseLocalTime accepts RFC3339 or a local date time in loc.
func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.DateTime, "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

func resolveWindow(cmd *cobra.Command, kind attendance.BoundaryKind) (attendance.SessionWindow, error) {
	sessionID := mustGetString(cmd, "session")
	if sessionID == "" {
		boundaryValue := mustGetString(cmd, "boundary")
		if boundaryValue == "" {
			return attendance.SessionWindow{}, errors.New("either --boundary or --session is required")
		}
		var boundary attendance.TimeOfDay
		if err := boundary.UnmarshalText([]byte(boundaryValue)); err != nil {
			return attendance.SessionWindow{}, fmt.Errorf("invalid --boundary: %w", err)
		}
		grace := mustGetInt(cmd, "grace")
		if grace < 0 {
			return attendance.SessionWindow{}, errors.New("--grace must not be negative")
		}
		return attendance.SessionWindow{
			Boundary: boundary.Ptr(),
			Grace:    time.Duration(grace) * time.Minute,
			Kind:     kind,
		}, nil
	}

	schedule, err := config.LoadSchedule(mustGetString(cmd, "schedule"))
	if err != nil {
		return attendance.SessionWindow{}, err
	}
	sessions, err := schedule.BuildSessions()
	if err != nil {
		return attendance.SessionWindow{}, err
	}
	for _, s := range sessions {
		if s.ID != sessionID {
			continue
		}
		if kind == attendance.Departure {
			return s.DepartureWindow(), nil
		}
		return s.ArrivalWindow(), nil
	}
	return attendance.SessionWindow{}, fmt.Errorf("session %q not found in schedule", sessionID)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	evaluator, err := loadEvaluator(cfg)
	if err != nil {
		return err
	}
	loc := evaluator.Location()

	kind := attendance.BoundaryKind(mustGetString(cmd, "kind"))
	if kind != attendance.Arrival && kind != attendance.Departure {
		return fmt.Errorf("invalid --kind %q: must be arrival or departure", kind)
	}

	at := time.Now()
	if value := mustGetString(cmd, "at"); value != "" {
		if at, err = parseLocalTime(value, loc); err != nil {
			return err
		}
	}

	window, err := resolveWindow(cmd, kind)
	if err != nil {
		return err
	}

	status := evaluator.Classify(at, window)

	boundary := "unset"
	var expected time.Time
	if window.Boundary != nil {
		boundary = window.Boundary.String()
		expected = evaluator.Expected(at, *window.Boundary)
	}

	if mustGetBool(cmd, "json") {
		return printJSON(ClassifyOutput{
			At:       at.In(loc),
			Expected: expected,
			Kind:     string(kind),
			Grace:    window.Grace.String(),
			Boundary: boundary,
			Status:   status,
		})
	}

	fmt.Printf("Event:    %s (%s)\n", at.In(loc).Format(time.DateTime), loc)
	fmt.Printf("Boundary: %s %s, grace %s\n", kind, boundary, window.Grace)
	fmt.Printf("Status:   %s\n", status)
	return nil
}
