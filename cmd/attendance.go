package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect attendance records",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records of a subject",
	Long: `List a subject's attendance records, newest first.

The subject is given by ID or by name (matched without diacritics).

Examples:
  face-attendance attendance list --subject "Sokha Chan"
  face-attendance attendance list --subject 0b7e... --limit 10 --json`,
	Args: cobra.NoArgs,
	RunE: runAttendanceList,
}

var attendanceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize attendance of one day",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceSummary,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceSummaryCmd)

	attendanceListCmd.Flags().String("subject", "", "Subject ID or name (required)")
	attendanceListCmd.Flags().Int("limit", 20, "Maximum number of records (0 = all)")
	attendanceListCmd.Flags().Bool("json", false, "Output as JSON")

	attendanceSummaryCmd.Flags().String("date", "", "Day as YYYY-MM-DD in the attendance timezone (default today)")
	attendanceSummaryCmd.Flags().Bool("json", false, "Output as JSON")
}

// recordRow is the JSON form of an attendance record in CLI output.
type recordRow struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	SessionID      string            `json:"session_id,omitempty"`
	State          string            `json:"state"`
	CheckIn        *time.Time        `json:"check_in,omitempty"`
	CheckOut       *time.Time        `json:"check_out,omitempty"`
	CheckInStatus  attendance.Status `json:"check_in_status"`
	CheckOutStatus attendance.Status `json:"check_out_status,omitempty"`
}

// findSubject resolves a subject by ID first, then by normalized name.
func findSubject(ctx context.Context, store database.SubjectReader, ref string) (*database.StoredSubject, error) {
	subject, err := store.GetSubject(ctx, ref)
	if err != nil {
		return nil, err
	}
	if subject != nil {
		return subject, nil
	}

	matches, err := store.FindSubjectsByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("subject %q not found", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("name %q matches %d subjects, use the subject ID", ref, len(matches))
	}
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	ref := mustGetString(cmd, "subject")
	if ref == "" {
		return errors.New("--subject is required")
	}
	limit := mustGetInt(cmd, "limit")

	evaluator, err := loadEvaluator(cfg)
	if err != nil {
		return err
	}
	loc := evaluator.Location()

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	subjects, err := database.GetSubjectReader(ctx)
	if err != nil {
		return err
	}
	subject, err := findSubject(ctx, subjects, ref)
	if err != nil {
		return err
	}

	records, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return err
	}
	list, err := records.ListBySubject(ctx, subject.ID, limit)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		rows := make([]recordRow, 0, len(list))
		for i := range list {
			r := &list[i]
			rows = append(rows, recordRow{
				ID:             r.ID,
				Title:          r.Title(loc, subject.Name),
				SessionID:      r.SessionID,
				State:          string(r.State),
				CheckIn:        r.CheckIn,
				CheckOut:       r.CheckOut,
				CheckInStatus:  r.CheckInStatus,
				CheckOutStatus: r.CheckOutStatus,
			})
		}
		return printJSON(rows)
	}

	fmt.Printf("Attendance of %s (%s)\n\n", subject.Name, loc)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK IN\tSTATUS\tCHECK OUT\tSTATUS\tSESSION")
	fmt.Fprintln(w, "--------\t------\t---------\t------\t-------")
	for i := range list {
		r := &list[i]
		outStatus := string(r.CheckOutStatus)
		if outStatus == "" {
			outStatus = "-"
		}
		session := r.SessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			formatStamp(r.CheckIn, loc), r.CheckInStatus, formatStamp(r.CheckOut, loc), outStatus, session)
	}
	w.Flush()
	return nil
}

// dayRange returns [start, end) of the local calendar day named by date.
func dayRange(date string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var day time.Time
	if date == "" {
		y, m, d := now.In(loc).Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	} else {
		var err error
		day, err = time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
		}
	}
	return day, day.AddDate(0, 0, 1), nil
}

func runAttendanceSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	evaluator, err := loadEvaluator(cfg)
	if err != nil {
		return err
	}
	loc := evaluator.Location()

	from, to, err := dayRange(mustGetString(cmd, "date"), time.Now(), loc)
	if err != nil {
		return err
	}

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	records, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return err
	}
	list, err := records.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}
	summary := attendance.Summarize(list)

	if mustGetBool(cmd, "json") {
		return printJSON(summary)
	}

	fmt.Printf("Attendance on %s (%s)\n\n", from.Format(time.DateOnly), loc)
	fmt.Printf("Records:   %d (%d open, %d closed)\n", summary.Total, summary.Open, summary.Closed)
	fmt.Printf("Check-in:  %d early, %d on time, %d late, %d undefined\n",
		summary.CheckInStatus[attendance.StatusEarly], summary.CheckInStatus[attendance.StatusOnTime],
		summary.CheckInStatus[attendance.StatusLate], summary.CheckInStatus[attendance.StatusUndefined])
	fmt.Printf("Check-out: %d early, %d on time, %d late, %d undefined\n",
		summary.CheckOutStatus[attendance.StatusEarly], summary.CheckOutStatus[attendance.StatusOnTime],
		summary.CheckOutStatus[attendance.StatusLate], summary.CheckOutStatus[attendance.StatusUndefined])
	return nil
}
