package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// AttendanceRepository provides PostgreSQL-backed attendance records
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const recordColumns = `id, subject_id, COALESCE(session_id, ''), check_in, check_out, state,
	check_in_status, check_out_status`

func scanRecord(row interface{ Scan(...any) error }) (*attendance.Record, error) {
	var (
		rec            attendance.Record
		checkIn        time.Time
		checkOut       sql.NullTime
		state          string
		checkInStatus  string
		checkOutStatus string
	)
	err := row.Scan(&rec.ID, &rec.SubjectID, &rec.SessionID, &checkIn, &checkOut, &state, &checkInStatus, &checkOutStatus)
	if err != nil {
		return nil, err
	}
	rec.CheckIn = &checkIn
	if checkOut.Valid {
		rec.CheckOut = &checkOut.Time
	}
	rec.State = attendance.RecordState(state)
	rec.CheckInStatus = attendance.Status(checkInStatus)
	rec.CheckOutStatus = attendance.Status(checkOutStatus)
	return &rec, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Latest returns the subject's most recent record by check-in, nil if none
func (r *AttendanceRepository) Latest(ctx context.Context, subjectID string) (*attendance.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE subject_id = $1
		ORDER BY check_in DESC, id DESC
		LIMIT 1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, subjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attendance: %w", err)
	}
	return rec, nil
}

// Create stores a new record, generating an ID when empty
func (r *AttendanceRepository) Create(ctx context.Context, rec *attendance.Record) error {
	if rec.CheckIn == nil {
		return errors.New("attendance record requires a check-in time")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `
		INSERT INTO attendance_records (id, subject_id, session_id, check_in, check_out, state,
		                                check_in_status, check_out_status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SubjectID,
		rec.SessionID,
		*rec.CheckIn,
		nullableTime(rec.CheckOut),
		string(rec.State),
		string(rec.CheckInStatus),
		string(rec.CheckOutStatus),
	)
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Update overwrites the check-out fields and state of an existing record
func (r *AttendanceRepository) Update(ctx context.Context, rec *attendance.Record) error {
	query := `
		UPDATE attendance_records
		SET check_out = $2, state = $3, check_out_status = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, rec.ID, nullableTime(rec.CheckOut), string(rec.State), string(rec.CheckOutStatus))
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("attendance record %s not found", rec.ID)
	}
	return nil
}

// ListBySubject returns a subject's records, newest check-in first.
// A non-positive limit returns all records.
func (r *AttendanceRepository) ListBySubject(ctx context.Context, subjectID string, limit int) ([]attendance.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE subject_id = $1
		ORDER BY check_in DESC, id DESC`
	args := []any{subjectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListBetween returns records whose check-in falls in [from, to)
func (r *AttendanceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE check_in >= $1 AND check_in < $2
		ORDER BY check_in, id`
	return r.list(ctx, query, from, to)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
