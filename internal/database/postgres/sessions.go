package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// SessionRepository provides PostgreSQL-backed storage of scheduled sessions
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `s.id, s.name, s.description, s.session_type, s.start_minutes, s.end_minutes,
	s.check_in_grace_sec, s.check_out_grace_sec`

func scanSession(row interface{ Scan(...any) error }) (*attendance.Session, error) {
	var (
		s           attendance.Session
		sessionType string
		start, end  sql.NullInt32
		inGrace     int64
		outGrace    int64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &sessionType, &start, &end, &inGrace, &outGrace); err != nil {
		return nil, err
	}
	s.Type = attendance.SessionType(sessionType)
	if start.Valid {
		s.Start = attendance.TimeOfDay(start.Int32).Ptr()
	}
	if end.Valid {
		s.End = attendance.TimeOfDay(end.Int32).Ptr()
	}
	s.CheckInGrace = time.Duration(inGrace) * time.Second
	s.CheckOutGrace = time.Duration(outGrace) * time.Second
	return &s, nil
}

func nullableMinutes(t *attendance.TimeOfDay) sql.NullInt32 {
	if t == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*t), Valid: true}
}

// SaveSession inserts or updates a session after validating it
func (r *SessionRepository) SaveSession(ctx context.Context, session *attendance.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, name, description, session_type, start_minutes, end_minutes,
		                      check_in_grace_sec, check_out_grace_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			session_type = EXCLUDED.session_type,
			start_minutes = EXCLUDED.start_minutes,
			end_minutes = EXCLUDED.end_minutes,
			check_in_grace_sec = EXCLUDED.check_in_grace_sec,
			check_out_grace_sec = EXCLUDED.check_out_grace_sec
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Name,
		session.Description,
		string(session.Type),
		nullableMinutes(session.Start),
		nullableMinutes(session.End),
		int64(session.CheckInGrace/time.Second),
		int64(session.CheckOutGrace/time.Second),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Session retrieves a session by ID, returns nil if not found
func (r *SessionRepository) Session(ctx context.Context, id string) (*attendance.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = $1`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// SessionForSubject returns the session assigned to a subject, nil if none
func (r *SessionRepository) SessionForSubject(ctx context.Context, subjectID string) (*attendance.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions s
		JOIN subjects sub ON sub.session_id = s.id
		WHERE sub.id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, query, subjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session for subject: %w", err)
	}
	return s, nil
}

// ListSessions returns all sessions ordered by start time
func (r *SessionRepository) ListSessions(ctx context.Context) ([]attendance.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions s ORDER BY s.start_minutes NULLS LAST, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []attendance.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session from the database
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
