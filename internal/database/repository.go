package database

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// GalleryProvider returns the gallery of enrolled embeddings
type GalleryProvider interface {
	// Gallery returns every enrolled embedding in a stable order
	// (subject creation time, then embedding ID).
	Gallery(ctx context.Context) ([]facematch.GalleryEntry, error)
}

// SubjectReader provides read-only access to enrolled subjects
type SubjectReader interface {
	GalleryProvider

	// GetSubject retrieves a subject by ID, returns nil if not found
	GetSubject(ctx context.Context, id string) (*StoredSubject, error)
	// FindSubjectsByName returns subjects whose normalized name matches
	FindSubjectsByName(ctx context.Context, name string) ([]StoredSubject, error)
	// ListSubjects returns all subjects ordered by creation time
	ListSubjects(ctx context.Context) ([]StoredSubject, error)
	// CountEmbeddings returns how many embeddings a subject has enrolled
	CountEmbeddings(ctx context.Context, subjectID string) (int, error)
}

// SubjectWriter provides write access to subjects and their embeddings
type SubjectWriter interface {
	SubjectReader

	// SaveSubject inserts or updates a subject
	SaveSubject(ctx context.Context, subject *StoredSubject) error
	// AddEmbedding appends an embedding to a subject and returns its ID
	AddEmbedding(ctx context.Context, subjectID string, embedding []float32, model string) (int64, error)
	// DeleteSubject removes a subject with its embeddings and attendance history
	DeleteSubject(ctx context.Context, id string) error
}

// SessionReader provides read-only access to scheduled sessions
type SessionReader interface {
	attendance.SessionProvider

	// ListSessions returns all sessions ordered by start time
	ListSessions(ctx context.Context) ([]attendance.Session, error)
}

// SessionWriter provides write access to sessions
type SessionWriter interface {
	SessionReader

	// SaveSession inserts or updates a session
	SaveSession(ctx context.Context, session *attendance.Session) error
	// DeleteSession removes a session; assigned subjects become unassigned
	DeleteSession(ctx context.Context, id string) error
}

// AttendanceReader provides read-only access to attendance history
type AttendanceReader interface {
	attendance.RecordFinder

	// ListBySubject returns a subject's records, newest check-in first
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]attendance.Record, error)
	// ListBetween returns records whose check-in falls in [from, to)
	ListBetween(ctx context.Context, from, to time.Time) ([]attendance.Record, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader
	attendance.RecordWriter
}
