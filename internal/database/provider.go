package database

import (
	"context"
	"errors"
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresSubjectWriter    func() SubjectWriter
	postgresSessionWriter    func() SessionWriter
	postgresAttendanceWriter func() AttendanceWriter
	externalGallery          func() GalleryProvider
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the serve and CLI commands to avoid import cycles.
func RegisterPostgresBackend(
	subjects func() SubjectWriter,
	sessions func() SessionWriter,
	records func() AttendanceWriter,
) {
	postgresSubjectWriter = subjects
	postgresSessionWriter = sessions
	postgresAttendanceWriter = records
	postgresInitialized = true
}

// RegisterGalleryProvider overrides where the recognition gallery is read from,
// e.g. an external enrollment database. Passing nil restores the default.
func RegisterGalleryProvider(provider func() GalleryProvider) {
	externalGallery = provider
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetSubjectReader returns a SubjectReader from the PostgreSQL backend
func GetSubjectReader(ctx context.Context) (SubjectReader, error) {
	return GetSubjectWriter(ctx)
}

// GetSubjectWriter returns a SubjectWriter from the PostgreSQL backend
func GetSubjectWriter(ctx context.Context) (SubjectWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresSubjectWriter == nil {
		return nil, errors.New("PostgreSQL subject writer not registered")
	}
	return postgresSubjectWriter(), nil
}

// GetSessionReader returns a SessionReader from the PostgreSQL backend
func GetSessionReader(ctx context.Context) (SessionReader, error) {
	return GetSessionWriter(ctx)
}

// GetSessionWriter returns a SessionWriter from the PostgreSQL backend
func GetSessionWriter(ctx context.Context) (SessionWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresSessionWriter == nil {
		return nil, errors.New("PostgreSQL session writer not registered")
	}
	return postgresSessionWriter(), nil
}

// GetAttendanceReader returns an AttendanceReader from the PostgreSQL backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	return GetAttendanceWriter(ctx)
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, errors.New("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

// GetGalleryProvider returns the registered external gallery provider, falling
// back to the PostgreSQL subject repository.
func GetGalleryProvider(ctx context.Context) (GalleryProvider, error) {
	if externalGallery != nil {
		return externalGallery(), nil
	}
	return GetSubjectReader(ctx)
}

// ResetForTesting clears all registered backends.
func ResetForTesting() {
	postgresSubjectWriter = nil
	postgresSessionWriter = nil
	postgresAttendanceWriter = nil
	externalGallery = nil
	postgresInitialized = false
}
