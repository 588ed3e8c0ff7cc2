package database

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// EnrolledFace is one face owned by an external enrollment system.
type EnrolledFace struct {
	SubjectID string
	Name      string
	Embedding []float32
}

// EnrollmentSource lists faces enrolled outside this service.
type EnrollmentSource interface {
	// EnrolledFaces returns faces in a stable order (creation time, then ID).
	EnrolledFaces(ctx context.Context) ([]EnrolledFace, error)
}

// MirroredGallery serves the gallery of an external enrollment source and
// keeps the local subjects table in step with it, so attendance records can
// reference externally enrolled subjects. Local fields (session assignment,
// creation time) of already mirrored subjects are preserved.
type MirroredGallery struct {
	source         EnrollmentSource
	subjects       SubjectWriter
	defaultSession string
}

// NewMirroredGallery mirrors source into subjects. defaultSession is assigned
// to subjects seen for the first time; empty leaves them unassigned.
func NewMirroredGallery(source EnrollmentSource, subjects SubjectWriter, defaultSession string) *MirroredGallery {
	return &MirroredGallery{source: source, subjects: subjects, defaultSession: defaultSession}
}

// Gallery implements GalleryProvider.
func (g *MirroredGallery) Gallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	faces, err := g.source.EnrolledFaces(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.sync(ctx, faces); err != nil {
		return nil, err
	}

	gallery := make([]facematch.GalleryEntry, 0, len(faces))
	for _, f := range faces {
		gallery = append(gallery, facematch.GalleryEntry{SubjectID: f.SubjectID, Embedding: f.Embedding})
	}
	return gallery, nil
}

// sync upserts subjects that are missing locally or were renamed upstream.
func (g *MirroredGallery) sync(ctx context.Context, faces []EnrolledFace) error {
	local, err := g.subjects.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("listing local subjects: %w", err)
	}
	known := make(map[string]StoredSubject, len(local))
	for _, s := range local {
		known[s.ID] = s
	}

	seen := make(map[string]bool)
	for _, f := range faces {
		if seen[f.SubjectID] {
			continue
		}
		seen[f.SubjectID] = true

		name := f.Name
		if name == "" {
			name = f.SubjectID
		}

		subject, exists := known[f.SubjectID]
		if exists && subject.Name == name {
			continue
		}
		if !exists {
			subject = StoredSubject{ID: f.SubjectID, SessionID: g.defaultSession}
		}
		subject.Name = name
		if err := g.subjects.SaveSubject(ctx, &subject); err != nil {
			return fmt.Errorf("mirroring subject %s: %w", f.SubjectID, err)
		}
	}
	return nil
}
