package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

type enrolledFaces struct {
	faces []database.EnrolledFace
	err   error
}

func (e *enrolledFaces) EnrolledFaces(ctx context.Context) ([]database.EnrolledFace, error) {
	return e.faces, e.err
}

func TestMirroredGallery(t *testing.T) {
	ctx := context.Background()
	subjects := mock.NewMockSubjectStore()
	subjects.AddSubject(database.StoredSubject{ID: "u-1", Name: "Old Name", SessionID: "evening"})

	source := &enrolledFaces{faces: []database.EnrolledFace{
		{SubjectID: "u-1", Name: "Sokha Chan", Embedding: []float32{0, 0}},
		{SubjectID: "u-2", Name: "Dara Kim", Embedding: []float32{1, 1}},
		{SubjectID: "u-2", Name: "Dara Kim", Embedding: []float32{1, 2}},
		{SubjectID: "u-3", Embedding: []float32{2, 2}},
	}}
	mirror := database.NewMirroredGallery(source, subjects, "morning")

	gallery, err := mirror.Gallery(ctx)
	if err != nil {
		t.Fatalf("Gallery() error = %v", err)
	}
	if len(gallery) != 4 {
		t.Fatalf("Gallery() returned %d entries, want 4", len(gallery))
	}
	for i, want := range []string{"u-1", "u-2", "u-2", "u-3"} {
		if gallery[i].SubjectID != want {
			t.Errorf("gallery[%d].SubjectID = %s, want %s", i, gallery[i].SubjectID, want)
		}
	}

	tests := []struct {
		id, name, session string
	}{
		{"u-1", "Sokha Chan", "evening"}, // renamed, local session kept
		{"u-2", "Dara Kim", "morning"},
		{"u-3", "u-3", "morning"}, // nameless rows fall back to the ID
	}
	for _, tt := range tests {
		s, err := subjects.GetSubject(ctx, tt.id)
		if err != nil || s == nil {
			t.Fatalf("GetSubject(%s) = %v, %v", tt.id, s, err)
		}
		if s.Name != tt.name || s.SessionID != tt.session {
			t.Errorf("subject %s = (%q, %q), want (%q, %q)", tt.id, s.Name, s.SessionID, tt.name, tt.session)
		}
	}
}

func TestMirroredGalleryErrors(t *testing.T) {
	ctx := context.Background()

	subjects := mock.NewMockSubjectStore()
	source := &enrolledFaces{err: errors.New("connection refused")}
	if _, err := database.NewMirroredGallery(source, subjects, "").Gallery(ctx); err == nil {
		t.Error("Gallery() error = nil, want source error")
	}

	source = &enrolledFaces{faces: []database.EnrolledFace{{SubjectID: "u-1", Name: "A", Embedding: []float32{0}}}}
	subjects.SaveError = errors.New("read-only")
	if _, err := database.NewMirroredGallery(source, subjects, "").Gallery(ctx); err == nil {
		t.Error("Gallery() error = nil, want mirror error")
	}
}
