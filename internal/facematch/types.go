// Package facematch matches face embeddings against a gallery of enrolled subjects.
package facematch

import "errors"

// DefaultThreshold is the maximum Euclidean distance accepted as a match.
// 0.6 is the usual cut-off for 128-d dlib descriptors.
const DefaultThreshold = 0.6

// DescriptorSize is the embedding length produced by the dlib ResNet model.
const DescriptorSize = 128

var (
	// ErrEmptyGallery is returned when matching against a gallery with no entries.
	ErrEmptyGallery = errors.New("gallery is empty")
	// ErrDimensionMismatch is returned when the query and a gallery entry differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNoFaceDetected is reported by an Extractor when a frame contains no face.
	ErrNoFaceDetected = errors.New("no face detected")
)

// Embedding is a fixed-length face descriptor produced by an external model.
type Embedding []float32

// GalleryEntry pairs a subject with one of its enrolled embeddings.
// A subject may appear several times (multiple angles).
type GalleryEntry struct {
	SubjectID string
	Embedding Embedding
}

// MatchStatus is the outcome kind of a recognition attempt
type MatchStatus string

const (
	StatusMatched        MatchStatus = "matched"
	StatusNoMatch        MatchStatus = "no_match"
	StatusNoFaceDetected MatchStatus = "no_face_detected"
)

// Result is the outcome of matching one query embedding.
// SubjectID is only set when Status is StatusMatched. Distance holds the best
// distance found (also for StatusNoMatch, for diagnostics).
type Result struct {
	Status    MatchStatus `json:"status"`
	SubjectID string      `json:"subject_id,omitempty"`
	Distance  float64     `json:"distance"`
}

// Matched reports whether the result identified a subject.
func (r Result) Matched() bool {
	return r.Status == StatusMatched
}
