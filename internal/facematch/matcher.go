package facematch

import "fmt"

// Matcher finds the nearest gallery entry for a query embedding.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher accepting distances strictly below threshold.
// The value is used as given: zero (or a negative value, clamped to zero)
// rejects every query. Defaults belong to the caller's configuration.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{threshold: max(threshold, 0)}
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match compares query against every gallery entry by Euclidean distance.
// The closest entry wins; ties keep the earliest entry in gallery order.
func (m *Matcher) Match(query Embedding, gallery []GalleryEntry) (Result, error) {
	if err := validateGallery(query, gallery); err != nil {
		return Result{}, err
	}

	best := 0
	bestDistance := EuclideanDistance(query, gallery[0].Embedding)
	for i := 1; i < len(gallery); i++ {
		d := EuclideanDistance(query, gallery[i].Embedding)
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}

	return m.decide(gallery[best].SubjectID, bestDistance), nil
}

// decide applies the threshold to the best candidate.
func (m *Matcher) decide(subjectID string, distance float64) Result {
	if distance < m.threshold {
		return Result{Status: StatusMatched, SubjectID: subjectID, Distance: distance}
	}
	return Result{Status: StatusNoMatch, Distance: distance}
}

func validateGallery(query Embedding, gallery []GalleryEntry) error {
	if len(gallery) == 0 {
		return ErrEmptyGallery
	}
	if len(query) == 0 {
		return fmt.Errorf("%w: empty query", ErrDimensionMismatch)
	}
	for i := range gallery {
		if len(gallery[i].Embedding) != len(query) {
			return fmt.Errorf("%w: query has %d dimensions, entry %d (%s) has %d",
				ErrDimensionMismatch, len(query), i, gallery[i].SubjectID, len(gallery[i].Embedding))
		}
	}
	return nil
}
