package database

import (
	"time"
)

// StoredSubject is an enrolled person who can be recognized
type StoredSubject struct {
	ID             string
	Name           string
	NormalizedName string // lowercase, no diacritics; used for name lookups
	SessionID      string // assigned session, empty if none
	CreatedAt      time.Time
}

// StoredEmbedding is one enrolled face descriptor of a subject.
// A subject can have several (different angles or lighting).
type StoredEmbedding struct {
	ID        int64
	SubjectID string
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}
