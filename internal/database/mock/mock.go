// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// MockSubjectStore is an in-memory implementation of database.SubjectWriter
type MockSubjectStore struct {
	mu         sync.RWMutex
	subjects   map[string]*database.StoredSubject
	order      []string
	embeddings map[string][]database.StoredEmbedding
	nextEmbID  int64
	nextID     int

	// Track calls
	DeleteCalls []string

	// Error injection
	GetError          error
	FindByNameError   error
	ListError         error
	GalleryError      error
	CountError        error
	SaveError         error
	AddEmbeddingError error
	DeleteError       error
}

// NewMockSubjectStore creates a new mock subject store
func NewMockSubjectStore() *MockSubjectStore {
	return &MockSubjectStore{
		subjects:   make(map[string]*database.StoredSubject),
		embeddings: make(map[string][]database.StoredEmbedding),
	}
}

// AddSubject adds a subject with its embeddings to the mock store
func (m *MockSubjectStore) AddSubject(subject database.StoredSubject, embeddings ...[]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putSubject(&subject)
	for _, emb := range embeddings {
		m.appendEmbedding(subject.ID, emb, "")
	}
}

func (m *MockSubjectStore) putSubject(s *database.StoredSubject) {
	if s.ID == "" {
		m.nextID++
		s.ID = fmt.Sprintf("subject-%d", m.nextID)
	}
	s.NormalizedName = facematch.NormalizeSubjectName(s.Name)
	if _, exists := m.subjects[s.ID]; !exists {
		m.order = append(m.order, s.ID)
	}
	copied := *s
	m.subjects[s.ID] = &copied
}

func (m *MockSubjectStore) appendEmbedding(subjectID string, emb []float32, model string) int64 {
	m.nextEmbID++
	m.embeddings[subjectID] = append(m.embeddings[subjectID], database.StoredEmbedding{
		ID:        m.nextEmbID,
		SubjectID: subjectID,
		Embedding: emb,
		Model:     model,
		Dim:       len(emb),
		CreatedAt: time.Now(),
	})
	return m.nextEmbID
}

// GetSubject retrieves a subject by ID
func (m *MockSubjectStore) GetSubject(ctx context.Context, id string) (*database.StoredSubject, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// FindSubjectsByName returns subjects with a matching normalized name
func (m *MockSubjectStore) FindSubjectsByName(ctx context.Context, name string) ([]database.StoredSubject, error) {
	if m.FindByNameError != nil {
		return nil, m.FindByNameError
	}
	normalized := facematch.NormalizeSubjectName(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.StoredSubject
	for _, id := range m.order {
		if s := m.subjects[id]; s.NormalizedName == normalized {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ListSubjects returns subjects in insertion order
func (m *MockSubjectStore) ListSubjects(ctx context.Context) ([]database.StoredSubject, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredSubject, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.subjects[id])
	}
	return result, nil
}

// Gallery returns embeddings in subject insertion order
func (m *MockSubjectStore) Gallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	if m.GalleryError != nil {
		return nil, m.GalleryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var gallery []facematch.GalleryEntry
	for _, id := range m.order {
		for _, e := range m.embeddings[id] {
			gallery = append(gallery, facematch.GalleryEntry{SubjectID: id, Embedding: e.Embedding})
		}
	}
	return gallery, nil
}

// CountEmbeddings returns the number of embeddings of a subject
func (m *MockSubjectStore) CountEmbeddings(ctx context.Context, subjectID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings[subjectID]), nil
}

// SaveSubject stores a subject, assigning an ID when empty
func (m *MockSubjectStore) SaveSubject(ctx context.Context, subject *database.StoredSubject) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putSubject(subject)
	return nil
}

// AddEmbedding appends an embedding to a subject
func (m *MockSubjectStore) AddEmbedding(ctx context.Context, subjectID string, embedding []float32, model string) (int64, error) {
	if m.AddEmbeddingError != nil {
		return 0, m.AddEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[subjectID]; !ok {
		return 0, fmt.Errorf("subject %s not found", subjectID)
	}
	return m.appendEmbedding(subjectID, embedding, model), nil
}

// DeleteSubject removes a subject and its embeddings
func (m *MockSubjectStore) DeleteSubject(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	delete(m.subjects, id)
	delete(m.embeddings, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// MockSessionStore is an in-memory implementation of database.SessionWriter.
// Subject assignments are resolved through an optional SubjectReader.
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*attendance.Session
	subjects database.SubjectReader

	// Error injection
	GetError    error
	ListError   error
	SaveError   error
	DeleteError error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore(subjects database.SubjectReader) *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*attendance.Session),
		subjects: subjects,
	}
}

// AddSession adds a session to the mock store
func (m *MockSessionStore) AddSession(session attendance.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = &session
}

// Session retrieves a session by ID
func (m *MockSessionStore) Session(ctx context.Context, id string) (*attendance.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// SessionForSubject looks up the subject's assigned session
func (m *MockSessionStore) SessionForSubject(ctx context.Context, subjectID string) (*attendance.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	if m.subjects == nil {
		return nil, nil
	}
	subject, err := m.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil || subject.SessionID == "" {
		return nil, nil
	}
	return m.Session(ctx, subject.SessionID)
}

// ListSessions returns sessions ordered by start time, unset starts last
func (m *MockSessionStore) ListSessions(ctx context.Context) ([]attendance.Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]attendance.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Start, result[j].Start
		switch {
		case a == nil && b == nil:
			return result[i].ID < result[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SaveSession validates and stores a session
func (m *MockSessionStore) SaveSession(ctx context.Context, session *attendance.Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := session.Validate(); err != nil {
		return err
	}
	m.AddSession(*session)
	return nil
}

// DeleteSession removes a session
func (m *MockSessionStore) DeleteSession(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MockAttendanceStore is an in-memory implementation of database.AttendanceWriter
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []attendance.Record
	nextID  int

	// Subjects, when set, makes Create reject unknown subject IDs the way
	// the attendance_records foreign key does.
	Subjects database.SubjectReader

	// Track calls
	CreateCalls int
	UpdateCalls int

	// Error injection
	LatestError error
	ListError   error
	CreateError error
	UpdateError error
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{}
}

// AddRecord adds a record to the mock store
func (m *MockAttendanceStore) AddRecord(rec attendance.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Records returns a copy of all stored records
func (m *MockAttendanceStore) Records() []attendance.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]attendance.Record(nil), m.records...)
}

// Latest returns the subject's record with the newest check-in
func (m *MockAttendanceStore) Latest(ctx context.Context, subjectID string) (*attendance.Record, error) {
	if m.LatestError != nil {
		return nil, m.LatestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *attendance.Record
	for i := range m.records {
		r := &m.records[i]
		if r.SubjectID != subjectID || r.CheckIn == nil {
			continue
		}
		if latest == nil || !r.CheckIn.Before(*latest.CheckIn) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// Create stores a new record
func (m *MockAttendanceStore) Create(ctx context.Context, rec *attendance.Record) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if m.Subjects != nil {
		subject, err := m.Subjects.GetSubject(ctx, rec.SubjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return fmt.Errorf("subject %s does not exist", rec.SubjectID)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if rec.ID == "" {
		m.nextID++
		rec.ID = fmt.Sprintf("record-%d", m.nextID)
	}
	m.records = append(m.records, *rec)
	return nil
}

// Update overwrites a stored record by ID
func (m *MockAttendanceStore) Update(ctx context.Context, rec *attendance.Record) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = *rec
			return nil
		}
	}
	return fmt.Errorf("attendance record %s not found", rec.ID)
}

// ListBySubject returns a subject's records, newest check-in first
func (m *MockAttendanceStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]attendance.Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []attendance.Record
	for _, r := range m.records {
		if r.SubjectID == subjectID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CheckIn.After(*result[j].CheckIn)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListBetween returns records whose check-in falls in [from, to)
func (m *MockAttendanceStore) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []attendance.Record
	for _, r := range m.records {
		if r.CheckIn == nil || r.CheckIn.Before(from) || !r.CheckIn.Before(to) {
			continue
		}
		result = append(result, r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CheckIn.Before(*result[j].CheckIn)
	})
	return result, nil
}

// Compile-time interface checks
var (
	_ database.SubjectWriter    = (*MockSubjectStore)(nil)
	_ database.SessionWriter    = (*MockSessionStore)(nil)
	_ database.AttendanceWriter = (*MockAttendanceStore)(nil)
	_ attendance.Repository     = (*MockAttendanceStore)(nil)
)
