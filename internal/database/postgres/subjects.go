package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// SubjectRepository provides PostgreSQL-backed subject and embedding storage
type SubjectRepository struct {
	pool *Pool
}

// NewSubjectRepository creates a new PostgreSQL subject repository
func NewSubjectRepository(pool *Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

const subjectColumns = `id, name, normalized_name, COALESCE(session_id, ''), created_at`

func scanSubject(row interface{ Scan(...any) error }) (*database.StoredSubject, error) {
	var s database.StoredSubject
	if err := row.Scan(&s.ID, &s.Name, &s.NormalizedName, &s.SessionID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSubject inserts or updates a subject. A missing ID is generated.
func (r *SubjectRepository) SaveSubject(ctx context.Context, subject *database.StoredSubject) error {
	if subject.Name == "" {
		return errors.New("subject name is required")
	}
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now()
	}
	subject.NormalizedName = facematch.NormalizeSubjectName(subject.Name)

	query := `
		INSERT INTO subjects (id, name, normalized_name, session_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			session_id = EXCLUDED.session_id
	`
	_, err := r.pool.Exec(ctx, query, subject.ID, subject.Name, subject.NormalizedName, subject.SessionID, subject.CreatedAt)
	if err != nil {
		return fmt.Errorf("save subject: %w", err)
	}
	return nil
}

// GetSubject retrieves a subject by ID, returns nil if not found
func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (*database.StoredSubject, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	s, err := scanSubject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return s, nil
}

// FindSubjectsByName returns subjects whose normalized name equals the normalized input
func (r *SubjectRepository) FindSubjectsByName(ctx context.Context, name string) ([]database.StoredSubject, error) {
	return r.listSubjects(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE normalized_name = $1 ORDER BY created_at, id`,
		facematch.NormalizeSubjectName(name))
}

// ListSubjects returns all subjects ordered by creation time
func (r *SubjectRepository) ListSubjects(ctx context.Context) ([]database.StoredSubject, error) {
	return r.listSubjects(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY created_at, id`)
}

func (r *SubjectRepository) listSubjects(ctx context.Context, query string, args ...any) ([]database.StoredSubject, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []database.StoredSubject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// DeleteSubject removes a subject; embeddings and attendance cascade
func (r *SubjectRepository) DeleteSubject(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM subjects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// AddEmbedding appends an embedding to a subject and returns its ID
func (r *SubjectRepository) AddEmbedding(ctx context.Context, subjectID string, embedding []float32, model string) (int64, error) {
	if len(embedding) == 0 {
		return 0, facematch.ErrDimensionMismatch
	}

	query := `
		INSERT INTO subject_embeddings (subject_id, embedding, model, dim)
		VALUES ($1, $2::vector, $3, $4)
		RETURNING id
	`
	var id int64
	vec := pgvector.NewVector(embedding)
	if err := r.pool.QueryRow(ctx, query, subjectID, vec, model, len(embedding)).Scan(&id); err != nil {
		return 0, fmt.Errorf("add embedding: %w", err)
	}
	return id, nil
}

// CountEmbeddings returns how many embeddings a subject has enrolled
func (r *SubjectRepository) CountEmbeddings(ctx context.Context, subjectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM subject_embeddings WHERE subject_id = $1", subjectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Gallery returns every enrolled embedding ordered by subject creation, then
// embedding ID, so tie-breaking in the matcher is stable across reloads.
func (r *SubjectRepository) Gallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	query := `
		SELECT e.subject_id, e.embedding
		FROM subject_embeddings e
		JOIN subjects s ON s.id = e.subject_id
		ORDER BY s.created_at, s.id, e.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	defer rows.Close()

	var gallery []facematch.GalleryEntry
	for rows.Next() {
		var subjectID string
		var vec pgvector.Vector
		if err := rows.Scan(&subjectID, &vec); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		gallery = append(gallery, facematch.GalleryEntry{
			SubjectID: subjectID,
			Embedding: vec.Slice(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery: %w", err)
	}
	return gallery, nil
}

// Embeddings returns the stored embeddings of one subject
func (r *SubjectRepository) Embeddings(ctx context.Context, subjectID string) ([]database.StoredEmbedding, error) {
	query := `
		SELECT id, subject_id, embedding, model, dim, created_at
		FROM subject_embeddings
		WHERE subject_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var result []database.StoredEmbedding
	for rows.Next() {
		var e database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&e.ID, &e.SubjectID, &vec, &e.Model, &e.Dim, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.Embedding = vec.Slice()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return result, nil
}
