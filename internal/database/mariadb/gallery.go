package mariadb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EnrolledFace is one row of the enrollment system's user_faces table
type EnrolledFace struct {
	ID        int64
	SubjectID string
	Name      string
	Embedding []float32
}

// decodeEmbedding accepts both a flat JSON list [e1, e2, ...] and the
// list-of-lists form [[e1, e2, ...]] some enrollment tools write.
func decodeEmbedding(data []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(nested) != 1 {
		return nil, fmt.Errorf("decode embedding: expected one vector, got %d", len(nested))
	}
	return nested[0], nil
}

// ListFaces returns every enrolled face ordered by creation, then ID.
// Rows with undecodable embeddings are skipped and logged.
func (p *Pool) ListFaces(ctx context.Context) ([]EnrolledFace, error) {
	query := `
		SELECT id, subject_id, name, embedding
		FROM user_faces
		ORDER BY created_at, id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query user faces: %w", err)
	}
	defer rows.Close()

	var faces []EnrolledFace
	for rows.Next() {
		var (
			face EnrolledFace
			raw  []byte
		)
		if err := rows.Scan(&face.ID, &face.SubjectID, &face.Name, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		face.Embedding, err = decodeEmbedding(raw)
		if err != nil {
			log.Printf("mariadb: skipping face %d of %s: %v", face.ID, face.SubjectID, err)
			continue
		}
		faces = append(faces, face)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return faces, nil
}

// EnrolledFaces implements database.EnrollmentSource.
func (p *Pool) EnrolledFaces(ctx context.Context) ([]database.EnrolledFace, error) {
	faces, err := p.ListFaces(ctx)
	if err != nil {
		return nil, err
	}

	enrolled := make([]database.EnrolledFace, 0, len(faces))
	for _, f := range faces {
		enrolled = append(enrolled, database.EnrolledFace{
			SubjectID: f.SubjectID,
			Name:      f.Name,
			Embedding: f.Embedding,
		})
	}
	return enrolled, nil
}
