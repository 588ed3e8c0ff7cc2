package facematch

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubExtractor struct {
	embeddings []Embedding
	err        error
	closed     bool
}

func (s *stubExtractor) Extract(ctx context.Context, frame []byte) ([]Embedding, error) {
	return s.embeddings, s.err
}

func (s *stubExtractor) Close() error {
	s.closed = true
	return nil
}

func TestRecognizer_RecognizeFrame(t *testing.T) {
	gallery := []GalleryEntry{
		{SubjectID: "alice", Embedding: Embedding{0, 0}},
		{SubjectID: "bob", Embedding: Embedding{1, 1}},
	}

	tests := []struct {
		name      string
		extractor *stubExtractor
		want      []MatchStatus
		wantErr   bool
	}{
		{
			name:      "two faces",
			extractor: &stubExtractor{embeddings: []Embedding{{0.05, 0}, {1, 0.95}}},
			want:      []MatchStatus{StatusMatched, StatusMatched},
		},
		{
			name:      "unknown face",
			extractor: &stubExtractor{embeddings: []Embedding{{5, 5}}},
			want:      []MatchStatus{StatusNoMatch},
		},
		{
			name:      "empty detection",
			extractor: &stubExtractor{},
			want:      []MatchStatus{StatusNoFaceDetected},
		},
		{
			name:      "wrapped no-face error",
			extractor: &stubExtractor{err: fmt.Errorf("detector: %w", ErrNoFaceDetected)},
			want:      []MatchStatus{StatusNoFaceDetected},
		},
		{
			name:      "extractor failure",
			extractor: &stubExtractor{err: errors.New("model not loaded")},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecognizer(tt.extractor, NewMatcher(DefaultThreshold))
			results, err := r.RecognizeFrame(context.Background(), []byte("frame"), gallery)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.want))
			}
			for i := range results {
				if results[i].Status != tt.want[i] {
					t.Errorf("result %d: status %s, want %s", i, results[i].Status, tt.want[i])
				}
			}
		})
	}
}

func TestRecognizer_PropagatesMatcherErrors(t *testing.T) {
	r := NewRecognizer(&stubExtractor{embeddings: []Embedding{{0, 0}}}, NewMatcher(DefaultThreshold))

	_, err := r.RecognizeFrame(context.Background(), nil, nil)
	if !errors.Is(err, ErrEmptyGallery) {
		t.Errorf("expected ErrEmptyGallery, got %v", err)
	}
}
