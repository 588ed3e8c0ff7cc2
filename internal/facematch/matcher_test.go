package facematch

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
)

// randomEmbedding returns a deterministic pseudo-random embedding.
func randomEmbedding(r *rand.Rand, dim int) Embedding {
	e := make(Embedding, dim)
	for i := range e {
		e[i] = r.Float32()*2 - 1
	}
	return e
}

func testGallery(seed int64, n, dim int) []GalleryEntry {
	r := rand.New(rand.NewSource(seed))
	gallery := make([]GalleryEntry, n)
	for i := range gallery {
		gallery[i] = GalleryEntry{
			SubjectID: string(rune('a' + i%26)),
			Embedding: randomEmbedding(r, dim),
		}
	}
	return gallery
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit axis", []float32{0, 0}, []float32{1, 0}, 1},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("identical vectors: got %v, want 0", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("opposite vectors: got %v, want 2", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{1}); d != 2 {
		t.Errorf("length mismatch: got %v, want 2", d)
	}
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 2 {
		t.Errorf("zero vector: got %v, want 2", d)
	}
}

func TestNewMatcher_ThresholdIsLiteral(t *testing.T) {
	gallery := []GalleryEntry{{SubjectID: "a", Embedding: Embedding{0, 0}}}

	tests := []struct {
		threshold float64
		want      float64
		status    MatchStatus
	}{
		{0.4, 0.4, StatusMatched},
		{0, 0, StatusNoMatch},
		{-1, 0, StatusNoMatch},
	}

	for _, tt := range tests {
		m := NewMatcher(tt.threshold)
		if got := m.Threshold(); got != tt.want {
			t.Errorf("NewMatcher(%v).Threshold() = %v, want %v", tt.threshold, got, tt.want)
		}
		// an exact self-match (distance 0) is still rejected by a zero threshold
		res, err := m.Match(Embedding{0, 0}, gallery)
		if err != nil {
			t.Fatalf("Match: %v", err)
		}
		if res.Status != tt.status {
			t.Errorf("NewMatcher(%v) self-match status = %s, want %s", tt.threshold, res.Status, tt.status)
		}
	}
}

func TestMatcher_EmptyGallery(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	_, err := m.Match(Embedding{1, 2, 3}, nil)
	if !errors.Is(err, ErrEmptyGallery) {
		t.Fatalf("expected ErrEmptyGallery, got %v", err)
	}
	_, err = m.Match(Embedding{1, 2, 3}, []GalleryEntry{})
	if !errors.Is(err, ErrEmptyGallery) {
		t.Fatalf("expected ErrEmptyGallery for empty slice, got %v", err)
	}
}

func TestMatcher_DimensionMismatch(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	gallery := []GalleryEntry{
		{SubjectID: "s1", Embedding: Embedding{0, 0, 0}},
		{SubjectID: "s2", Embedding: Embedding{0, 0}},
	}

	_, err := m.Match(Embedding{0, 0, 0}, gallery)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	_, err = m.Match(Embedding{}, gallery[:1])
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for empty query, got %v", err)
	}
}

func TestMatcher_SelfMatch(t *testing.T) {
	gallery := testGallery(42, 20, DescriptorSize)
	m := NewMatcher(DefaultThreshold)

	for i, entry := range gallery {
		res, err := m.Match(entry.Embedding, gallery)
		if err != nil {
			t.Fatalf("entry %d: unexpected error: %v", i, err)
		}
		if !res.Matched() {
			t.Fatalf("entry %d: expected match, got %s", i, res.Status)
		}
		if res.Distance != 0 {
			t.Errorf("entry %d: expected distance 0, got %v", i, res.Distance)
		}
		// Subject IDs repeat only past 26 entries, so the first occurrence is the entry itself.
		if res.SubjectID != entry.SubjectID {
			t.Errorf("entry %d: expected subject %s, got %s", i, entry.SubjectID, res.SubjectID)
		}
	}
}

func TestMatcher_ReturnsNearest(t *testing.T) {
	gallery := []GalleryEntry{
		{SubjectID: "far", Embedding: Embedding{1, 1}},
		{SubjectID: "near", Embedding: Embedding{0.1, 0}},
		{SubjectID: "middle", Embedding: Embedding{0.3, 0}},
	}
	m := NewMatcher(DefaultThreshold)

	res, err := m.Match(Embedding{0, 0}, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubjectID != "near" {
		t.Errorf("expected 'near', got %q", res.SubjectID)
	}
	if math.Abs(res.Distance-0.1) > 1e-6 {
		t.Errorf("expected distance 0.1, got %v", res.Distance)
	}
}

func TestMatcher_TieBreaksByGalleryOrder(t *testing.T) {
	gallery := []GalleryEntry{
		{SubjectID: "other", Embedding: Embedding{5, 5}},
		{SubjectID: "first", Embedding: Embedding{0.2, 0}},
		{SubjectID: "second", Embedding: Embedding{-0.2, 0}},
		{SubjectID: "third", Embedding: Embedding{0, 0.2}},
	}
	m := NewMatcher(DefaultThreshold)

	for range 10 {
		res, err := m.Match(Embedding{0, 0}, gallery)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.SubjectID != "first" {
			t.Fatalf("expected earliest tied entry 'first', got %q", res.SubjectID)
		}
	}
}

func TestMatcher_Threshold(t *testing.T) {
	gallery := []GalleryEntry{{SubjectID: "s1", Embedding: Embedding{0, 0}}}

	tests := []struct {
		name      string
		query     Embedding
		threshold float64
		want      MatchStatus
	}{
		{"well inside", Embedding{0.3, 0}, 0.6, StatusMatched},
		{"exactly at threshold is rejected", Embedding{0.5, 0}, 0.5, StatusNoMatch},
		{"beyond threshold", Embedding{0.7, 0}, 0.6, StatusNoMatch},
		{"stricter threshold rejects", Embedding{0.3, 0}, 0.25, StatusNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewMatcher(tt.threshold).Match(tt.query, gallery)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("status = %s, want %s (distance %v)", res.Status, tt.want, res.Distance)
			}
			if res.Status == StatusNoMatch && res.SubjectID != "" {
				t.Errorf("no-match result must not carry a subject, got %q", res.SubjectID)
			}
		})
	}
}

func TestMatcher_NeverReturnsNonNearest(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	gallery := testGallery(99, 26, 16)
	m := NewMatcher(10) // generous threshold so most queries match

	for range 200 {
		query := randomEmbedding(r, 16)
		res, err := m.Match(query, gallery)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		minDist := math.Inf(1)
		for _, e := range gallery {
			minDist = math.Min(minDist, EuclideanDistance(query, e.Embedding))
		}
		if res.Distance != minDist {
			t.Fatalf("distance %v is not the minimum %v", res.Distance, minDist)
		}
		if minDist < m.Threshold() && !res.Matched() {
			t.Fatalf("query closer than threshold reported as %s", res.Status)
		}
	}
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	gallery := testGallery(1, 10, DescriptorSize)
	m := NewMatcher(DefaultThreshold)

	var wg sync.WaitGroup
	for i := range gallery {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.Match(gallery[i].Embedding, gallery)
			if err != nil || res.SubjectID != gallery[i].SubjectID {
				t.Errorf("goroutine %d: got %+v, %v", i, res, err)
			}
		}(i)
	}
	wg.Wait()
}
