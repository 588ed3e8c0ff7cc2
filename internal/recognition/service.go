// Package recognition wires the matcher to the attendance tracker: it keeps a
// gallery snapshot, matches incoming embeddings and records attendance for
// every recognized subject.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// ErrNoExtractor is returned by ProcessFrame when the service has no extractor.
var ErrNoExtractor = errors.New("no face extractor configured")

// GalleryProvider returns the enrolled embeddings to match against.
type GalleryProvider interface {
	Gallery(ctx context.Context) ([]facematch.GalleryEntry, error)
}

// FaceOutcome is the result for one face of a frame.
type FaceOutcome struct {
	Face       int                 `json:"face"`
	Match      facematch.Result    `json:"match"`
	Attendance *attendance.Outcome `json:"attendance,omitempty"`
	Err        error               `json:"-"`
}

// GalleryStats describes the loaded gallery snapshot.
type GalleryStats struct {
	Entries  int       `json:"entries"`
	Subjects int       `json:"subjects"`
	Indexed  bool      `json:"indexed"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Service matches embeddings against a gallery snapshot and feeds matches to
// the attendance tracker.
type Service struct {
	provider   GalleryProvider
	matcher    *facematch.Matcher
	tracker    *attendance.Tracker
	recognizer *facematch.Recognizer
	indexMin   int

	mu       sync.RWMutex
	gallery  []facematch.GalleryEntry
	index    *facematch.Index
	loadedAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor enables ProcessFrame. The caller keeps ownership of extractor.
func WithExtractor(extractor facematch.Extractor) Option {
	return func(s *Service) {
		if extractor != nil {
			s.recognizer = facematch.NewRecognizer(extractor, s.matcher)
		}
	}
}

// WithIndexMinGallery builds an HNSW index once the gallery has at least n
// entries. Zero disables the index.
func WithIndexMinGallery(n int) Option {
	return func(s *Service) {
		s.indexMin = max(n, 0)
	}
}

// NewService creates a service. The gallery is empty until Reload is called.
func NewService(provider GalleryProvider, matcher *facematch.Matcher, tracker *attendance.Tracker, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		matcher:  matcher,
		tracker:  tracker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload replaces the gallery snapshot with the provider's current gallery.
// The previous snapshot stays in place when loading fails.
func (s *Service) Reload(ctx context.Context) (GalleryStats, error) {
	gallery, err := s.provider.Gallery(ctx)
	if err != nil {
		return s.Stats(), fmt.Errorf("loading gallery: %w", err)
	}

	var index *facematch.Index
	if s.indexMin > 0 && len(gallery) >= s.indexMin {
		index, err = facematch.NewIndex(gallery, s.matcher)
		if err != nil {
			return s.Stats(), fmt.Errorf("building index: %w", err)
		}
	}

	s.mu.Lock()
	s.gallery = gallery
	s.index = index
	s.loadedAt = time.Now()
	s.mu.Unlock()

	return s.Stats(), nil
}

// Run reloads the gallery every interval until ctx is cancelled.
// Reload failures are logged and the previous snapshot is kept.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid gallery sync interval %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := s.Reload(ctx)
			if err != nil {
				log.Printf("gallery reload failed: %v", err)
				continue
			}
			log.Printf("gallery reloaded: %d embeddings of %d subjects", stats.Entries, stats.Subjects)
		}
	}
}

// Stats returns information about the current snapshot.
func (s *Service) Stats() GalleryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make(map[string]struct{})
	for _, e := range s.gallery {
		subjects[e.SubjectID] = struct{}{}
	}
	return GalleryStats{
		Entries:  len(s.gallery),
		Subjects: len(subjects),
		Indexed:  s.index != nil,
		LoadedAt: s.loadedAt,
	}
}

// Match matches one embedding against the current snapshot.
func (s *Service) Match(query facematch.Embedding) (facematch.Result, error) {
	s.mu.RLock()
	gallery, index := s.gallery, s.index
	s.mu.RUnlock()

	if index != nil {
		return index.Match(query)
	}
	return s.matcher.Match(query, gallery)
}

// Process matches every embedding of one frame and records attendance for the
// matched subjects. Zero embeddings yield a single no-face outcome. Outcomes
// keep the input order. Per-face failures are reported on the outcome and
// joined into the returned error.
func (s *Service) Process(ctx context.Context, embeddings []facematch.Embedding, at time.Time) ([]FaceOutcome, error) {
	if len(embeddings) == 0 {
		return []FaceOutcome{{Match: facematch.Result{Status: facematch.StatusNoFaceDetected}}}, nil
	}

	s.mu.RLock()
	empty := len(s.gallery) == 0
	s.mu.RUnlock()
	if empty {
		return nil, facematch.ErrEmptyGallery
	}

	outcomes := make([]FaceOutcome, len(embeddings))
	var wg sync.WaitGroup
	for i, emb := range embeddings {
		outcomes[i].Face = i
		res, err := s.Match(emb)
		if err != nil {
			outcomes[i].Err = fmt.Errorf("face %d: %w", i, err)
			continue
		}
		outcomes[i].Match = res
		if !res.Matched() {
			continue
		}

		wg.Add(1)
		go func(out *FaceOutcome) {
			defer wg.Done()
			rec, err := s.tracker.Record(ctx, out.Match.SubjectID, at)
			if err != nil {
				out.Err = fmt.Errorf("face %d: %w", out.Face, err)
				return
			}
			out.Attendance = rec
		}(&outcomes[i])
	}
	wg.Wait()

	var errs []error
	for _, out := range outcomes {
		if out.Err != nil {
			errs = append(errs, out.Err)
		}
	}
	return outcomes, errors.Join(errs...)
}

// ProcessFrame extracts embeddings from frame and processes them.
func (s *Service) ProcessFrame(ctx context.Context, frame []byte, at time.Time) ([]FaceOutcome, error) {
	if s.recognizer == nil {
		return nil, ErrNoExtractor
	}

	embeddings, err := s.recognizer.Extract(ctx, frame)
	if errors.Is(err, facematch.ErrNoFaceDetected) {
		return s.Process(ctx, nil, at)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting embeddings: %w", err)
	}
	return s.Process(ctx, embeddings, at)
}
