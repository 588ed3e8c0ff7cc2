package facematch

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Extractor turns a captured frame into one embedding per detected face.
// Implementations return ErrNoFaceDetected (possibly wrapped) when the frame
// contains no face. An Extractor is constructed once by its owner, shared
// across recognition sessions and closed on shutdown.
type Extractor interface {
	io.Closer
	Extract(ctx context.Context, frame []byte) ([]Embedding, error)
}

// Recognizer pairs an injected Extractor with a Matcher.
type Recognizer struct {
	extractor Extractor
	matcher   *Matcher
}

// NewRecognizer creates a recognizer. The caller keeps ownership of extractor.
func NewRecognizer(extractor Extractor, matcher *Matcher) *Recognizer {
	return &Recognizer{extractor: extractor, matcher: matcher}
}

// Extract runs the extractor and folds an empty detection into ErrNoFaceDetected.
func (r *Recognizer) Extract(ctx context.Context, frame []byte) ([]Embedding, error) {
	embeddings, err := r.extractor.Extract(ctx, frame)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoFaceDetected
	}
	return embeddings, nil
}

// RecognizeFrame matches every face found in frame against gallery.
// A frame without faces yields a single StatusNoFaceDetected result.
func (r *Recognizer) RecognizeFrame(ctx context.Context, frame []byte, gallery []GalleryEntry) ([]Result, error) {
	embeddings, err := r.Extract(ctx, frame)
	if errors.Is(err, ErrNoFaceDetected) {
		return []Result{{Status: StatusNoFaceDetected}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extracting embeddings: %w", err)
	}

	results := make([]Result, 0, len(embeddings))
	for _, emb := range embeddings {
		res, err := r.matcher.Match(emb, gallery)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
