package facematch

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for face descriptor search
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier widens the candidate set before the exact re-rank.
	HNSWSearchMultiplier = 3

	// hnswCandidates is the base number of candidates requested per query.
	hnswCandidates = 8
)

// Index accelerates matching on large galleries with an HNSW graph.
// Candidates come from the approximate search and are ranked with the exact
// Matcher rule. A candidate under the threshold is confirmed with an exact
// scan before it is reported, so a Matched result always names the true
// nearest entry. Only rejections (no candidate under the threshold) rely on
// the approximate search and may miss a match a linear scan would find.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int]
	entries []GalleryEntry
	dim     int
	matcher *Matcher
}

// NewIndex builds an index over gallery. Gallery positions are used as node
// keys so ties still resolve to the earliest entry.
func NewIndex(gallery []GalleryEntry, matcher *Matcher) (*Index, error) {
	idx := &Index{matcher: matcher}
	if err := idx.Build(gallery); err != nil {
		return nil, err
	}
	return idx, nil
}

// Build replaces the indexed gallery.
func (x *Index) Build(gallery []GalleryEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(gallery) == 0 {
		x.graph = nil
		x.entries = nil
		x.dim = 0
		return nil
	}

	dim := len(gallery[0].Embedding)
	if dim == 0 {
		return fmt.Errorf("%w: entry 0 (%s) is empty", ErrDimensionMismatch, gallery[0].SubjectID)
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	entries := make([]GalleryEntry, len(gallery))
	copy(entries, gallery)
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("%w: entry %d (%s) has %d dimensions, expected %d",
				ErrDimensionMismatch, i, e.SubjectID, len(e.Embedding), dim)
		}
		g.Add(hnsw.MakeNode(i, []float32(e.Embedding)))
	}

	x.graph = g
	x.entries = entries
	x.dim = dim
	return nil
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Match finds the nearest indexed entry and applies the matcher threshold.
// See Index for the exactness guarantee.
func (x *Index) Match(query Embedding) (Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || len(x.entries) == 0 {
		return Result{}, ErrEmptyGallery
	}
	if len(query) != x.dim {
		return Result{}, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}

	k := min(len(x.entries), hnswCandidates*HNSWSearchMultiplier)
	neighbors := x.graph.Search([]float32(query), k)
	if len(neighbors) == 0 {
		return Result{}, ErrEmptyGallery
	}

	best := -1
	var bestDistance float64
	for _, n := range neighbors {
		d := EuclideanDistance(query, x.entries[n.Key].Embedding)
		if best < 0 || d < bestDistance || (d == bestDistance && n.Key < best) {
			best, bestDistance = n.Key, d
		}
	}

	res := x.matcher.decide(x.entries[best].SubjectID, bestDistance)
	if res.Matched() {
		return x.matcher.Match(query, x.entries)
	}
	return res, nil
}
