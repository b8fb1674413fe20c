package memory

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDimensionMismatch is returned when a vector does not match the index
// dimension fixed at construction.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// flatIndex is an exact brute-force L2 index over fixed-dimension vectors.
// Append-only: vectors can never be removed individually, only the whole
// index replaced. Not safe for concurrent use; Store serializes access.
type flatIndex struct {
	dim     int
	vectors [][]float32
}

func newFlatIndex(dim int) *flatIndex {
	return &flatIndex{dim: dim}
}

func (ix *flatIndex) len() int { return len(ix.vectors) }

// add appends one vector, returning its position.
func (ix *flatIndex) add(vec []float32) (int, error) {
	if len(vec) != ix.dim {
		return 0, fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(vec), ix.dim)
	}
	ix.vectors = append(ix.vectors, vec)
	return len(ix.vectors) - 1, nil
}

// search returns the positions and squared L2 distances of the k vectors
// closest to query, ascending by distance. k is clamped to the index size.
func (ix *flatIndex) search(query []float32, k int) ([]int, []float64, error) {
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}
	if k <= 0 {
		return nil, nil, nil
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits[i] = hit{pos: i, dist: squaredL2(query, vec)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].pos < hits[b].pos
	})

	positions := make([]int, k)
	distances := make([]float64, k)
	for i := 0; i < k; i++ {
		positions[i] = hits[i].pos
		distances[i] = hits[i].dist
	}
	return positions, distances, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
