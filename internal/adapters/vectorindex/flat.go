// Package vectorindex provides the in-memory vector index adapter.
// Clean Architecture: Adapter implementing ports.VectorIndex.
// Exact brute-force search is a deliberate choice: for corpora of hundreds
// to low thousands of chunks, determinism beats approximate speedups.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// FlatIndex stores vectors in insertion order and searches by squared L2
// distance. The vector slice and the ordinal-to-record map are only ever
// mutated together under one mutex, so their sizes cannot drift apart.
// Nothing is persisted; a restart loses all vectors.
type FlatIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	records map[int]entities.ChunkRecord
}

// NewFlatIndex creates an empty index. The dimension is fixed by the first
// insert.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{
		records: make(map[int]entities.ChunkRecord),
	}
}

// Add inserts an embedding and its record, returning the assigned ordinal.
// Identical content gets a new ordinal every time; there is no dedup.
func (x *FlatIndex) Add(embedding []float32, rec entities.ChunkRecord) (int, error) {
	if len(embedding) == 0 {
		return 0, fmt.Errorf("add: empty embedding")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = len(embedding)
	} else if len(embedding) != x.dim {
		return 0, fmt.Errorf("add: %w: got %d, index has %d",
			entities.ErrDimensionMismatch, len(embedding), x.dim)
	}

	ordinal := len(x.vectors)
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	x.vectors = append(x.vectors, vec)
	x.records[ordinal] = rec
	return ordinal, nil
}

// Search returns up to min(k, Size()) hits by ascending squared L2 distance.
func (x *FlatIndex) Search(embedding []float32, k int) []entities.Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 || k <= 0 || len(embedding) != x.dim {
		return []entities.Hit{}
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}

	hits := make([]entities.Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = entities.Hit{Ordinal: i, Distance: squaredL2(embedding, v)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	return hits[:k]
}

// Record returns the metadata stored at the given ordinal.
func (x *FlatIndex) Record(ordinal int) (entities.ChunkRecord, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	rec, ok := x.records[ordinal]
	return rec, ok
}

// Size returns the number of stored vectors.
func (x *FlatIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// RecordCount returns the size of the ordinal-to-record map. Always equal
// to Size(); exposed so tests can verify the invariant from outside.
func (x *FlatIndex) RecordCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Clear drops all vectors and records. The dimension resets too, so the
// next insert may use a different embedding model.
func (x *FlatIndex) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.dim = 0
	x.vectors = nil
	x.records = make(map[int]entities.ChunkRecord)
}

// squaredL2 computes the squared Euclidean distance. Lengths are assumed
// equal; Add enforces the dimension.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
