package geometry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrInvalidHalfspace is returned when a halfspace other than -1 or +1 is
// used to register a neighbor region.
var ErrInvalidHalfspace = errors.New("halfspace must be -1 or +1")

type surfaceSide struct {
	surface   int
	halfspace int
}

// AdjacencyIndex records which regions border each side of each surface and,
// by closure, which regions neighbor each other across a surface.
//
// An AdjacencyIndex is safe for concurrent use.
type AdjacencyIndex struct {
	mu        sync.RWMutex
	sides     map[surfaceSide][]int
	neighbors map[int]map[int]struct{}
}

// NewAdjacencyIndex returns an empty index.
func NewAdjacencyIndex() *AdjacencyIndex {
	return &AdjacencyIndex{
		sides:     make(map[surfaceSide][]int),
		neighbors: make(map[int]map[int]struct{}),
	}
}

// AddNeighborRegion registers region on the given halfspace of a surface.
// Registering the same region twice is a no-op. After insertion every region
// on halfspace -1 is a neighbor of every region on halfspace +1 and vice
// versa.
func (ix *AdjacencyIndex) AddNeighborRegion(surfaceUID, halfspace, region int) error {
	if halfspace != -1 && halfspace != +1 {
		return fmt.Errorf("unable to add neighbor region %d to surface %d with halfspace %d: %w",
			region, surfaceUID, halfspace, ErrInvalidHalfspace)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	key := surfaceSide{surfaceUID, halfspace}
	if !slices.Contains(ix.sides[key], region) {
		ix.sides[key] = append(ix.sides[key], region)
	}

	neg := ix.sides[surfaceSide{surfaceUID, -1}]
	pos := ix.sides[surfaceSide{surfaceUID, +1}]
	for _, a := range neg {
		for _, b := range pos {
			ix.link(a, b)
			ix.link(b, a)
		}
	}
	return nil
}

func (ix *AdjacencyIndex) link(from, to int) {
	if from == to {
		return
	}
	set, ok := ix.neighbors[from]
	if !ok {
		set = make(map[int]struct{})
		ix.neighbors[from] = set
	}
	set[to] = struct{}{}
}

// SurfaceNeighbors returns the regions registered on one halfspace of a
// surface, in registration order.
func (ix *AdjacencyIndex) SurfaceNeighbors(surfaceUID, halfspace int) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.sides[surfaceSide{surfaceUID, halfspace}])
}

// RegionNeighbors returns the sorted regions adjacent to region across any
// surface.
func (ix *AdjacencyIndex) RegionNeighbors(region int) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]int, 0, len(ix.neighbors[region]))
	for r := range ix.neighbors[region] {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// AreNeighbors reports whether a and b share a surface.
func (ix *AdjacencyIndex) AreNeighbors(a, b int) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.neighbors[a][b]
	return ok
}
