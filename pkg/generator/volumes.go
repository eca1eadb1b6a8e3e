package generator

import (
	"fmt"
	"sync"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// RegionLocks holds one mutex per flat source region. Consumers that update
// region-keyed buffers concurrently use With to scope each update.
type RegionLocks struct {
	mu []sync.Mutex
}

// NewRegionLocks returns locks for n regions.
func NewRegionLocks(n int) *RegionLocks {
	return &RegionLocks{mu: make([]sync.Mutex, n)}
}

// Len returns the number of regions.
func (l *RegionLocks) Len() int { return len(l.mu) }

// With runs fn while holding the lock of region.
func (l *RegionLocks) With(region int, fn func()) {
	m := &l.mu[region]
	m.Lock()
	defer m.Unlock()
	fn()
}

// accumulator sums segment contributions per region.
type accumulator struct {
	locks *RegionLocks

	volumes []float64 // raw segment length sums
	areas   []float64 // length * azimuthal weight * spacing
	cx, cy  []float64 // area-weighted midpoint sums
}

func newAccumulator(locks *RegionLocks) *accumulator {
	n := locks.Len()
	return &accumulator{
		locks:   locks,
		volumes: make([]float64, n),
		areas:   make([]float64, n),
		cx:      make([]float64, n),
		cy:      make([]float64, n),
	}
}

// add records one segment of the given length and weight whose midpoint is
// mid.
func (acc *accumulator) add(region int, length, weight float64, mid v2.Vec) error {
	if region < 0 || region >= len(acc.volumes) {
		return fmt.Errorf("region %d out of range [0, %d)", region, len(acc.volumes))
	}
	area := length * weight
	acc.locks.With(region, func() {
		acc.volumes[region] += length
		acc.areas[region] += area
		acc.cx[region] += area * mid.X
		acc.cy[region] += area * mid.Y
	})
	return nil
}

// RegionLocks returns the per-region locks, or nil before segmentation.
func (g *Generator) RegionLocks() *RegionLocks {
	if g.acc == nil {
		return nil
	}
	return g.acc.locks
}

// RegionVolumes returns, per region, the sum of the lengths of all segments
// in that region. It returns nil before segmentation.
func (g *Generator) RegionVolumes() []float64 {
	if g.acc == nil {
		return nil
	}
	return append([]float64(nil), g.acc.volumes...)
}

// RegionAreas returns, per region, the segment lengths weighted by azimuthal
// weight and achieved spacing. Over the whole domain these sum to its area.
func (g *Generator) RegionAreas() []float64 {
	if g.acc == nil {
		return nil
	}
	return append([]float64(nil), g.acc.areas...)
}

// RegionCentroids returns the area-weighted centroid of every region. Regions
// that no segment crosses report the zero vector.
func (g *Generator) RegionCentroids() []v2.Vec {
	if g.acc == nil {
		return nil
	}
	out := make([]v2.Vec, len(g.acc.areas))
	for r, a := range g.acc.areas {
		if a > 0 {
			out[r] = v2.Vec{X: g.acc.cx[r] / a, Y: g.acc.cy[r] / a}
		}
	}
	return out
}

// trackWeight is the area a track represents per unit length.
func (g *Generator) trackWeight(azim int) float64 {
	return g.quad.AzimWeight(azim) * g.azimSpacings[azim]
}
