// Package geometry defines the abstract geometry interface consumed by the
// track generator. Implementations (csg) own the surfaces and flat source
// regions and answer point-location and ray-intersection queries behind this
// interface, so the generator never depends on how regions are built.
package geometry

import (
	"fmt"
	"math"

	"github.com/chazu/trackgen/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Geometry is the spatial index the track generator segments against.
type Geometry interface {
	// RegionContaining returns the flat source region holding p.
	RegionContaining(p v3.Vec) (region int, ok bool)

	// NearestIntersection returns the closest surface crossing ahead of
	// origin along dir.
	NearestIntersection(origin v3.Vec, dir Direction) (Hit, bool)

	// Bounds returns the xy extent of the domain and its boundary conditions.
	Bounds() (Bounds, error)

	// NumRegions returns the number of flat source regions.
	NumRegions() int

	// RemovalRate returns the characteristic removal rate (largest total
	// cross section) of a region's material.
	RemovalRate(region int) float64

	// Fingerprint identifies the geometry for cache lookups.
	Fingerprint() string
}

// Direction is a ray direction in azimuthal/polar form. Azim is in [0, 2π),
// Polar is measured from +z; Polar = π/2 lies in the xy-plane.
type Direction struct {
	Azim  float64
	Polar float64
}

// Flat returns the in-plane direction with the given azimuthal angle.
func Flat(azim float64) Direction {
	return Direction{Azim: NormalizeAzim(azim), Polar: math.Pi / 2}
}

// Unit returns the unit vector for d.
func (d Direction) Unit() v3.Vec {
	return surface.Direction(d.Azim, d.Polar)
}

// NormalizeAzim maps an angle into [0, 2π).
func NormalizeAzim(azim float64) float64 {
	azim = math.Mod(azim, 2*math.Pi)
	if azim < 0 {
		azim += 2 * math.Pi
	}
	return azim
}

// Hit is a surface crossing found by NearestIntersection.
type Hit struct {
	Surface  *surface.Surface
	Distance float64
	Point    v3.Vec
}

// Side names one edge of the rectangular domain.
type Side int

const (
	SideMinX Side = iota
	SideMaxX
	SideMinY
	SideMaxY
)

func (s Side) String() string {
	switch s {
	case SideMinX:
		return "min-x"
	case SideMaxX:
		return "max-x"
	case SideMinY:
		return "min-y"
	case SideMaxY:
		return "max-y"
	default:
		return "unknown"
	}
}

// Bounds is the rectangular xy extent of a domain together with the boundary
// condition on each side.
type Bounds struct {
	Box      sdf.Box2
	Boundary [4]surface.BoundaryType // indexed by Side
}

// NewBounds builds Bounds from corner coordinates.
func NewBounds(minX, minY, maxX, maxY float64, boundary [4]surface.BoundaryType) (Bounds, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return Bounds{}, fmt.Errorf("geometry is unbounded: [%g, %g] x [%g, %g]", minX, maxX, minY, maxY)
		}
	}
	if maxX <= minX || maxY <= minY {
		return Bounds{}, fmt.Errorf("geometry has empty extent: [%g, %g] x [%g, %g]", minX, maxX, minY, maxY)
	}
	return Bounds{
		Box: sdf.Box2{
			Min: v2.Vec{X: minX, Y: minY},
			Max: v2.Vec{X: maxX, Y: maxY},
		},
		Boundary: boundary,
	}, nil
}

// Width returns the x extent.
func (b Bounds) Width() float64 { return b.Box.Max.X - b.Box.Min.X }

// Height returns the y extent.
func (b Bounds) Height() float64 { return b.Box.Max.Y - b.Box.Min.Y }

// BoundaryAt returns the boundary condition of a side.
func (b Bounds) BoundaryAt(s Side) surface.BoundaryType { return b.Boundary[s] }

// Periodic reports whether any side is periodic.
func (b Bounds) Periodic() bool {
	for _, bt := range b.Boundary {
		if bt == surface.Periodic {
			return true
		}
	}
	return false
}

// SideOf returns the side p lies on, within tol. Corners resolve to the x
// sides.
func (b Bounds) SideOf(p v2.Vec, tol float64) (Side, bool) {
	switch {
	case math.Abs(p.X-b.Box.Min.X) < tol:
		return SideMinX, true
	case math.Abs(p.X-b.Box.Max.X) < tol:
		return SideMaxX, true
	case math.Abs(p.Y-b.Box.Min.Y) < tol:
		return SideMinY, true
	case math.Abs(p.Y-b.Box.Max.Y) < tol:
		return SideMaxY, true
	}
	return 0, false
}

// DistanceToBoundary returns how far p is from the nearest edge of the box.
// Points outside the box report the distance to the closest edge as well.
func (b Bounds) DistanceToBoundary(p v2.Vec) float64 {
	return math.Min(
		math.Min(math.Abs(p.X-b.Box.Min.X), math.Abs(p.X-b.Box.Max.X)),
		math.Min(math.Abs(p.Y-b.Box.Min.Y), math.Abs(p.Y-b.Box.Max.Y)),
	)
}
