package csg

import (
	"fmt"

	"github.com/chazu/trackgen/pkg/surface"
)

// box returns the four planes of an axis-aligned rectangle with the given
// boundary condition per side (min-x, max-x, min-y, max-y).
func box(ids *surface.IDAllocator, minX, minY, maxX, maxY float64, bc [4]surface.BoundaryType) []Halfspace {
	return []Halfspace{
		Above(surface.NewXPlane(ids, minX, surface.WithName("min-x"), surface.WithBoundary(bc[0]))),
		Below(surface.NewXPlane(ids, maxX, surface.WithName("max-x"), surface.WithBoundary(bc[1]))),
		Above(surface.NewYPlane(ids, minY, surface.WithName("min-y"), surface.WithBoundary(bc[2]))),
		Below(surface.NewYPlane(ids, maxY, surface.WithName("max-y"), surface.WithBoundary(bc[3]))),
	}
}

// NewBox returns a single-region rectangle [minX, maxX] x [minY, maxY] filled
// with m.
func NewBox(ids *surface.IDAllocator, minX, minY, maxX, maxY float64, bc [4]surface.BoundaryType, m *Material) (*Geometry, error) {
	g := New(fmt.Sprintf("box %gx%g", maxX-minX, maxY-minY))
	if _, err := g.AddCell("box", m, box(ids, minX, minY, maxX, maxY, bc)...); err != nil {
		return nil, err
	}
	return g, nil
}

// NewSquare returns a single-region rectangle with its minimum corner at the
// origin and the same boundary condition on every side.
func NewSquare(ids *surface.IDAllocator, width, height float64, bt surface.BoundaryType, m *Material) (*Geometry, error) {
	return NewBox(ids, 0, 0, width, height, [4]surface.BoundaryType{bt, bt, bt, bt}, m)
}

// NewPinCell returns a square cell of the given pitch centred on the origin
// holding a fuel cylinder. Region 0 is the fuel, region 1 the moderator.
func NewPinCell(ids *surface.IDAllocator, pitch, radius float64, bt surface.BoundaryType, fuel, moderator *Material) (*Geometry, error) {
	if radius <= 0 || 2*radius >= pitch {
		return nil, fmt.Errorf("pin radius %g does not fit pitch %g", radius, pitch)
	}
	g := New(fmt.Sprintf("pin cell p=%g r=%g", pitch, radius))
	pin := surface.NewZCylinder(ids, 0, 0, radius, surface.WithName("pin"))
	half := pitch / 2
	walls := box(ids, -half, -half, half, half, [4]surface.BoundaryType{bt, bt, bt, bt})

	if _, err := g.AddCell("fuel", fuel, Below(pin)); err != nil {
		return nil, err
	}
	if _, err := g.AddCell("moderator", moderator, append([]Halfspace{Above(pin)}, walls...)...); err != nil {
		return nil, err
	}
	return g, nil
}
