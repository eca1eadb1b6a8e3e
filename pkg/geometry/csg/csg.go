// Package csg implements the geometry.Geometry interface with cells built
// as intersections of quadric surface halfspaces. Each cell is one flat
// source region; the region id is the cell's insertion index.
package csg

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/surface"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ geometry.Geometry = (*Geometry)(nil)

// fingerprintNamespace scopes geometry fingerprints.
var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("trackgen/geometry"))

// Material carries the total cross section per energy group.
type Material struct {
	Name   string
	SigmaT []float64
}

// NewMaterial returns a material with the given total cross sections.
func NewMaterial(name string, sigmaT ...float64) *Material {
	return &Material{Name: name, SigmaT: sigmaT}
}

// MaxSigmaT returns the largest total cross section, or 0 for a material with
// no groups.
func (m *Material) MaxSigmaT() float64 {
	var max float64
	for _, s := range m.SigmaT {
		if s > max {
			max = s
		}
	}
	return max
}

// Halfspace selects one side of a surface: Side is -1 or +1.
type Halfspace struct {
	Surface *surface.Surface
	Side    int
}

// Below returns the -1 halfspace of s.
func Below(s *surface.Surface) Halfspace { return Halfspace{Surface: s, Side: -1} }

// Above returns the +1 halfspace of s.
func Above(s *surface.Surface) Halfspace { return Halfspace{Surface: s, Side: +1} }

// Cell is a region bounded by the intersection of halfspaces.
type Cell struct {
	Region     int
	Name       string
	Material   *Material
	Halfspaces []Halfspace
}

// Contains reports whether p lies inside every halfspace of the cell.
func (c *Cell) Contains(p v3.Vec) bool {
	for _, h := range c.Halfspaces {
		if h.Surface.Halfspace(p) != h.Side {
			return false
		}
	}
	return true
}

// Geometry is a collection of cells over a shared set of surfaces.
type Geometry struct {
	name      string
	surfaces  []*surface.Surface
	surfIndex map[int]int // uid -> index in surfaces
	cells     []*Cell
	adjacency *geometry.AdjacencyIndex
}

// New returns an empty geometry.
func New(name string) *Geometry {
	return &Geometry{
		name:      name,
		surfIndex: make(map[int]int),
		adjacency: geometry.NewAdjacencyIndex(),
	}
}

// Name returns the geometry name.
func (g *Geometry) Name() string { return g.name }

// AddCell appends a cell and returns its region id. Each halfspace registers
// the new region with the adjacency index.
func (g *Geometry) AddCell(name string, m *Material, halfspaces ...Halfspace) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("cell %q has no material", name)
	}
	if len(halfspaces) == 0 {
		return 0, fmt.Errorf("cell %q has no bounding surfaces", name)
	}
	region := len(g.cells)
	for _, h := range halfspaces {
		if h.Surface == nil {
			return 0, fmt.Errorf("cell %q references a nil surface", name)
		}
		if err := g.adjacency.AddNeighborRegion(h.Surface.UID(), h.Side, region); err != nil {
			return 0, fmt.Errorf("cell %q: %w", name, err)
		}
		if _, ok := g.surfIndex[h.Surface.UID()]; !ok {
			g.surfIndex[h.Surface.UID()] = len(g.surfaces)
			g.surfaces = append(g.surfaces, h.Surface)
		}
	}
	g.cells = append(g.cells, &Cell{
		Region:     region,
		Name:       name,
		Material:   m,
		Halfspaces: append([]Halfspace(nil), halfspaces...),
	})
	return region, nil
}

// Cells returns the cells in region order.
func (g *Geometry) Cells() []*Cell { return g.cells }

// Surfaces returns every surface referenced by a cell, in first-use order.
func (g *Geometry) Surfaces() []*surface.Surface { return g.surfaces }

// Adjacency returns the region adjacency index.
func (g *Geometry) Adjacency() *geometry.AdjacencyIndex { return g.adjacency }

// NumRegions returns the number of cells.
func (g *Geometry) NumRegions() int { return len(g.cells) }

// RegionContaining returns the first cell containing p.
func (g *Geometry) RegionContaining(p v3.Vec) (int, bool) {
	for _, c := range g.cells {
		if c.Contains(p) {
			return c.Region, true
		}
	}
	return 0, false
}

// NearestIntersection returns the closest crossing of any surface ahead of
// origin.
func (g *Geometry) NearestIntersection(origin v3.Vec, dir geometry.Direction) (geometry.Hit, bool) {
	best := geometry.Hit{Distance: math.Inf(1)}
	for _, s := range g.surfaces {
		for _, p := range s.Intersect(origin, dir.Azim, dir.Polar) {
			d := p.Sub(origin).Length()
			if d > 0 && d < best.Distance {
				best = geometry.Hit{Surface: s, Distance: d, Point: p}
			}
		}
	}
	return best, best.Surface != nil
}

// RemovalRate returns the largest total cross section of the region's
// material. Unknown regions report 0.
func (g *Geometry) RemovalRate(region int) float64 {
	if region < 0 || region >= len(g.cells) {
		return 0
	}
	return g.cells[region].Material.MaxSigmaT()
}

// extent tracks one bound together with the surface attaining it.
type extent struct {
	value float64
	by    *surface.Surface
}

// Bounds derives the xy box from the surface extents of every cell. The
// surface that attains each side supplies that side's boundary condition.
func (g *Geometry) Bounds() (geometry.Bounds, error) {
	if len(g.cells) == 0 {
		return geometry.Bounds{}, errors.New("geometry has no cells")
	}
	minX := extent{value: math.Inf(1)}
	maxX := extent{value: math.Inf(-1)}
	minY := extent{value: math.Inf(1)}
	maxY := extent{value: math.Inf(-1)}

	for _, c := range g.cells {
		cMinX, cMaxX := c.extents(surface.AxisX)
		cMinY, cMaxY := c.extents(surface.AxisY)
		if cMinX.value < minX.value {
			minX = cMinX
		}
		if cMaxX.value > maxX.value {
			maxX = cMaxX
		}
		if cMinY.value < minY.value {
			minY = cMinY
		}
		if cMaxY.value > maxY.value {
			maxY = cMaxY
		}
	}

	var bc [4]surface.BoundaryType
	for side, e := range map[geometry.Side]extent{
		geometry.SideMinX: minX,
		geometry.SideMaxX: maxX,
		geometry.SideMinY: minY,
		geometry.SideMaxY: maxY,
	} {
		if e.by != nil {
			bc[side] = e.by.BoundaryType()
		}
	}
	b, err := geometry.NewBounds(minX.value, minY.value, maxX.value, maxY.value, bc)
	if err != nil {
		return geometry.Bounds{}, fmt.Errorf("geometry %q: %w", g.name, err)
	}
	return b, nil
}

// extents returns the tightest bounds along axis over the cell's halfspaces.
func (c *Cell) extents(axis surface.Axis) (lo, hi extent) {
	lo = extent{value: math.Inf(-1)}
	hi = extent{value: math.Inf(1)}
	for _, h := range c.Halfspaces {
		if v := h.Surface.MinExtent(axis, h.Side); v > lo.value {
			lo = extent{value: v, by: h.Surface}
		}
		if v := h.Surface.MaxExtent(axis, h.Side); v < hi.value {
			hi = extent{value: v, by: h.Surface}
		}
	}
	return lo, hi
}

// Fingerprint returns a name-based UUID over the canonical description of
// surfaces, cells and materials. Surfaces are referenced by position rather
// than uid so identical geometries built from different allocators agree.
func (g *Geometry) Fingerprint() string {
	var b strings.Builder
	for i, s := range g.surfaces {
		a, bb, c, d, e := s.Coefficients()
		fmt.Fprintf(&b, "s%d:%d:%d:%.17g,%.17g,%.17g,%.17g,%.17g;", i, s.Kind(), s.BoundaryType(), a, bb, c, d, e)
	}
	for _, c := range g.cells {
		fmt.Fprintf(&b, "c%d:", c.Region)
		for _, h := range c.Halfspaces {
			fmt.Fprintf(&b, "%d%+d,", g.surfIndex[h.Surface.UID()], h.Side)
		}
		fmt.Fprintf(&b, "m=%s", c.Material.Name)
		for _, s := range c.Material.SigmaT {
			fmt.Fprintf(&b, ",%.17g", s)
		}
		b.WriteByte(';')
	}
	return uuid.NewSHA1(fingerprintNamespace, []byte(b.String())).String()
}
