// Package sdfgeom implements geometry.Geometry over signed distance fields
// from github.com/deadsy/sdfx. Regions are 2D shapes stacked over a
// rectangular background; ray queries sphere-trace the fields instead of
// solving surface equations, so any sdfx shape can bound a region.
package sdfgeom

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/geometry/csg"
	"github.com/chazu/trackgen/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ geometry.Geometry = (*Geometry)(nil)

const (
	// minStep keeps the trace moving along rays that graze a boundary.
	minStep = 1e-8

	// maxSteps bounds a single trace.
	maxSteps = 1 << 20

	// bisections refine a bracketed region change to well below the
	// generator's nudge.
	bisections = 64

	// fingerprintSamples is the per-axis sample count used to identify a shape.
	fingerprintSamples = 8
)

var fingerprintNamespace = uuid.MustParse("2f3c9a4e-5b1d-4e7a-9c08-6d2e1f0b7a53")

// ErrEmptyDomain is returned for a domain without area.
var ErrEmptyDomain = errors.New("domain has no area")

type region struct {
	name     string
	shape    sdf.SDF2
	material *csg.Material
}

// Geometry is a stack of sdfx shapes over a rectangular domain. A point
// belongs to the first shape whose field is not positive there, and to the
// background region otherwise.
type Geometry struct {
	name       string
	domain     sdf.Box2
	boundary   [4]surface.BoundaryType
	background *csg.Material
	regions    []region
}

// New returns a geometry over domain filled with background. The boundary
// conditions are ordered min-x, max-x, min-y, max-y.
func New(name string, domain sdf.Box2, bc [4]surface.BoundaryType, background *csg.Material) (*Geometry, error) {
	size := domain.Size()
	if !(size.X > 0) || !(size.Y > 0) {
		return nil, fmt.Errorf("sdfgeom %q: %w", name, ErrEmptyDomain)
	}
	return &Geometry{name: name, domain: domain, boundary: bc, background: background}, nil
}

// AddRegion stacks shape on top of every region added so far and returns its
// region id. The background is always the last region.
func (g *Geometry) AddRegion(name string, shape sdf.SDF2, m *csg.Material) (int, error) {
	if shape == nil {
		return 0, fmt.Errorf("region %q has no shape", name)
	}
	if m == nil {
		return 0, fmt.Errorf("region %q has no material", name)
	}
	g.regions = append(g.regions, region{name: name, shape: shape, material: m})
	return len(g.regions) - 1, nil
}

// Name returns the geometry name.
func (g *Geometry) Name() string { return g.name }

// NumRegions counts the stacked shapes plus the background.
func (g *Geometry) NumRegions() int { return len(g.regions) + 1 }

// RegionName returns the name of a region.
func (g *Geometry) RegionName(r int) string {
	if r == len(g.regions) {
		return "background"
	}
	return g.regions[r].name
}

func (g *Geometry) inDomain(p v2.Vec) bool {
	return p.X >= g.domain.Min.X && p.X <= g.domain.Max.X &&
		p.Y >= g.domain.Min.Y && p.Y <= g.domain.Max.Y
}

func (g *Geometry) regionAt(p v2.Vec) int {
	for i, r := range g.regions {
		if r.shape.Evaluate(p) <= 0 {
			return i
		}
	}
	return len(g.regions)
}

// RegionContaining returns the region holding p, or false outside the domain.
func (g *Geometry) RegionContaining(p v3.Vec) (int, bool) {
	q := v2.Vec{X: p.X, Y: p.Y}
	if !g.inDomain(q) {
		return 0, false
	}
	return g.regionAt(q), true
}

// clearance is a lower bound on the distance from p to any region boundary
// inside the domain.
func (g *Geometry) clearance(p v2.Vec) float64 {
	d := math.Inf(1)
	for _, r := range g.regions {
		d = math.Min(d, math.Abs(r.shape.Evaluate(p)))
	}
	return d
}

// exitDistance returns how far p travels along u before leaving the domain.
func (g *Geometry) exitDistance(p, u v2.Vec) float64 {
	d := math.Inf(1)
	if u.X > 0 {
		d = math.Min(d, (g.domain.Max.X-p.X)/u.X)
	} else if u.X < 0 {
		d = math.Min(d, (g.domain.Min.X-p.X)/u.X)
	}
	if u.Y > 0 {
		d = math.Min(d, (g.domain.Max.Y-p.Y)/u.Y)
	} else if u.Y < 0 {
		d = math.Min(d, (g.domain.Min.Y-p.Y)/u.Y)
	}
	return math.Max(d, 0)
}

// NearestIntersection sphere-traces from origin along dir to the first point
// where the region changes. Leaving the domain is not a crossing. The
// returned hit carries no surface.
func (g *Geometry) NearestIntersection(origin v3.Vec, dir geometry.Direction) (geometry.Hit, bool) {
	u3 := dir.Unit()
	u := v2.Vec{X: u3.X, Y: u3.Y}
	flat := math.Hypot(u.X, u.Y)
	if flat < 1e-12 || len(g.regions) == 0 {
		return geometry.Hit{}, false
	}
	o := v2.Vec{X: origin.X, Y: origin.Y}
	if !g.inDomain(o) {
		return geometry.Hit{}, false
	}
	at := func(t float64) v2.Vec { return o.Add(u.MulScalar(t)) }

	start := g.regionAt(o)
	exit := g.exitDistance(o, u)
	t := 0.0
	for i := 0; i < maxSteps && t < exit; i++ {
		next := math.Min(t+math.Max(g.clearance(at(t))/flat, minStep), exit)
		if g.regionAt(at(next)) == start {
			t = next
			continue
		}
		lo, hi := t, next
		for k := 0; k < bisections && hi-lo > 1e-15; k++ {
			mid := (lo + hi) / 2
			if g.regionAt(at(mid)) == start {
				lo = mid
			} else {
				hi = mid
			}
		}
		// Distances are along the full 3D direction.
		return geometry.Hit{Distance: hi / flat, Point: origin.Add(u3.MulScalar(hi / flat))}, true
	}
	return geometry.Hit{}, false
}

// Bounds returns the domain and its boundary conditions.
func (g *Geometry) Bounds() (geometry.Bounds, error) {
	return geometry.NewBounds(g.domain.Min.X, g.domain.Min.Y, g.domain.Max.X, g.domain.Max.Y, g.boundary)
}

// RemovalRate returns the largest total cross section of the region's
// material, or 0 for an unknown region.
func (g *Geometry) RemovalRate(r int) float64 {
	switch {
	case r >= 0 && r < len(g.regions):
		return g.regions[r].material.MaxSigmaT()
	case r == len(g.regions) && g.background != nil:
		return g.background.MaxSigmaT()
	default:
		return 0
	}
}

// Fingerprint identifies the geometry from its domain, materials and a
// sampling of every shape's field.
func (g *Geometry) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sdf:%.17g,%.17g,%.17g,%.17g;", g.domain.Min.X, g.domain.Min.Y, g.domain.Max.X, g.domain.Max.Y)
	for _, bt := range g.boundary {
		fmt.Fprintf(&b, "%d,", bt)
	}
	size := g.domain.Size()
	for i, r := range g.regions {
		fmt.Fprintf(&b, "r%d:%s:", i, materialKey(r.material))
		for y := 0; y < fingerprintSamples; y++ {
			for x := 0; x < fingerprintSamples; x++ {
				p := v2.Vec{
					X: g.domain.Min.X + size.X*(float64(x)+0.5)/fingerprintSamples,
					Y: g.domain.Min.Y + size.Y*(float64(y)+0.5)/fingerprintSamples,
				}
				fmt.Fprintf(&b, "%.12g,", r.shape.Evaluate(p))
			}
		}
		b.WriteByte(';')
	}
	fmt.Fprintf(&b, "bg:%s", materialKey(g.background))
	return uuid.NewSHA1(fingerprintNamespace, []byte(b.String())).String()
}

func materialKey(m *csg.Material) string {
	if m == nil {
		return "-"
	}
	var b strings.Builder
	b.WriteString(m.Name)
	for _, s := range m.SigmaT {
		fmt.Fprintf(&b, ",%.17g", s)
	}
	return b.String()
}

// NewPinCell returns a square cell of the given pitch centred on the origin
// holding a fuel pin. Region 0 is the fuel, region 1 the moderator, matching
// csg.NewPinCell.
func NewPinCell(pitch, radius float64, bt surface.BoundaryType, fuel, moderator *csg.Material) (*Geometry, error) {
	if radius <= 0 || 2*radius >= pitch {
		return nil, fmt.Errorf("pin radius %g does not fit pitch %g", radius, pitch)
	}
	domain := sdf.NewBox2(v2.Vec{}, v2.Vec{X: pitch, Y: pitch})
	g, err := New(fmt.Sprintf("sdf pin cell p=%g r=%g", pitch, radius), domain, [4]surface.BoundaryType{bt, bt, bt, bt}, moderator)
	if err != nil {
		return nil, err
	}
	pin, err := sdf.Circle2D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Circle2D: %w", err)
	}
	if _, err := g.AddRegion("fuel", pin, fuel); err != nil {
		return nil, err
	}
	return g, nil
}

// NewAnnularPin returns a pin cell whose fuel is clad: region 0 is the fuel
// of radius inner, region 1 the cladding ring out to outer, region 2 the
// moderator.
func NewAnnularPin(pitch, inner, outer float64, bt surface.BoundaryType, fuel, clad, moderator *csg.Material) (*Geometry, error) {
	if !(inner > 0) || !(inner < outer) || 2*outer >= pitch {
		return nil, fmt.Errorf("pin radii %g/%g do not fit pitch %g", inner, outer, pitch)
	}
	domain := sdf.NewBox2(v2.Vec{}, v2.Vec{X: pitch, Y: pitch})
	g, err := New(fmt.Sprintf("sdf annular pin p=%g r=%g/%g", pitch, inner, outer), domain, [4]surface.BoundaryType{bt, bt, bt, bt}, moderator)
	if err != nil {
		return nil, err
	}
	for _, ring := range []struct {
		name   string
		radius float64
		m      *csg.Material
	}{{"fuel", inner, fuel}, {"clad", outer, clad}} {
		shape, err := sdf.Circle2D(ring.radius)
		if err != nil {
			return nil, fmt.Errorf("sdfx.Circle2D: %w", err)
		}
		if _, err := g.AddRegion(ring.name, shape, ring.m); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// NewBoxedPin places an offset rectangular insert of the given size at
// center inside a square cell; region 0 is the insert, region 1 the
// moderator.
func NewBoxedPin(pitch float64, center, size v2.Vec, bt surface.BoundaryType, insert, moderator *csg.Material) (*Geometry, error) {
	half := pitch / 2
	lo, hi := center.Sub(size.MulScalar(0.5)), center.Add(size.MulScalar(0.5))
	if lo.X <= -half || lo.Y <= -half || hi.X >= half || hi.Y >= half {
		return nil, fmt.Errorf("insert %v at %v does not fit pitch %g", size, center, pitch)
	}
	domain := sdf.NewBox2(v2.Vec{}, v2.Vec{X: pitch, Y: pitch})
	g, err := New(fmt.Sprintf("sdf boxed pin p=%g", pitch), domain, [4]surface.BoundaryType{bt, bt, bt, bt}, moderator)
	if err != nil {
		return nil, err
	}
	shape := sdf.Transform2D(sdf.Box2D(size, 0), sdf.Translate2d(center))
	if _, err := g.AddRegion("insert", shape, insert); err != nil {
		return nil, err
	}
	return g, nil
}
