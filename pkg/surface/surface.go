// Package surface implements the analytic quadric surfaces that bound the
// regions of a geometry: general planes, the axis-aligned plane presets, and
// the z-axis cylinder. All variants share the implicit form
//
//	A*x*x + B*y*y + C*x + D*y + E = 0   (cylinder)
//	A*x + B*y + C*z + D = 0             (plane family)
//
// and are dispatched by Kind rather than by separate types.
package surface

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// OnSurfaceThreshold is the largest |Evaluate(p)| for which p is considered
// to lie on a surface.
const OnSurfaceThreshold = 1e-12

// Kind identifies the surface variant.
type Kind int

const (
	Plane Kind = iota
	XPlane
	YPlane
	ZPlane
	ZCylinder
)

func (k Kind) String() string {
	switch k {
	case Plane:
		return "plane"
	case XPlane:
		return "x-plane"
	case YPlane:
		return "y-plane"
	case ZPlane:
		return "z-plane"
	case ZCylinder:
		return "z-cylinder"
	default:
		return "unknown"
	}
}

// BoundaryType is the boundary condition carried by a surface.
type BoundaryType int

const (
	BoundaryNone BoundaryType = iota
	Vacuum
	Reflective
	Periodic
)

func (b BoundaryType) String() string {
	switch b {
	case BoundaryNone:
		return "none"
	case Vacuum:
		return "vacuum"
	case Reflective:
		return "reflective"
	case Periodic:
		return "periodic"
	default:
		return "unknown"
	}
}

// ParseBoundaryType converts a boundary name ("vacuum", "reflective",
// "periodic", "none") to a BoundaryType.
func ParseBoundaryType(s string) (BoundaryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BoundaryNone, nil
	case "vacuum":
		return Vacuum, nil
	case "reflective":
		return Reflective, nil
	case "periodic":
		return Periodic, nil
	default:
		return BoundaryNone, fmt.Errorf("unknown boundary type %q", s)
	}
}

// Axis selects a coordinate axis for extent queries.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Surface is a quadric surface. The meaning of the coefficients depends on
// Kind; see the package documentation.
type Surface struct {
	kind     Kind
	a, b, c  float64
	d, e     float64
	boundary BoundaryType

	uid  int
	id   int
	name string

	// Cylinder center and radius, kept for extents and diagnostics.
	x0, y0, radius float64
}

// Option configures a surface at construction time.
type Option func(*Surface)

// WithID sets a user-defined id. Ids at or above FirstAutoID are reserved for
// the allocator.
func WithID(id int) Option {
	return func(s *Surface) { s.id = id }
}

// WithName sets a human-readable name.
func WithName(name string) Option {
	return func(s *Surface) { s.name = name }
}

// WithBoundary sets the boundary condition.
func WithBoundary(b BoundaryType) Option {
	return func(s *Surface) { s.boundary = b }
}

func newSurface(ids *IDAllocator, kind Kind, opts []Option) *Surface {
	s := &Surface{kind: kind}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == 0 {
		s.id = ids.NextID()
	}
	s.uid = ids.NextUID()
	return s
}

// NewPlane returns the general plane A*x + B*y + C*z + D = 0.
func NewPlane(ids *IDAllocator, a, b, c, d float64, opts ...Option) *Surface {
	s := newSurface(ids, Plane, opts)
	s.a, s.b, s.c, s.d = a, b, c, d
	return s
}

// NewXPlane returns the plane x = x0.
func NewXPlane(ids *IDAllocator, x float64, opts ...Option) *Surface {
	s := newSurface(ids, XPlane, opts)
	s.a, s.d = 1, -x
	return s
}

// NewYPlane returns the plane y = y0.
func NewYPlane(ids *IDAllocator, y float64, opts ...Option) *Surface {
	s := newSurface(ids, YPlane, opts)
	s.b, s.d = 1, -y
	return s
}

// NewZPlane returns the plane z = z0.
func NewZPlane(ids *IDAllocator, z float64, opts ...Option) *Surface {
	s := newSurface(ids, ZPlane, opts)
	s.c, s.d = 1, -z
	return s
}

// NewZCylinder returns the cylinder of the given radius whose axis is parallel
// to z and passes through (x, y).
func NewZCylinder(ids *IDAllocator, x, y, radius float64, opts ...Option) *Surface {
	s := newSurface(ids, ZCylinder, opts)
	s.a = 1
	s.b = 1
	s.c = -2 * x
	s.d = -2 * y
	s.e = x*x + y*y - radius*radius
	s.x0, s.y0, s.radius = x, y, radius
	return s
}

// Kind returns the surface variant.
func (s *Surface) Kind() Kind { return s.kind }

// UID returns the allocator-unique internal id.
func (s *Surface) UID() int { return s.uid }

// ID returns the user-facing id.
func (s *Surface) ID() int { return s.id }

// Name returns the optional name.
func (s *Surface) Name() string { return s.name }

// Coefficients returns A through E.
func (s *Surface) Coefficients() (a, b, c, d, e float64) {
	return s.a, s.b, s.c, s.d, s.e
}

// Center returns the cylinder axis position and radius. Planes return zeros.
func (s *Surface) Center() (x, y, radius float64) {
	return s.x0, s.y0, s.radius
}

// BoundaryType returns the boundary condition.
func (s *Surface) BoundaryType() BoundaryType { return s.boundary }

// SetBoundaryType sets the boundary condition.
func (s *Surface) SetBoundaryType(b BoundaryType) { s.boundary = b }

// Evaluate returns the signed value of the implicit equation at p. The sign
// selects the halfspace: negative is -1, positive is +1.
func (s *Surface) Evaluate(p v3.Vec) float64 {
	if s.kind == ZCylinder {
		return s.a*p.X*p.X + s.b*p.Y*p.Y + s.c*p.X + s.d*p.Y + s.e
	}
	return s.a*p.X + s.b*p.Y + s.c*p.Z + s.d
}

// IsOnSurface reports whether p lies on the surface within
// OnSurfaceThreshold.
func (s *Surface) IsOnSurface(p v3.Vec) bool {
	return math.Abs(s.Evaluate(p)) < OnSurfaceThreshold
}

// Halfspace returns the halfspace (-1 or +1) that contains p. Points on the
// surface belong to +1.
func (s *Surface) Halfspace(p v3.Vec) int {
	if s.Evaluate(p) < 0 {
		return -1
	}
	return +1
}

// MinExtent returns the smallest coordinate along axis reachable inside the
// given halfspace, or -Inf when unbounded.
func (s *Surface) MinExtent(axis Axis, halfspace int) float64 {
	switch s.kind {
	case XPlane, YPlane, ZPlane:
		if planeAxis(s.kind) == axis && halfspace == +1 {
			return -s.d
		}
	case ZCylinder:
		if halfspace == -1 {
			switch axis {
			case AxisX:
				return s.x0 - s.radius
			case AxisY:
				return s.y0 - s.radius
			}
		}
	}
	return math.Inf(-1)
}

// MaxExtent returns the largest coordinate along axis reachable inside the
// given halfspace, or +Inf when unbounded.
func (s *Surface) MaxExtent(axis Axis, halfspace int) float64 {
	switch s.kind {
	case XPlane, YPlane, ZPlane:
		if planeAxis(s.kind) == axis && halfspace == -1 {
			return -s.d
		}
	case ZCylinder:
		if halfspace == -1 {
			switch axis {
			case AxisX:
				return s.x0 + s.radius
			case AxisY:
				return s.y0 + s.radius
			}
		}
	}
	return math.Inf(1)
}

func planeAxis(k Kind) Axis {
	switch k {
	case YPlane:
		return AxisY
	case ZPlane:
		return AxisZ
	default:
		return AxisX
	}
}

func (s *Surface) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Surface ID = %d", s.id)
	if s.name != "" {
		fmt.Fprintf(&b, ", name = %s", s.name)
	}
	fmt.Fprintf(&b, ", type = %s, boundary = %s", s.kind, s.boundary)
	switch s.kind {
	case XPlane:
		fmt.Fprintf(&b, ", x = %g", -s.d)
	case YPlane:
		fmt.Fprintf(&b, ", y = %g", -s.d)
	case ZPlane:
		fmt.Fprintf(&b, ", z = %g", -s.d)
	case ZCylinder:
		fmt.Fprintf(&b, ", x0 = %g, y0 = %g, radius = %g", s.x0, s.y0, s.radius)
	default:
		fmt.Fprintf(&b, ", A = %g, B = %g, C = %g, D = %g", s.a, s.b, s.c, s.d)
	}
	return b.String()
}
