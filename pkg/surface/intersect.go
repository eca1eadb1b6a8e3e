package surface

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// angleTolerance is used for the parallel-ray and vertical-ray tests and for
// accepting degenerate forward checks.
const angleTolerance = 1e-10

// Direction returns the unit vector for an azimuthal angle in the xy-plane
// and a polar angle measured from +z.
func Direction(azim, polar float64) v3.Vec {
	sp := math.Sin(polar)
	return v3.Vec{
		X: sp * math.Cos(azim),
		Y: sp * math.Sin(azim),
		Z: math.Cos(polar),
	}
}

// Intersect returns the points where the ray leaving origin along (azim,
// polar) crosses the surface. Only points ahead of the origin are returned,
// so the result holds 0, 1 or 2 points.
func (s *Surface) Intersect(origin v3.Vec, azim, polar float64) []v3.Vec {
	if s.kind == ZCylinder {
		return s.intersectCylinder(origin, azim, polar)
	}
	return s.intersectPlane(origin, azim, polar)
}

func (s *Surface) intersectPlane(origin v3.Vec, azim, polar float64) []v3.Vec {
	m := Direction(azim, polar)

	// The ray is parallel to the plane.
	if (math.Abs(m.X) < angleTolerance && math.Abs(s.a) > angleTolerance) ||
		(math.Abs(m.Y) < angleTolerance && math.Abs(s.b) > angleTolerance) ||
		(math.Abs(m.Z) < angleTolerance && math.Abs(s.c) > angleTolerance) {
		return nil
	}

	denom := s.a*m.X + s.b*m.Y + s.c*m.Z
	if denom == 0 {
		return nil
	}
	t := -(s.a*origin.X + s.b*origin.Y + s.c*origin.Z + s.d) / denom
	if t <= 0 {
		return nil
	}
	return []v3.Vec{origin.Add(m.MulScalar(t))}
}

// intersectCylinder solves F(x, y) = 0 along the ray. Rays running parallel
// to y are handled separately so that the slope never becomes infinite.
//
// The vertical branch is chosen from the azimuth alone; the polar angle only
// enters through the z coordinate of the candidate points.
func (s *Surface) intersectCylinder(origin v3.Vec, azim, polar float64) []v3.Vec {
	x0, y0 := origin.X, origin.Y
	var candidates [2]v3.Vec
	n := 0

	if math.Abs(azim-math.Pi/2) < angleTolerance || math.Abs(azim-3*math.Pi/2) < angleTolerance {
		// x = x0, solve a*y^2 + b*y + c = 0
		a := s.b
		b := s.d
		c := s.a*x0*x0 + s.c*x0 + s.e
		if math.Abs(a) < angleTolerance {
			return nil
		}
		discr := b*b - 4*a*c
		switch {
		case discr < 0:
			return nil
		case discr == 0:
			candidates[n] = v3.Vec{X: x0, Y: -b / (2 * a)}
			n++
		default:
			sq := math.Sqrt(discr)
			candidates[n] = v3.Vec{X: x0, Y: (-b + sq) / (2 * a)}
			candidates[n+1] = v3.Vec{X: x0, Y: (-b - sq) / (2 * a)}
			n += 2
		}
	} else {
		// y = m*x + q, solve a*x^2 + b*x + c = 0
		m := math.Tan(azim)
		q := y0 - m*x0
		a := s.a + s.b*m*m
		b := 2*s.b*m*q + s.c + s.d*m
		c := s.b*q*q + s.d*q + s.e
		if math.Abs(a) < angleTolerance {
			return nil
		}
		discr := b*b - 4*a*c
		switch {
		case discr < 0:
			return nil
		case discr == 0:
			x := -b / (2 * a)
			candidates[n] = v3.Vec{X: x, Y: y0 + m*(x-x0)}
			n++
		default:
			sq := math.Sqrt(discr)
			xa := (-b + sq) / (2 * a)
			xb := (-b - sq) / (2 * a)
			candidates[n] = v3.Vec{X: xa, Y: y0 + m*(xa-x0)}
			candidates[n+1] = v3.Vec{X: xb, Y: y0 + m*(xb-x0)}
			n += 2
		}
	}

	var points []v3.Vec
	for i := 0; i < n; i++ {
		p := candidates[i]
		p.Z = origin.Z + math.Hypot(p.X-x0, p.Y-y0)*math.Tan(math.Pi/2-polar)
		if isForward(origin, p, azim, polar) {
			points = append(points, p)
		}
	}
	return points
}

// isForward reports whether p lies ahead of origin for the given direction.
// The lateral test uses the sign of the y displacement for the azimuthal
// half-plane (x for exactly horizontal rays); the axial test uses the sign of
// the z displacement for the polar hemisphere.
func isForward(origin, p v3.Vec, azim, polar float64) bool {
	dx := p.X - origin.X
	dy := p.Y - origin.Y
	dz := p.Z - origin.Z

	var lateral bool
	switch {
	case math.Abs(azim) < angleTolerance || math.Abs(azim-2*math.Pi) < angleTolerance:
		lateral = dx > 0
	case math.Abs(azim-math.Pi) < angleTolerance:
		lateral = dx < 0
	case azim < math.Pi:
		lateral = dy > 0
	default:
		lateral = dy < 0
	}
	if !lateral {
		return false
	}

	switch {
	case dz > 0 && polar < math.Pi/2:
		return true
	case dz < 0 && polar > math.Pi/2:
		return true
	case math.Abs(dz) < angleTolerance && math.Abs(polar-math.Pi/2) < angleTolerance:
		return true
	}
	return false
}
