package generator

import (
	"fmt"
	"math"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/quadrature"
	"github.com/chazu/trackgen/pkg/track"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"go.uber.org/zap"
)

// endpoint is a boundary lattice point: the side of the box and the index of
// the half-integer slot along it.
type endpoint struct {
	side geometry.Side
	k    int
}

// endpoints records where a track starts and ends.
type endpoints struct {
	start endpoint
	end   endpoint
}

// Layout places tracks for every azimuthal angle in [0, π). Angles θ and
// π-θ receive the same number of tracks and the achieved spacing never
// exceeds the requested one. Track endpoints lie on the domain boundary.
func (g *Generator) Layout() error {
	if g.status != StatusUninitialized {
		return fmt.Errorf("layout requires state %s, have %s: %w", StatusUninitialized, g.status, ErrInvalidState)
	}
	if err := validateParams(g.params); err != nil {
		return err
	}
	if g.geom == nil {
		return fmt.Errorf("no geometry: %w", ErrInvalidState)
	}

	bounds, err := g.geom.Bounds()
	if err != nil {
		return fmt.Errorf("failed to compute domain bounds: %w", err)
	}
	if err := checkBoundaryConditions(bounds); err != nil {
		return err
	}

	var q *quadrature.Quadrature
	if g.custom != nil {
		// Angles are adjusted below; the caller's set stays as supplied.
		q = g.custom.Clone()
	} else {
		q, err = quadrature.NewEqualAngle(g.params.NumAzim, g.params.NumPolar)
		if err != nil {
			return err
		}
	}

	numAzim := g.params.NumAzim
	half := numAzim / 2
	wx, wy := bounds.Width(), bounds.Height()
	delta := g.params.Spacing

	numX := make([]int, half)
	numY := make([]int, half)
	spacings := make([]float64, half)
	counts := make([]int, half)
	for a := 0; a < numAzim/4; a++ {
		phi := q.Phi(a)
		nx := int(math.Abs(wx/delta*math.Sin(phi))) + 1
		ny := int(math.Abs(wy/delta*math.Cos(phi))) + 1

		// Adjust the angle so that tracks meet the boundary on a regular
		// lattice of nx slots along x and ny slots along y.
		eff := math.Atan(wy * float64(nx) / (wx * float64(ny)))
		if err := q.SetPhi(a, eff); err != nil {
			return fmt.Errorf("azimuthal angle %d: %w", a, err)
		}
		sup := half - a - 1
		numX[a], numX[sup] = nx, nx
		numY[a], numY[sup] = ny, ny
		spacings[a] = wx / float64(nx) * math.Sin(eff)
		spacings[sup] = spacings[a]
		counts[a], counts[sup] = nx+ny, nx+ny
	}

	table, err := track.NewTable(counts)
	if err != nil {
		return fmt.Errorf("failed to allocate tracks: %w", err)
	}

	ends := make([]endpoints, table.Len())
	for a := 0; a < half; a++ {
		phi := q.Phi(a)
		dx := wx / float64(numX[a])
		dy := wy / float64(numY[a])
		rightward := phi < math.Pi/2

		for i, t := range table.Azim(a) {
			var start v2.Vec
			var from endpoint
			if i < numX[a] {
				if rightward {
					start = v2.Vec{X: dx * (float64(i) + 0.5)}
					from = endpoint{geometry.SideMinY, i}
				} else {
					start = v2.Vec{X: wx - dx*(float64(i)+0.5)}
					from = endpoint{geometry.SideMinY, numX[a] - i - 1}
				}
			} else {
				j := i - numX[a]
				if rightward {
					start = v2.Vec{Y: dy * (float64(j) + 0.5)}
					from = endpoint{geometry.SideMinX, j}
				} else {
					start = v2.Vec{X: wx, Y: dy * (float64(j) + 0.5)}
					from = endpoint{geometry.SideMaxX, j}
				}
			}
			end, to := clip(start, phi, wx, wy, dx, dy)

			// Recalibrate to the geometry's minimum corner.
			t.Start = start.Add(bounds.Box.Min)
			t.End = end.Add(bounds.Box.Min)
			t.SetPhi(phi)
			t.BoundaryBwd = bounds.BoundaryAt(from.side)
			t.BoundaryFwd = bounds.BoundaryAt(to.side)
			ends[t.UID] = endpoints{start: from, end: to}
		}
	}

	g.quad = q
	g.bounds = bounds
	g.table = table
	g.numX, g.numY = numX, numY
	g.azimSpacings = spacings
	g.ends = ends
	g.status = StatusLaidOut

	g.log.Info("Laid out tracks",
		zap.Int("tracks", table.Len()),
		zap.Int("num_azim", numAzim),
		zap.Float64("width", wx),
		zap.Float64("height", wy))
	for a := 0; a < numAzim/4; a++ {
		g.log.Debug("Azimuthal angle",
			zap.Int("azim", a),
			zap.Float64("phi", q.Phi(a)),
			zap.Int("num_x", numX[a]),
			zap.Int("num_y", numY[a]),
			zap.Float64("spacing", spacings[a]))
	}
	return nil
}

// clip returns where a ray leaving start in direction phi (0 < phi < π)
// leaves the box [0, wx] x [0, wy], together with the lattice slot it lands
// on. The coordinate on the hit edge is snapped to the edge.
func clip(start v2.Vec, phi, wx, wy, dx, dy float64) (v2.Vec, endpoint) {
	c, s := math.Cos(phi), math.Sin(phi)
	tTop := (wy - start.Y) / s

	var tSide, sideX float64
	var side geometry.Side
	if c > 0 {
		tSide, sideX, side = (wx-start.X)/c, wx, geometry.SideMaxX
	} else {
		tSide, sideX, side = -start.X/c, 0, geometry.SideMinX
	}

	if tTop <= tSide {
		x := start.X + tTop*c
		return v2.Vec{X: x, Y: wy}, endpoint{geometry.SideMaxY, slot(x, dx)}
	}
	y := start.Y + tSide*s
	return v2.Vec{X: sideX, Y: y}, endpoint{side, slot(y, dy)}
}

// slot returns the index of the half-integer lattice point nearest v.
func slot(v, d float64) int {
	return int(math.Round(v/d - 0.5))
}
