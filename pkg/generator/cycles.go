package generator

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/surface"
	"github.com/chazu/trackgen/pkg/track"
	"go.uber.org/zap"
)

const (
	// lcmTolerance is the relative residual accepted by LeastCommonMultiple.
	lcmTolerance = 1e-8

	// maxLCMMultiple bounds the search in LeastCommonMultiple.
	maxLCMMultiple = 100000
)

// LeastCommonMultiple returns the smallest positive length that is an
// integer multiple of both a and b, accepting a relative residual of 1e-8.
// It fails when no such multiple exists within 100000 multiples of a.
func LeastCommonMultiple(a, b float64) (float64, error) {
	a, b = math.Abs(a), math.Abs(b)
	if a == 0 || b == 0 || math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("least common multiple of %g and %g is undefined", a, b)
	}
	for i := 1; i <= maxLCMMultiple; i++ {
		m := a * float64(i)
		j := math.Round(m / b)
		if j >= 1 && math.Abs(m-j*b) <= lcmTolerance*m {
			return m, nil
		}
	}
	return 0, fmt.Errorf("no common multiple of %g and %g within %d multiples", a, b, maxLCMMultiple)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// axisPeriod is 1 for an axis whose sides are periodic and 2 otherwise: a
// reflected trajectory has to cross the domain twice along that axis before
// it repeats.
func axisPeriod(b geometry.Bounds, low geometry.Side) int {
	if b.BoundaryAt(low) == surface.Periodic {
		return 1
	}
	return 2
}

// Cycle links every track endpoint to its successor, sizes the cycles,
// walks them to assign cycle ids and positions, and partitions tracks into
// parallel groups.
func (g *Generator) Cycle() error {
	if g.status != StatusLaidOut {
		return fmt.Errorf("cycling requires state %s, have %s: %w", StatusLaidOut, g.status, ErrInvalidState)
	}
	if err := g.sizeCycles(); err != nil {
		return err
	}
	if err := g.linkTracks(); err != nil {
		return err
	}
	g.walkCycles()
	g.assignPeriodicIndices()
	g.assignGroups()
	g.status = StatusCycled

	closed := 0
	for _, c := range g.cycles {
		if c.Closed {
			closed++
		}
	}
	g.log.Info("Linked tracks into cycles",
		zap.Int("cycles", len(g.cycles)),
		zap.Int("closed", closed),
		zap.Int("parallel_groups", g.numGroups))
	return nil
}

// sizeCycles computes, per first-quadrant angle, the distance a trajectory
// travels before it repeats and the resulting number of tracks per cycle and
// cycles per supplementary pair.
func (g *Generator) sizeCycles() error {
	quarter := g.params.NumAzim / 4
	px := axisPeriod(g.bounds, geometry.SideMinX)
	py := axisPeriod(g.bounds, geometry.SideMinY)
	wx, wy := g.bounds.Width(), g.bounds.Height()

	g.cycleLengths = make([]float64, quarter)
	g.tracksPerCycle = make([]int, quarter)
	g.numCycles = make([]int, quarter)
	for a := 0; a < quarter; a++ {
		phi := g.quad.Phi(a)
		lcm, err := LeastCommonMultiple(float64(px)*wx/math.Abs(math.Cos(phi)), float64(py)*wy/math.Sin(phi))
		if err != nil {
			return fmt.Errorf("azimuthal angle %d: %w", a, err)
		}
		nx, ny := g.numX[a], g.numY[a]
		tpc := px * py * (nx + ny) / gcd(nx*px, ny*py)
		g.cycleLengths[a] = lcm
		g.tracksPerCycle[a] = tpc
		g.numCycles[a] = 2 * (nx + ny) / tpc
		g.log.Debug("Sized cycles",
			zap.Int("azim", a),
			zap.Float64("cycle_length", lcm),
			zap.Int("tracks_per_cycle", tpc),
			zap.Int("cycles", g.numCycles[a]))
	}
	return nil
}

// CycleLength returns the distance travelled along one cycle at first
// quadrant index a.
func (g *Generator) CycleLength(a int) float64 { return at(g.cycleLengths, a) }

// TracksPerCycle returns the number of tracks in one cycle at first quadrant
// index a, counting both the angle and its supplement.
func (g *Generator) TracksPerCycle(a int) int { return at(g.tracksPerCycle, a) }

// NumCycles returns the number of cycles formed by first quadrant index a
// and its supplementary angle, or 0 before Cycle.
func (g *Generator) NumCycles(a int) int { return at(g.numCycles, a) }

// Cycles returns the cycles found by Cycle, or nil before it ran.
func (g *Generator) Cycles() []*track.Cycle { return g.cycles }

func opposite(s geometry.Side) geometry.Side {
	switch s {
	case geometry.SideMinX:
		return geometry.SideMaxX
	case geometry.SideMaxX:
		return geometry.SideMinX
	case geometry.SideMinY:
		return geometry.SideMaxY
	default:
		return geometry.SideMinY
	}
}

// owner is the track endpoint sitting on a lattice point.
type owner struct {
	t       *track.Track2D
	isStart bool
}

// linkTracks sets NextFwd and NextBwd. A reflective endpoint continues on the
// supplementary angle's track sharing the lattice point; a periodic endpoint
// continues on the same angle's track at the matching point of the opposite
// side; a vacuum endpoint has no successor.
func (g *Generator) linkTracks() error {
	half := g.params.NumAzim / 2
	lattice := make([]map[endpoint]owner, half)
	for a := 0; a < half; a++ {
		m := make(map[endpoint]owner, 2*g.table.NumTracks(a))
		for _, t := range g.table.Azim(a) {
			e := g.ends[t.UID]
			for _, o := range []struct {
				p       endpoint
				isStart bool
			}{{e.start, true}, {e.end, false}} {
				if prev, dup := m[o.p]; dup {
					return fmt.Errorf("tracks %d and %d share boundary point %s[%d]: %w",
						prev.t.UID, t.UID, o.p.side, o.p.k, ErrBoundaryMismatch)
				}
				m[o.p] = owner{t: t, isStart: o.isStart}
			}
		}
		lattice[a] = m
	}

	var errs []error
	resolve := func(t *track.Track2D, at endpoint, bc surface.BoundaryType) track.Link {
		var o owner
		var ok bool
		switch bc {
		case surface.Reflective:
			o, ok = lattice[half-t.AzimIndex-1][at]
		case surface.Periodic:
			o, ok = lattice[t.AzimIndex][endpoint{opposite(at.side), at.k}]
		default:
			return track.Link{}
		}
		if !ok {
			errs = append(errs, fmt.Errorf("track %d: no %s partner for %s[%d]: %w",
				t.UID, bc, at.side, at.k, ErrBoundaryMismatch))
			return track.Link{}
		}
		return track.Link{Track: o.t, Forward: o.isStart}
	}

	for _, t := range g.table.All() {
		e := g.ends[t.UID]
		t.NextFwd = resolve(t, e.end, t.BoundaryFwd)
		t.NextBwd = resolve(t, e.start, t.BoundaryBwd)
	}
	return errors.Join(errs...)
}

// state is a track together with its direction of travel.
type state struct {
	t       *track.Track2D
	forward bool
}

func (s state) next() (state, bool) {
	l := s.t.Successor(s.forward)
	if l.Terminal() {
		return state{}, false
	}
	return state{l.Track, l.Forward}, true
}

// prev returns the state that leads into s.
func (s state) prev() (state, bool) {
	l := s.t.Successor(!s.forward)
	if l.Terminal() {
		return state{}, false
	}
	return state{l.Track, !l.Forward}, true
}

// walkCycles follows successor links from every unvisited track in uid
// order. Chains broken by vacuum boundaries are walked from their head.
func (g *Generator) walkCycles() {
	tracks := g.table.All()
	visited := make([]bool, len(tracks))
	g.cycles = nil

	for _, t := range tracks {
		if visited[t.UID] {
			continue
		}
		first := state{t, true}

		head := first
		for steps := 0; steps < len(tracks); steps++ {
			p, ok := head.prev()
			if !ok || p == first {
				break
			}
			head = p
		}

		c := &track.Cycle{ID: len(g.cycles)}
		cur := head
		for {
			visited[cur.t.UID] = true
			cur.t.CycleID = c.ID
			cur.t.CyclePosition = len(c.Links)
			c.Links = append(c.Links, track.Link{Track: cur.t, Forward: cur.forward})

			n, ok := cur.next()
			if !ok {
				break
			}
			if n == head {
				c.Closed = true
				break
			}
			if visited[n.t.UID] {
				break
			}
			cur = n
		}
		g.cycles = append(g.cycles, c)
	}
}

// assignPeriodicIndices colours chains of same-angle periodic links
// alternately 0 and 1. The last track of an odd closed chain gets 2 so that
// no two linked tracks share an index.
func (g *Generator) assignPeriodicIndices() {
	tracks := g.table.All()
	done := make([]bool, len(tracks))
	periodicNext := func(t *track.Track2D) *track.Track2D {
		if t.BoundaryFwd != surface.Periodic || t.NextFwd.Terminal() {
			return nil
		}
		return t.NextFwd.Track
	}
	periodicPrev := func(t *track.Track2D) *track.Track2D {
		if t.BoundaryBwd != surface.Periodic || t.NextBwd.Terminal() {
			return nil
		}
		return t.NextBwd.Track
	}

	for _, t := range tracks {
		if done[t.UID] {
			continue
		}
		head := t
		for steps := 0; steps < len(tracks); steps++ {
			p := periodicPrev(head)
			if p == nil || p == t {
				break
			}
			head = p
		}

		var chain []*track.Track2D
		closed := false
		for cur := head; cur != nil; cur = periodicNext(cur) {
			if done[cur.UID] {
				closed = cur == head
				break
			}
			done[cur.UID] = true
			cur.PeriodicIndex = len(chain) % 2
			chain = append(chain, cur)
		}
		if closed && len(chain) > 1 && len(chain)%2 == 1 {
			chain[len(chain)-1].PeriodicIndex = 2
		}
	}
}

// assignGroups places each track in parallel group
// 2*PeriodicIndex + (1 if its angle exceeds π/2). Linked tracks never share
// a group.
func (g *Generator) assignGroups() {
	g.numGroups = 2
	if g.bounds.Periodic() {
		g.numGroups = 6
	}
	g.groups = make([][]*track.Track2D, g.numGroups)
	quarter := g.params.NumAzim / 4
	for _, t := range g.table.All() {
		grp := 2 * t.PeriodicIndex
		if t.AzimIndex >= quarter {
			grp++
		}
		t.ParallelGroup = grp
		g.groups[grp] = append(g.groups[grp], t)
	}
}

// NumParallelGroups returns the number of parallel groups.
func (g *Generator) NumParallelGroups() int { return g.numGroups }

// ParallelGroup returns the tracks of group i.
func (g *Generator) ParallelGroup(i int) []*track.Track2D { return g.groups[i] }
