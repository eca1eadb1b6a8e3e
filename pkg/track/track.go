// Package track holds the passive track entities produced by the generator:
// 2D tracks with their endpoints and successor links, the segments they own,
// the cycles they form, and the two-level azimuth/track table that stores
// them.
package track

import (
	"fmt"
	"math"

	"github.com/chazu/trackgen/pkg/surface"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Link points at the track that continues a trajectory across a boundary.
// Forward reports whether the successor is traversed from its start to its
// end. A nil Track marks a terminal (vacuum) endpoint.
type Link struct {
	Track   *Track2D
	Forward bool
}

// Terminal reports whether the link has no successor.
func (l Link) Terminal() bool { return l.Track == nil }

// Segment is the portion of a track inside one flat source region.
type Segment struct {
	Region int
	Length float64

	// Parent is the segment this one was split from, or nil.
	Parent *Segment
}

// Track2D is a straight ray across the domain. Start and End lie on the
// domain boundary.
type Track2D struct {
	UID       int
	AzimIndex int
	XYIndex   int

	Start v2.Vec
	End   v2.Vec
	Phi   float64

	// Boundary condition at the end (exit when traversed forward) and at the
	// start (exit when traversed backward).
	BoundaryFwd surface.BoundaryType
	BoundaryBwd surface.BoundaryType

	NextFwd Link
	NextBwd Link

	CycleID       int
	CyclePosition int
	PeriodicIndex int
	ParallelGroup int

	Segments []Segment
}

// SetPhi sets the azimuthal angle, normalized to [0, 2π).
func (t *Track2D) SetPhi(phi float64) {
	phi = math.Mod(phi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	t.Phi = phi
}

// Cos returns the x direction cosine.
func (t *Track2D) Cos() float64 { return math.Cos(t.Phi) }

// Sin returns the y direction cosine.
func (t *Track2D) Sin() float64 { return math.Sin(t.Phi) }

// Length returns the distance between the endpoints.
func (t *Track2D) Length() float64 { return t.End.Sub(t.Start).Length() }

// Successor returns the link followed when leaving the track in the given
// direction of travel.
func (t *Track2D) Successor(forward bool) Link {
	if forward {
		return t.NextFwd
	}
	return t.NextBwd
}

// ExitBoundary returns the boundary condition met when leaving the track in
// the given direction of travel.
func (t *Track2D) ExitBoundary(forward bool) surface.BoundaryType {
	if forward {
		return t.BoundaryFwd
	}
	return t.BoundaryBwd
}

// AddSegment appends a segment.
func (t *Track2D) AddSegment(s Segment) { t.Segments = append(t.Segments, s) }

// ClearSegments drops all segments.
func (t *Track2D) ClearSegments() { t.Segments = nil }

// NumSegments returns the number of segments.
func (t *Track2D) NumSegments() int { return len(t.Segments) }

// SegmentLength returns the sum of the segment lengths.
func (t *Track2D) SegmentLength() float64 {
	var sum float64
	for _, s := range t.Segments {
		sum += s.Length
	}
	return sum
}

func (t *Track2D) String() string {
	return fmt.Sprintf("Track2D uid = %d, azim = %d, xy = %d, phi = %.6f, start = (%g, %g), end = (%g, %g), bc = %s/%s",
		t.UID, t.AzimIndex, t.XYIndex, t.Phi, t.Start.X, t.Start.Y, t.End.X, t.End.Y, t.BoundaryBwd, t.BoundaryFwd)
}

// Cycle is the sequence of tracks visited by following successor links from
// a starting track. Closed is false for chains ended by vacuum boundaries.
type Cycle struct {
	ID     int
	Links  []Link
	Closed bool
}

// Len returns the number of tracks in the cycle.
func (c *Cycle) Len() int { return len(c.Links) }
