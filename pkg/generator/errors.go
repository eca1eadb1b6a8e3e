package generator

import (
	"errors"
	"fmt"

	"github.com/chazu/trackgen/pkg/quadrature"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrInvalidSpacing is returned when the requested track spacing is not
	// positive.
	ErrInvalidSpacing = errors.New("track spacing must be positive")

	// ErrNoAngles is returned when zero azimuthal or polar angles are
	// requested.
	ErrNoAngles = quadrature.ErrNoAngles

	// ErrInvalidAngleCount is returned when the azimuthal count is not a
	// multiple of 4 or the polar count is odd.
	ErrInvalidAngleCount = quadrature.ErrInvalidAngleCount

	// ErrInvalidState is returned when a generation step runs out of order.
	ErrInvalidState = errors.New("invalid generator state")

	// ErrBoundaryMismatch is returned when the domain boundary conditions
	// cannot be linked, such as a periodic side facing a non-periodic one.
	ErrBoundaryMismatch = errors.New("inconsistent boundary conditions")
)

// SegmentationError reports a track walk that could not reach its end point.
// It usually means the geometry has gaps or overlapping cells.
type SegmentationError struct {
	TrackID  int
	Position v3.Vec
	Hops     int
	Reason   string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation of track %d failed at (%g, %g, %g) after %d hops: %s",
		e.TrackID, e.Position.X, e.Position.Y, e.Position.Z, e.Hops, e.Reason)
}
