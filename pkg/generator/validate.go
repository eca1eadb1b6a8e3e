package generator

import (
	"errors"
	"fmt"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/surface"
)

// validateParams reports every invalid parameter at once.
func validateParams(p Params) error {
	var errs []error
	if !(p.Spacing > 0) {
		errs = append(errs, fmt.Errorf("spacing %g: %w", p.Spacing, ErrInvalidSpacing))
	}
	if p.NumAzim <= 0 || p.NumPolar <= 0 {
		errs = append(errs, fmt.Errorf("num azim %d, num polar %d: %w", p.NumAzim, p.NumPolar, ErrNoAngles))
	} else {
		if p.NumAzim%4 != 0 {
			errs = append(errs, fmt.Errorf("num azim %d is not a multiple of 4: %w", p.NumAzim, ErrInvalidAngleCount))
		}
		if p.NumPolar%2 != 0 {
			errs = append(errs, fmt.Errorf("num polar %d is not even: %w", p.NumPolar, ErrInvalidAngleCount))
		}
	}
	if p.MaxOpticalLength < 0 {
		errs = append(errs, fmt.Errorf("max optical length %g is negative", p.MaxOpticalLength))
	}
	if p.NumThreads < 0 {
		errs = append(errs, fmt.Errorf("num threads %d is negative", p.NumThreads))
	}
	if p.MaxSegmentHops < 0 {
		errs = append(errs, fmt.Errorf("max segment hops %d is negative", p.MaxSegmentHops))
	}
	return errors.Join(errs...)
}

// checkBoundaryConditions requires a boundary condition on every side and
// periodic sides to come in opposite pairs.
func checkBoundaryConditions(b geometry.Bounds) error {
	var errs []error
	for s := geometry.SideMinX; s <= geometry.SideMaxY; s++ {
		if b.BoundaryAt(s) == surface.BoundaryNone {
			errs = append(errs, fmt.Errorf("side %s has no boundary condition: %w", s, ErrBoundaryMismatch))
		}
	}
	pairs := [][2]geometry.Side{
		{geometry.SideMinX, geometry.SideMaxX},
		{geometry.SideMinY, geometry.SideMaxY},
	}
	for _, p := range pairs {
		lo, hi := b.BoundaryAt(p[0]), b.BoundaryAt(p[1])
		if (lo == surface.Periodic) != (hi == surface.Periodic) {
			errs = append(errs, fmt.Errorf("side %s is %s but side %s is %s: %w", p[0], lo, p[1], hi, ErrBoundaryMismatch))
		}
	}
	return errors.Join(errs...)
}
