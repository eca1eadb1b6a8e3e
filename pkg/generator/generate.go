package generator

import (
	"context"
)

// GenerateTracks runs every step from the current state to Segmented. When
// a cache directory is set and holds segments for the same parameters and
// geometry they are loaded instead of segmenting; otherwise the new segments
// are written to it.
//
// Layout and cycling always run on a fresh generator because the cache
// stores segments only; rebuilding the tracks costs O(angles).
func (g *Generator) GenerateTracks(ctx context.Context) error {
	if g.status == StatusSegmented {
		return nil
	}
	if g.status == StatusUninitialized {
		if err := g.Layout(); err != nil {
			g.reset()
			return err
		}
	}
	if g.status == StatusLaidOut {
		if err := g.Cycle(); err != nil {
			g.reset()
			return err
		}
	}
	if g.loadCache() {
		return nil
	}
	if err := g.Segmentize(ctx); err != nil {
		g.reset()
		return err
	}
	g.writeCache()
	return nil
}
