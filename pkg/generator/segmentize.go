package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/track"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// nudge moves a probe point off the surface it sits on.
	nudge = 1e-10

	// endTolerance is how close to the end point a crossing may lie and
	// still be treated as the end of the track.
	endTolerance = 1e-10
)

// Segmentize walks every track against the geometry, group by group, with
// at most NumThreads concurrent walks. Segments longer than the maximum
// optical length are then split.
func (g *Generator) Segmentize(ctx context.Context) error {
	if g.status != StatusCycled {
		return fmt.Errorf("segmentation requires state %s, have %s: %w", StatusCycled, g.status, ErrInvalidState)
	}
	began := time.Now()
	if err := g.segmentGroups(ctx, g.groups, g.params.threads()); err != nil {
		return err
	}
	added := g.splitSegments()
	g.status = StatusSegmented

	g.log.Info("Segmented tracks",
		zap.Int("segments", g.NumSegments()),
		zap.Int("max_segments", g.MaxNumSegments()),
		zap.Int("split_added", added),
		zap.Duration("elapsed", time.Since(began)))
	return nil
}

// segmentGroups segments the tracks of each group in turn. Groups run one
// after another; tracks inside a group run concurrently.
func (g *Generator) segmentGroups(ctx context.Context, groups [][]*track.Track2D, threads int) error {
	g.acc = newAccumulator(NewRegionLocks(g.geom.NumRegions()))
	for i, group := range groups {
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(threads)
		for _, t := range group {
			eg.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return g.segmentTrack(t)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		g.log.Debug("Segmented parallel group", zap.Int("group", i), zap.Int("tracks", len(group)))
	}
	return nil
}

// segmentTrack walks t from start to end, emitting one segment per region
// crossed and adding each to the region accumulator.
func (g *Generator) segmentTrack(t *track.Track2D) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic segmenting track %d: %v", t.UID, r)
		}
	}()

	start := v3.Vec{X: t.Start.X, Y: t.Start.Y, Z: g.params.Z}
	dir := geometry.Flat(t.Phi)
	u := dir.Unit()
	flat := v2.Vec{X: u.X, Y: u.Y}
	total := t.Length()
	weight := g.trackWeight(t.AzimIndex)
	maxHops := g.params.maxHops()

	t.ClearSegments()
	pos := start
	travelled := 0.0
	for hops := 0; ; hops++ {
		if hops >= maxHops {
			return &SegmentationError{TrackID: t.UID, Position: pos, Hops: hops, Reason: "hop limit reached"}
		}
		probe := pos.Add(u.MulScalar(nudge))
		region, ok := g.geom.RegionContaining(probe)
		if !ok {
			return &SegmentationError{TrackID: t.UID, Position: pos, Hops: hops, Reason: "position is outside every region"}
		}

		remaining := total - travelled
		step := remaining
		last := true
		if hit, ok := g.geom.NearestIntersection(probe, dir); ok {
			if d := hit.Distance + nudge; d < remaining-endTolerance {
				step, last = d, false
			}
		}

		mid := t.Start.Add(flat.MulScalar(travelled + step/2))
		if err := g.acc.add(region, step, weight, mid); err != nil {
			return &SegmentationError{TrackID: t.UID, Position: pos, Hops: hops, Reason: err.Error()}
		}
		t.AddSegment(track.Segment{Region: region, Length: step})
		if last {
			return nil
		}
		travelled += step
		pos = start.Add(u.MulScalar(travelled))
	}
}

// splitSegments applies the optical length limit to every track and returns
// the number of segments added.
func (g *Generator) splitSegments() int {
	if g.params.MaxOpticalLength <= 0 {
		return 0
	}
	added := 0
	for _, t := range g.table.All() {
		added += track.SplitSegments(t, g.geom.RemovalRate, g.params.MaxOpticalLength)
	}
	return added
}
