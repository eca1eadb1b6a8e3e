package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/chazu/trackgen/pkg/trackfile"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cacheNamespace scopes cache keys.
var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("trackgen/segments"))

// CacheKey identifies the segments produced by the current parameters and
// geometry.
func (g *Generator) CacheKey() string {
	p := g.params
	name := fmt.Sprintf("azim=%d polar=%d spacing=%.17g tau=%.17g z=%.17g geometry=%s",
		p.NumAzim, p.NumPolar, p.Spacing, p.MaxOpticalLength, p.Z, g.geom.Fingerprint())
	return uuid.NewSHA1(cacheNamespace, []byte(name)).String()
}

// CachePath returns the cache file for the current parameters, or "" when
// caching is disabled.
func (g *Generator) CachePath() string {
	if g.params.CacheDir == "" {
		return ""
	}
	return filepath.Join(g.params.CacheDir, g.CacheKey()+".trk")
}

func (g *Generator) cacheHeader() trackfile.Header {
	p := g.params
	h := trackfile.Header{
		Version:          trackfile.Version,
		NumAzim:          uint32(p.NumAzim),
		NumPolar:         uint32(p.NumPolar),
		Spacing:          p.Spacing,
		MaxOpticalLength: p.MaxOpticalLength,
		Z:                p.Z,
		Fingerprint:      g.geom.Fingerprint(),
	}
	if g.table != nil {
		h.NumTracks = uint32(g.table.Len())
	}
	return h
}

// loadCache replaces segmentation with the cached segments when a matching
// cache file exists. Tracks must already be laid out and cycled. Any read
// failure is a miss.
func (g *Generator) loadCache() bool {
	path := g.CachePath()
	if path == "" {
		return false
	}
	segs, err := trackfile.ReadFile(path, g.cacheHeader())
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		g.log.Debug("Segment cache miss", zap.String("path", path))
		return false
	case errors.Is(err, trackfile.ErrMismatch):
		g.log.Info("Segment cache parameters differ, regenerating", zap.String("path", path))
		return false
	default:
		g.log.Warn("Failed to read segment cache, regenerating", zap.String("path", path), zap.Error(err))
		return false
	}

	tracks := g.table.All()
	acc := newAccumulator(NewRegionLocks(g.geom.NumRegions()))
	for i, t := range tracks {
		weight := g.trackWeight(t.AzimIndex)
		dir := v2.Vec{X: t.Cos(), Y: t.Sin()}
		travelled := 0.0
		for _, s := range segs[i] {
			mid := t.Start.Add(dir.MulScalar(travelled + s.Length/2))
			if err := acc.add(s.Region, s.Length, weight, mid); err != nil {
				g.log.Warn("Segment cache references unknown region, regenerating",
					zap.String("path", path), zap.Int("track", t.UID), zap.Error(err))
				for _, done := range tracks[:i] {
					done.ClearSegments()
				}
				return false
			}
			travelled += s.Length
		}
		t.Segments = segs[i]
	}
	g.acc = acc
	g.fromCache = true
	g.status = StatusSegmented
	g.log.Info("Loaded segments from cache",
		zap.String("path", path),
		zap.Int("segments", g.NumSegments()))
	return true
}

// writeCache stores the current segments. Failures are logged; the
// generated segments stay valid.
func (g *Generator) writeCache() {
	path := g.CachePath()
	if path == "" {
		return
	}
	if err := trackfile.WriteFile(path, g.cacheHeader(), g.table.All()); err != nil {
		g.log.Warn("Failed to write segment cache", zap.String("path", path), zap.Error(err))
		return
	}
	g.log.Info("Wrote segment cache", zap.String("path", path))
}
