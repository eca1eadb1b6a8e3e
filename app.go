package main

import (
	"context"

	"github.com/chazu/trackgen/pkg/config"
	"github.com/chazu/trackgen/pkg/generator"
	"github.com/chazu/trackgen/pkg/surface"
	"go.uber.org/zap"
)

// App runs track generation for a configuration and reports the result.
type App struct {
	log *zap.Logger
}

// AngleData summarises one first-quadrant azimuthal angle.
type AngleData struct {
	Index          int     `json:"index"`
	Phi            float64 `json:"phi"`
	Spacing        float64 `json:"spacing"`
	NumX           int     `json:"numX"`
	NumY           int     `json:"numY"`
	TracksPerCycle int     `json:"tracksPerCycle"`
	NumCycles      int     `json:"numCycles"`
	CycleLength    float64 `json:"cycleLength"`
}

// RegionData summarises one flat source region.
type RegionData struct {
	Region   int        `json:"region"`
	Volume   float64    `json:"volume"`
	Area     float64    `json:"area"`
	Centroid [2]float64 `json:"centroid"`
}

// TrackData is one track with its segments.
type TrackData struct {
	UID      int           `json:"uid"`
	Azim     int           `json:"azim"`
	Start    [2]float64    `json:"start"`
	End      [2]float64    `json:"end"`
	Cycle    int           `json:"cycle"`
	Group    int           `json:"group"`
	Segments []SegmentData `json:"segments"`
}

// SegmentData is one segment of a track.
type SegmentData struct {
	Region int     `json:"region"`
	Length float64 `json:"length"`
}

// Result is the JSON-serializable outcome of a generation run.
type Result struct {
	NumTracks      int          `json:"numTracks"`
	NumSegments    int          `json:"numSegments"`
	MaxNumSegments int          `json:"maxNumSegments"`
	NumCycles      int          `json:"numCycles"`
	NumGroups      int          `json:"numGroups"`
	FromCache      bool         `json:"fromCache"`
	CachePath      string       `json:"cachePath,omitempty"`
	Angles         []AngleData  `json:"angles"`
	Regions        []RegionData `json:"regions"`
	Tracks         []TrackData  `json:"tracks,omitempty"`
	Errors         []string     `json:"errors"`
}

// NewApp creates an App that logs to log. A nil logger disables logging.
func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{log: log}
}

// Generate validates cfg, builds its geometry and generates tracks. Failures
// are reported in Result.Errors; the returned error is only set for a
// failed run so callers can pick an exit status.
func (a *App) Generate(ctx context.Context, cfg *config.Config, withTracks bool) (Result, error) {
	result := Result{
		Angles:  []AngleData{},
		Regions: []RegionData{},
		Errors:  []string{},
	}
	fail := func(err error) (Result, error) {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	// Step 1: Validate and build the geometry.
	if err := cfg.Validate(); err != nil {
		a.log.Error("Invalid configuration", zap.Error(err))
		return fail(err)
	}
	geom, err := cfg.BuildGeometry(surface.NewIDAllocator())
	if err != nil {
		a.log.Error("Geometry construction failed", zap.Error(err))
		return fail(err)
	}

	// Step 2: Generate tracks and segments.
	gen, err := generator.New(geom, cfg.Params())
	if err != nil {
		return fail(err)
	}
	gen.SetLogger(a.log.Named("generator"))
	if err := gen.GenerateTracks(ctx); err != nil {
		a.log.Error("Track generation failed", zap.Error(err))
		return fail(err)
	}

	// Step 3: Summarise.
	result.NumTracks = gen.NumTracks()
	result.NumSegments = gen.NumSegments()
	result.MaxNumSegments = gen.MaxNumSegments()
	result.NumCycles = len(gen.Cycles())
	result.NumGroups = gen.NumParallelGroups()
	result.FromCache = gen.FromCache()
	result.CachePath = gen.CachePath()

	q := gen.Quadrature()
	for i := 0; i < q.NumAzim()/4; i++ {
		result.Angles = append(result.Angles, AngleData{
			Index:          i,
			Phi:            q.Phi(i),
			Spacing:        gen.AzimSpacing(i),
			NumX:           gen.NumX(i),
			NumY:           gen.NumY(i),
			TracksPerCycle: gen.TracksPerCycle(i),
			NumCycles:      gen.NumCycles(i),
			CycleLength:    gen.CycleLength(i),
		})
	}

	volumes, areas, centroids := gen.RegionVolumes(), gen.RegionAreas(), gen.RegionCentroids()
	for r := range volumes {
		result.Regions = append(result.Regions, RegionData{
			Region:   r,
			Volume:   volumes[r],
			Area:     areas[r],
			Centroid: [2]float64{centroids[r].X, centroids[r].Y},
		})
	}

	if withTracks {
		for _, t := range gen.Tracks() {
			td := TrackData{
				UID:      t.UID,
				Azim:     t.AzimIndex,
				Start:    [2]float64{t.Start.X, t.Start.Y},
				End:      [2]float64{t.End.X, t.End.Y},
				Cycle:    t.CycleID,
				Group:    t.ParallelGroup,
				Segments: make([]SegmentData, len(t.Segments)),
			}
			for i, s := range t.Segments {
				td.Segments[i] = SegmentData{Region: s.Region, Length: s.Length}
			}
			result.Tracks = append(result.Tracks, td)
		}
	}

	a.log.Info("Generation complete",
		zap.Int("tracks", result.NumTracks),
		zap.Int("segments", result.NumSegments),
		zap.Bool("from_cache", result.FromCache))
	return result, nil
}
