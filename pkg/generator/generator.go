// Package generator lays out tracks over a 2D domain, links them into cycles
// across reflective and periodic boundaries, segments them against a
// geometry, splits optically long segments, accumulates region volumes and
// caches the segments on disk.
//
// A Generator moves through the states Uninitialized, LaidOut, Cycled and
// Segmented. Changing any parameter, the geometry or the quadrature returns
// it to Uninitialized and discards all tracks, segments and volumes.
package generator

import (
	"math"
	"runtime"

	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/quadrature"
	"github.com/chazu/trackgen/pkg/track"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"go.uber.org/zap"
)

// Status is the generation state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLaidOut
	StatusCycled
	StatusSegmented
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLaidOut:
		return "laid out"
	case StatusCycled:
		return "cycled"
	case StatusSegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// DefaultMaxSegmentHops bounds the number of surface crossings a single
// track walk may take.
const DefaultMaxSegmentHops = 100000

// Params are the generation parameters.
type Params struct {
	NumAzim  int
	NumPolar int

	// Spacing is the requested perpendicular distance between tracks. The
	// achieved spacing never exceeds it.
	Spacing float64

	// MaxOpticalLength bounds segment length times removal rate. Zero
	// disables splitting.
	MaxOpticalLength float64

	// Z is the axial height of the 2D plane.
	Z float64

	// NumThreads is the segmentation worker limit; zero means
	// runtime.NumCPU().
	NumThreads int

	// MaxSegmentHops bounds each track walk; zero means
	// DefaultMaxSegmentHops.
	MaxSegmentHops int

	// CacheDir holds segment cache files. Empty disables caching.
	CacheDir string
}

// DefaultParams returns the parameters used when none are given.
func DefaultParams() Params {
	return Params{
		NumAzim:          4,
		NumPolar:         2,
		Spacing:          0.1,
		MaxOpticalLength: 10,
		NumThreads:       runtime.NumCPU(),
		MaxSegmentHops:   DefaultMaxSegmentHops,
	}
}

func (p Params) threads() int {
	if p.NumThreads <= 0 {
		return runtime.NumCPU()
	}
	return p.NumThreads
}

func (p Params) maxHops() int {
	if p.MaxSegmentHops <= 0 {
		return DefaultMaxSegmentHops
	}
	return p.MaxSegmentHops
}

// Generator produces tracks and segments for one geometry.
type Generator struct {
	geom   geometry.Geometry
	params Params
	log    *zap.Logger

	// custom is a caller-supplied quadrature; nil selects NewEqualAngle.
	custom *quadrature.Quadrature
	quad   *quadrature.Quadrature

	status    Status
	fromCache bool

	bounds       geometry.Bounds
	table        *track.Table
	numX, numY   []int     // per azimuthal index in [0, NumAzim/2)
	azimSpacings []float64 // achieved spacing per azimuthal index
	ends         []endpoints

	cycleLengths   []float64 // per first-quadrant index
	tracksPerCycle []int
	numCycles      []int
	cycles         []*track.Cycle
	numGroups      int
	groups         [][]*track.Track2D

	acc *accumulator
}

// New returns a generator for geom. The parameters are validated but no
// tracks are produced until GenerateTracks or Layout is called.
func New(geom geometry.Geometry, params Params) (*Generator, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	return &Generator{
		geom:   geom,
		params: params,
		log:    zap.NewNop(),
	}, nil
}

// SetLogger replaces the logger. A nil logger disables logging.
func (g *Generator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	g.log = l
}

// Params returns the current parameters.
func (g *Generator) Params() Params { return g.params }

// Status returns the current state.
func (g *Generator) Status() Status { return g.status }

// FromCache reports whether the current segments were loaded from the cache.
func (g *Generator) FromCache() bool { return g.fromCache }

// Geometry returns the geometry being segmented.
func (g *Generator) Geometry() geometry.Geometry { return g.geom }

// reset discards all derived state.
func (g *Generator) reset() {
	g.status = StatusUninitialized
	g.fromCache = false
	g.quad = nil
	g.bounds = geometry.Bounds{}
	g.table = nil
	g.numX, g.numY, g.azimSpacings, g.ends = nil, nil, nil, nil
	g.cycleLengths, g.tracksPerCycle, g.numCycles = nil, nil, nil
	g.cycles = nil
	g.numGroups = 0
	g.groups = nil
	g.acc = nil
}

// SetGeometry replaces the geometry.
func (g *Generator) SetGeometry(geom geometry.Geometry) {
	g.geom = geom
	g.reset()
}

// SetNumAzim sets the number of azimuthal angles.
func (g *Generator) SetNumAzim(n int) {
	g.params.NumAzim = n
	g.custom = nil
	g.reset()
}

// SetNumPolar sets the number of polar angles.
func (g *Generator) SetNumPolar(n int) {
	g.params.NumPolar = n
	g.custom = nil
	g.reset()
}

// SetSpacing sets the requested track spacing.
func (g *Generator) SetSpacing(s float64) {
	g.params.Spacing = s
	g.reset()
}

// SetMaxOpticalLength sets the splitting threshold.
func (g *Generator) SetMaxOpticalLength(tau float64) {
	g.params.MaxOpticalLength = tau
	g.reset()
}

// SetZ sets the axial height of the 2D plane.
func (g *Generator) SetZ(z float64) {
	g.params.Z = z
	g.reset()
}

// SetNumThreads sets the segmentation worker limit.
func (g *Generator) SetNumThreads(n int) {
	g.params.NumThreads = n
	g.reset()
}

// SetCacheDir sets the segment cache directory.
func (g *Generator) SetCacheDir(dir string) {
	g.params.CacheDir = dir
	g.reset()
}

// SetQuadrature supplies an external quadrature. Its angle counts replace
// NumAzim and NumPolar. Layout adjusts a copy of its azimuthal angles, so q
// itself is never modified.
func (g *Generator) SetQuadrature(q *quadrature.Quadrature) {
	g.custom = q
	if q != nil {
		g.params.NumAzim = q.NumAzim()
		g.params.NumPolar = q.NumPolar()
	}
	g.reset()
}

// Quadrature returns the quadrature in use after Layout, or nil.
func (g *Generator) Quadrature() *quadrature.Quadrature { return g.quad }

// Bounds returns the domain bounds found by Layout.
func (g *Generator) Bounds() geometry.Bounds { return g.bounds }

// TrackTable returns the tracks by azimuthal index, or nil before Layout.
func (g *Generator) TrackTable() *track.Table { return g.table }

// Tracks returns every track ordered by uid, or nil before Layout.
func (g *Generator) Tracks() []*track.Track2D {
	if g.table == nil {
		return nil
	}
	return g.table.All()
}

// NumTracks returns the total number of tracks.
func (g *Generator) NumTracks() int {
	if g.table == nil {
		return 0
	}
	return g.table.Len()
}

// NumX returns the number of tracks starting on the y = min edge at
// azimuthal index a, or 0 before Layout.
func (g *Generator) NumX(a int) int { return at(g.numX, a) }

// NumY returns the number of tracks starting on an x edge at azimuthal
// index a.
func (g *Generator) NumY(a int) int { return at(g.numY, a) }

// AzimSpacing returns the achieved perpendicular spacing at azimuthal
// index a.
func (g *Generator) AzimSpacing(a int) float64 { return at(g.azimSpacings, a) }

// at returns s[i], or the zero value when i is out of range, as it is for
// every per-angle slice before Layout.
func at[T any](s []T, i int) T {
	if i < 0 || i >= len(s) {
		var zero T
		return zero
	}
	return s[i]
}

// NumSegments returns the total segment count.
func (g *Generator) NumSegments() int {
	if g.table == nil {
		return 0
	}
	return g.table.NumSegments()
}

// MaxNumSegments returns the largest segment count of any track.
func (g *Generator) MaxNumSegments() int {
	if g.table == nil {
		return 0
	}
	return g.table.MaxNumSegments()
}

// TotalWeight returns the integration weight of a track at azimuthal index a
// and polar index p: 4π times the azimuthal and polar weights, the achieved
// spacing and sin θ. It is 0 before Layout or for an index out of range.
func (g *Generator) TotalWeight(a, p int) float64 {
	q := g.quad
	if q == nil || a < 0 || a >= len(g.azimSpacings) || p < 0 || p >= q.NumPolar()/2 {
		return 0
	}
	return 4 * math.Pi * q.AzimWeight(a) * q.PolarWeight(p) * g.azimSpacings[a] * q.SinTheta(p)
}

// TrackCoordinates returns the endpoints of every track in uid order as
// x0, y0, z, x1, y1, z.
func (g *Generator) TrackCoordinates() []float64 {
	tracks := g.Tracks()
	out := make([]float64, 0, 6*len(tracks))
	for _, t := range tracks {
		out = append(out, t.Start.X, t.Start.Y, g.params.Z, t.End.X, t.End.Y, g.params.Z)
	}
	return out
}

// SegmentCoordinate locates one segment in space.
type SegmentCoordinate struct {
	TrackID int
	Region  int
	Start   v2.Vec
	End     v2.Vec
}

// SegmentCoordinates returns the start and end point of every segment, in
// track uid order.
func (g *Generator) SegmentCoordinates() []SegmentCoordinate {
	out := make([]SegmentCoordinate, 0, g.NumSegments())
	for _, t := range g.Tracks() {
		dir := v2.Vec{X: t.Cos(), Y: t.Sin()}
		pos := t.Start
		for _, s := range t.Segments {
			next := pos.Add(dir.MulScalar(s.Length))
			out = append(out, SegmentCoordinate{TrackID: t.UID, Region: s.Region, Start: pos, End: next})
			pos = next
		}
	}
	return out
}
