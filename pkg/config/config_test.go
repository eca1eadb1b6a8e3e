package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/trackgen/pkg/generator"
	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	p := cfg.Params()
	assert.Equal(t, 4, p.NumAzim)
	assert.Equal(t, 0.1, p.Spacing)
	assert.Empty(t, p.CacheDir)

	g, err := cfg.BuildGeometry(surface.NewIDAllocator())
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumRegions())
	b, err := g.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, 2, b.Width(), 1e-12)
	assert.Equal(t, surface.Reflective, b.BoundaryAt(geometry.SideMaxY))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("TRACKGEN_THREADS", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Generation, cfg.Generation)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackgen.yaml")
	src := `
generation:
  num_azim: 16
  spacing: 0.02
  max_optical_length: 0.5
geometry:
  kind: pincell
  pitch: 1.26
  radius: 0.4
  boundary: periodic
cache:
  dir: /tmp/tracks
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	p := cfg.Params()
	assert.Equal(t, 16, p.NumAzim)
	assert.Equal(t, 2, p.NumPolar, "unset fields keep their defaults")
	assert.Equal(t, 0.02, p.Spacing)
	assert.Equal(t, 0.5, p.MaxOpticalLength)
	assert.Equal(t, "/tmp/tracks", p.CacheDir)

	g, err := cfg.BuildGeometry(surface.NewIDAllocator())
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumRegions())
	b, err := g.Bounds()
	require.NoError(t, err)
	assert.Equal(t, surface.Periodic, b.BoundaryAt(geometry.SideMinX))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation: [1, 2"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRACKGEN_CACHE_DIR", "/var/cache/trackgen")
	t.Setenv("TRACKGEN_THREADS", "3")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/trackgen", cfg.Cache.Dir)
	assert.Equal(t, 3, cfg.Generation.Threads)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Generation.NumAzim = 32
	cfg.Geometry.Kind = KindPinCell
	cfg.Geometry.Sides = &SidesConfig{MinY: "vacuum", MaxY: "vacuum"}

	t.Setenv("TRACKGEN_CACHE_DIR", "")
	t.Setenv("TRACKGEN_THREADS", "")
	path := filepath.Join(t.TempDir(), "nested", "trackgen.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Generation.Spacing = 0
	cfg.Generation.NumAzim = 6
	cfg.Geometry.Kind = "hexagon"
	cfg.Geometry.Boundary = "sticky"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, generator.ErrInvalidSpacing)
	assert.ErrorIs(t, err, generator.ErrInvalidAngleCount)
	assert.Contains(t, err.Error(), `unknown kind "hexagon"`)
	assert.Contains(t, err.Error(), "geometry.boundary")
	assert.Contains(t, err.Error(), `unknown level "loud"`)
}

func TestValidateLogLevels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error", "WARN"} {
		cfg := Default()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q", level)
	}
}

func TestValidatePinCell(t *testing.T) {
	cfg := Default()
	cfg.Geometry.Kind = KindPinCell
	cfg.Geometry.Radius = 0.7
	assert.ErrorContains(t, cfg.Validate(), "does not fit pitch")

	cfg.Geometry.Radius = 0.4
	cfg.Geometry.Fuel.SigmaT = nil
	assert.ErrorContains(t, cfg.Validate(), "geometry.fuel: no cross sections")
}

func TestSidesOverrideBoundary(t *testing.T) {
	cfg := Default()
	cfg.Geometry.Sides = &SidesConfig{MinX: "vacuum", MaxX: "vacuum"}
	g, err := cfg.BuildGeometry(surface.NewIDAllocator())
	require.NoError(t, err)
	b, err := g.Bounds()
	require.NoError(t, err)
	assert.Equal(t, surface.Vacuum, b.BoundaryAt(geometry.SideMinX))
	assert.Equal(t, surface.Vacuum, b.BoundaryAt(geometry.SideMaxX))
	assert.Equal(t, surface.Reflective, b.BoundaryAt(geometry.SideMinY))

	cfg.Geometry.Kind = KindPinCell
	_, err = cfg.BuildGeometry(surface.NewIDAllocator())
	assert.ErrorContains(t, err, "same boundary on every side")
}

func TestSDFBackend(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		regions int
	}{
		{"square", KindSquare, 1},
		{"pin cell", KindPinCell, 2},
		{"annular", KindAnnular, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Geometry.Backend = BackendSDF
			cfg.Geometry.Kind = tt.kind
			cfg.Geometry.InnerRadius = 0.3
			cfg.Geometry.Clad = &MaterialConfig{Name: "zirc", SigmaT: []float64{0.3}}
			require.NoError(t, cfg.Validate())

			g, err := cfg.BuildGeometry(surface.NewIDAllocator())
			require.NoError(t, err)
			assert.Equal(t, tt.regions, g.NumRegions())
			_, err = g.Bounds()
			require.NoError(t, err)
		})
	}
}

func TestAnnularNeedsSDFBackend(t *testing.T) {
	cfg := Default()
	cfg.Geometry.Kind = KindAnnular
	cfg.Geometry.InnerRadius = 0.3
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need the sdf backend")
	assert.Contains(t, err.Error(), "geometry.clad: missing")

	_, err = cfg.BuildGeometry(surface.NewIDAllocator())
	assert.ErrorContains(t, err, `unknown kind "annular" for backend csg`)

	cfg.Geometry.Backend = "voxel"
	assert.ErrorContains(t, cfg.Validate(), `unknown backend "voxel"`)
}
