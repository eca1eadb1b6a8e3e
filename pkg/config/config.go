// Package config loads trackgen settings from YAML and turns them into
// generator parameters and a geometry.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/trackgen/pkg/generator"
	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/geometry/csg"
	"github.com/chazu/trackgen/pkg/geometry/sdfgeom"
	"github.com/chazu/trackgen/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Geometry kinds understood by BuildGeometry.
const (
	KindSquare  = "square"
	KindPinCell = "pincell"
	KindAnnular = "annular" // clad pin, sdf backend only
)

// Geometry backends.
const (
	BackendCSG = "csg" // quadric surfaces
	BackendSDF = "sdf" // sdfx distance fields
)

// Config holds all trackgen configuration.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Geometry   GeometryConfig   `yaml:"geometry"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GenerationConfig mirrors generator.Params.
type GenerationConfig struct {
	NumAzim          int     `yaml:"num_azim"`
	NumPolar         int     `yaml:"num_polar"`
	Spacing          float64 `yaml:"spacing"`            // cm
	MaxOpticalLength float64 `yaml:"max_optical_length"` // 0 disables splitting
	Z                float64 `yaml:"z"`
	Threads          int     `yaml:"threads"` // 0 = all CPUs
	MaxSegmentHops   int     `yaml:"max_segment_hops"`
}

// GeometryConfig selects one of the built-in geometries.
type GeometryConfig struct {
	Kind    string `yaml:"kind"`    // square, pincell, annular
	Backend string `yaml:"backend"` // csg (default), sdf

	// square
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	// pincell
	Pitch  float64 `yaml:"pitch"`
	Radius float64 `yaml:"radius"`

	// annular: fuel out to InnerRadius, cladding out to Radius
	InnerRadius float64 `yaml:"inner_radius,omitempty"`

	// Boundary applies to every side unless Sides overrides it.
	Boundary string       `yaml:"boundary"`
	Sides    *SidesConfig `yaml:"sides,omitempty"`

	Fuel      MaterialConfig  `yaml:"fuel"`
	Clad      *MaterialConfig `yaml:"clad,omitempty"`
	Moderator MaterialConfig  `yaml:"moderator"`
}

// SidesConfig sets the boundary condition of each side.
type SidesConfig struct {
	MinX string `yaml:"min_x"`
	MaxX string `yaml:"max_x"`
	MinY string `yaml:"min_y"`
	MaxY string `yaml:"max_y"`
}

// MaterialConfig describes a material by its total cross sections.
type MaterialConfig struct {
	Name   string    `yaml:"name"`
	SigmaT []float64 `yaml:"sigma_t"`
}

// CacheConfig configures the segment cache.
type CacheConfig struct {
	Dir string `yaml:"dir"` // empty disables caching
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // any zap level name; --verbose forces debug
}

// Default returns the default configuration: a 2x2 cm reflective square of
// water, 4 azimuthal angles and 0.1 cm spacing.
func Default() *Config {
	p := generator.DefaultParams()
	return &Config{
		Generation: GenerationConfig{
			NumAzim:          p.NumAzim,
			NumPolar:         p.NumPolar,
			Spacing:          p.Spacing,
			MaxOpticalLength: p.MaxOpticalLength,
			MaxSegmentHops:   p.MaxSegmentHops,
		},
		Geometry: GeometryConfig{
			Kind:      KindSquare,
			Width:     2,
			Height:    2,
			Pitch:     1.26,
			Radius:    0.4,
			Boundary:  "reflective",
			Fuel:      MaterialConfig{Name: "fuel", SigmaT: []float64{0.4, 2.0}},
			Moderator: MaterialConfig{Name: "water", SigmaT: []float64{0.5, 1.25}},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the configuration at path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets TRACKGEN_CACHE_DIR and TRACKGEN_THREADS override
// the file.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("TRACKGEN_CACHE_DIR"); dir != "" {
		c.Cache.Dir = dir
	}
	if v := os.Getenv("TRACKGEN_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.Threads = n
		}
	}
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	g := c.Generation
	if !(g.Spacing > 0) {
		errs = append(errs, fmt.Errorf("generation.spacing %g: %w", g.Spacing, generator.ErrInvalidSpacing))
	}
	if g.NumAzim <= 0 || g.NumPolar <= 0 {
		errs = append(errs, fmt.Errorf("generation.num_azim %d, generation.num_polar %d: %w", g.NumAzim, g.NumPolar, generator.ErrNoAngles))
	} else {
		if g.NumAzim%4 != 0 {
			errs = append(errs, fmt.Errorf("generation.num_azim %d is not a multiple of 4: %w", g.NumAzim, generator.ErrInvalidAngleCount))
		}
		if g.NumPolar%2 != 0 {
			errs = append(errs, fmt.Errorf("generation.num_polar %d is not even: %w", g.NumPolar, generator.ErrInvalidAngleCount))
		}
	}
	if g.MaxOpticalLength < 0 {
		errs = append(errs, fmt.Errorf("generation.max_optical_length %g is negative", g.MaxOpticalLength))
	}
	if g.Threads < 0 {
		errs = append(errs, fmt.Errorf("generation.threads %d is negative", g.Threads))
	}

	geo := c.Geometry
	backend := geo.backend()
	if backend != BackendCSG && backend != BackendSDF {
		errs = append(errs, fmt.Errorf("geometry: unknown backend %q", geo.Backend))
	}
	switch strings.ToLower(geo.Kind) {
	case KindSquare:
		if !(geo.Width > 0) || !(geo.Height > 0) {
			errs = append(errs, fmt.Errorf("geometry: square needs positive width and height, got %g x %g", geo.Width, geo.Height))
		}
		errs = append(errs, geo.Moderator.validate("moderator"))
	case KindPinCell:
		if !(geo.Radius > 0) || !(2*geo.Radius < geo.Pitch) {
			errs = append(errs, fmt.Errorf("geometry: pin radius %g does not fit pitch %g", geo.Radius, geo.Pitch))
		}
		errs = append(errs, geo.Fuel.validate("fuel"), geo.Moderator.validate("moderator"))
	case KindAnnular:
		if backend != BackendSDF {
			errs = append(errs, fmt.Errorf("geometry: annular pins need the %s backend", BackendSDF))
		}
		if !(geo.InnerRadius > 0) || !(geo.InnerRadius < geo.Radius) || !(2*geo.Radius < geo.Pitch) {
			errs = append(errs, fmt.Errorf("geometry: pin radii %g/%g do not fit pitch %g", geo.InnerRadius, geo.Radius, geo.Pitch))
		}
		if geo.Clad == nil {
			errs = append(errs, fmt.Errorf("geometry.clad: missing"))
		} else {
			errs = append(errs, geo.Clad.validate("clad"))
		}
		errs = append(errs, geo.Fuel.validate("fuel"), geo.Moderator.validate("moderator"))
	default:
		errs = append(errs, fmt.Errorf("geometry: unknown kind %q", geo.Kind))
	}
	if _, err := geo.boundaries(); err != nil {
		errs = append(errs, err)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

func (m MaterialConfig) validate(role string) error {
	if len(m.SigmaT) == 0 {
		return fmt.Errorf("geometry.%s: no cross sections", role)
	}
	for i, s := range m.SigmaT {
		if s < 0 {
			return fmt.Errorf("geometry.%s: sigma_t[%d] = %g is negative", role, i, s)
		}
	}
	return nil
}

func (m MaterialConfig) material(fallback string) *csg.Material {
	name := m.Name
	if name == "" {
		name = fallback
	}
	return csg.NewMaterial(name, m.SigmaT...)
}

func (g GeometryConfig) backend() string {
	if g.Backend == "" {
		return BackendCSG
	}
	return strings.ToLower(g.Backend)
}

// boundaries resolves the boundary condition of every side, ordered
// min-x, max-x, min-y, max-y.
func (g GeometryConfig) boundaries() ([4]surface.BoundaryType, error) {
	var bc [4]surface.BoundaryType
	all, err := surface.ParseBoundaryType(g.Boundary)
	if err != nil {
		return bc, fmt.Errorf("geometry.boundary: %w", err)
	}
	bc = [4]surface.BoundaryType{all, all, all, all}
	if g.Sides == nil {
		return bc, nil
	}
	var errs []error
	for i, s := range []string{g.Sides.MinX, g.Sides.MaxX, g.Sides.MinY, g.Sides.MaxY} {
		if s == "" {
			continue
		}
		bt, err := surface.ParseBoundaryType(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("geometry.sides.%s: %w", geometry.Side(i), err))
			continue
		}
		bc[i] = bt
	}
	return bc, errors.Join(errs...)
}

// Params returns the generator parameters.
func (c *Config) Params() generator.Params {
	g := c.Generation
	return generator.Params{
		NumAzim:          g.NumAzim,
		NumPolar:         g.NumPolar,
		Spacing:          g.Spacing,
		MaxOpticalLength: g.MaxOpticalLength,
		Z:                g.Z,
		NumThreads:       g.Threads,
		MaxSegmentHops:   g.MaxSegmentHops,
		CacheDir:         c.Cache.Dir,
	}
}

// BuildGeometry constructs the configured geometry. Surface ids come from
// ids; the sdf backend does not use them.
func (c *Config) BuildGeometry(ids *surface.IDAllocator) (geometry.Geometry, error) {
	geo := c.Geometry
	bc, err := geo.boundaries()
	if err != nil {
		return nil, err
	}
	uniform := bc[0] == bc[1] && bc[0] == bc[2] && bc[0] == bc[3]
	kind := strings.ToLower(geo.Kind)
	if (kind == KindPinCell || kind == KindAnnular) && !uniform {
		return nil, fmt.Errorf("geometry: pin cell needs the same boundary on every side")
	}
	moderator := geo.Moderator.material("moderator")

	switch geo.backend() {
	case BackendCSG:
		switch kind {
		case KindSquare:
			g, err := csg.NewBox(ids, 0, 0, geo.Width, geo.Height, bc, moderator)
			if err != nil {
				return nil, err
			}
			return g, nil
		case KindPinCell:
			g, err := csg.NewPinCell(ids, geo.Pitch, geo.Radius, bc[0], geo.Fuel.material("fuel"), moderator)
			if err != nil {
				return nil, err
			}
			return g, nil
		}
	case BackendSDF:
		var (
			g   *sdfgeom.Geometry
			err error
		)
		switch kind {
		case KindSquare:
			size := v2.Vec{X: geo.Width, Y: geo.Height}
			g, err = sdfgeom.New(fmt.Sprintf("sdf box %gx%g", geo.Width, geo.Height), sdf.NewBox2(size.MulScalar(0.5), size), bc, moderator)
		case KindPinCell:
			g, err = sdfgeom.NewPinCell(geo.Pitch, geo.Radius, bc[0], geo.Fuel.material("fuel"), moderator)
		case KindAnnular:
			if geo.Clad == nil {
				return nil, fmt.Errorf("geometry.clad: missing")
			}
			g, err = sdfgeom.NewAnnularPin(geo.Pitch, geo.InnerRadius, geo.Radius, bc[0], geo.Fuel.material("fuel"), geo.Clad.material("clad"), moderator)
		default:
			return nil, fmt.Errorf("geometry: unknown kind %q for backend %s", geo.Kind, BackendSDF)
		}
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("geometry: unknown backend %q", geo.Backend)
	}
	return nil, fmt.Errorf("geometry: unknown kind %q for backend %s", geo.Kind, geo.backend())
}
