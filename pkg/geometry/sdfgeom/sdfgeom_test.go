package sdfgeom

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/trackgen/pkg/generator"
	"github.com/chazu/trackgen/pkg/geometry"
	"github.com/chazu/trackgen/pkg/geometry/csg"
	"github.com/chazu/trackgen/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func fuel() *csg.Material  { return csg.NewMaterial("fuel", 0.4, 2.0) }
func water() *csg.Material { return csg.NewMaterial("water", 0.5, 1.25) }

func pin(t *testing.T) *Geometry {
	t.Helper()
	g, err := NewPinCell(1.26, 0.4, surface.Reflective, fuel(), water())
	if err != nil {
		t.Fatalf("NewPinCell: %v", err)
	}
	return g
}

func TestRegionContaining(t *testing.T) {
	g := pin(t)
	tests := []struct {
		name   string
		p      v3.Vec
		region int
		ok     bool
	}{
		{"centre", v3.Vec{}, 0, true},
		{"inside pin", v3.Vec{X: 0.39}, 0, true},
		{"outside pin", v3.Vec{X: 0.41}, 1, true},
		{"corner", v3.Vec{X: 0.6, Y: -0.6}, 1, true},
		{"outside domain", v3.Vec{X: 0.64}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := g.RegionContaining(tt.p)
			if ok != tt.ok || (ok && r != tt.region) {
				t.Errorf("RegionContaining(%v) = %d, %v; want %d, %v", tt.p, r, ok, tt.region, tt.ok)
			}
		})
	}
	if g.NumRegions() != 2 {
		t.Errorf("expected 2 regions, got %d", g.NumRegions())
	}
	if g.RegionName(0) != "fuel" || g.RegionName(1) != "background" {
		t.Errorf("unexpected region names %q, %q", g.RegionName(0), g.RegionName(1))
	}
}

func TestNearestIntersection(t *testing.T) {
	g := pin(t)
	tests := []struct {
		name   string
		origin v3.Vec
		azim   float64
		want   float64
		hit    bool
	}{
		{"enter pin from the left", v3.Vec{X: -0.63}, 0, 0.23, true},
		{"leave pin from the centre", v3.Vec{}, math.Pi / 4, 0.4, true},
		{"leave pin downwards", v3.Vec{Y: 0.1}, 3 * math.Pi / 2, 0.5, true},
		{"miss above the pin", v3.Vec{X: -0.63, Y: 0.5}, 0, 0, false},
		{"moving away from the pin", v3.Vec{X: 0.5}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := g.NearestIntersection(tt.origin, geometry.Flat(tt.azim))
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if !ok {
				return
			}
			if math.Abs(hit.Distance-tt.want) > 1e-12 {
				t.Errorf("distance = %.15g, want %g", hit.Distance, tt.want)
			}
			if hit.Surface != nil {
				t.Error("sdf hits carry no surface")
			}
		})
	}
}

func TestBoundsAndRemovalRate(t *testing.T) {
	g := pin(t)
	b, err := g.Bounds()
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if math.Abs(b.Width()-1.26) > 1e-15 || math.Abs(b.Box.Min.X+0.63) > 1e-15 {
		t.Errorf("unexpected bounds %+v", b.Box)
	}
	if b.BoundaryAt(geometry.SideMinY) != surface.Reflective {
		t.Errorf("expected reflective min-y, got %v", b.BoundaryAt(geometry.SideMinY))
	}
	if g.RemovalRate(0) != 2.0 || g.RemovalRate(1) != 1.25 || g.RemovalRate(7) != 0 {
		t.Errorf("removal rates %g, %g, %g", g.RemovalRate(0), g.RemovalRate(1), g.RemovalRate(7))
	}
}

func TestConstructorErrors(t *testing.T) {
	if _, err := NewPinCell(1, 0.5, surface.Reflective, fuel(), water()); err == nil {
		t.Error("expected an error for a pin touching the walls")
	}
	if _, err := NewAnnularPin(1.26, 0.45, 0.4, surface.Reflective, fuel(), water(), water()); err == nil {
		t.Error("expected an error for an inner radius above the outer one")
	}
	if _, err := NewBoxedPin(1, v2.Vec{X: 0.4}, v2.Vec{X: 0.3, Y: 0.3}, surface.Reflective, fuel(), water()); err == nil {
		t.Error("expected an error for an insert crossing the wall")
	}
	_, err := New("flat", sdf.NewBox2(v2.Vec{}, v2.Vec{X: 1}), [4]surface.BoundaryType{}, water())
	if !errors.Is(err, ErrEmptyDomain) {
		t.Errorf("expected ErrEmptyDomain, got %v", err)
	}
	g := pin(t)
	if _, err := g.AddRegion("nothing", nil, fuel()); err == nil {
		t.Error("expected an error for a nil shape")
	}
}

func TestFingerprint(t *testing.T) {
	a, b := pin(t), pin(t)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical geometries must share a fingerprint")
	}
	wider, err := NewPinCell(1.26, 0.45, surface.Reflective, fuel(), water())
	if err != nil {
		t.Fatal(err)
	}
	if wider.Fingerprint() == a.Fingerprint() {
		t.Error("a different radius must change the fingerprint")
	}
	vacuum, err := NewPinCell(1.26, 0.4, surface.Vacuum, fuel(), water())
	if err != nil {
		t.Fatal(err)
	}
	if vacuum.Fingerprint() == a.Fingerprint() {
		t.Error("a different boundary must change the fingerprint")
	}
}

func generate(t *testing.T, geom geometry.Geometry, numAzim int, spacing float64) *generator.Generator {
	t.Helper()
	p := generator.DefaultParams()
	p.NumAzim = numAzim
	p.Spacing = spacing
	p.NumThreads = 4
	p.MaxOpticalLength = 0
	g, err := generator.New(geom, p)
	if err != nil {
		t.Fatalf("generator.New: %v", err)
	}
	if err := g.GenerateTracks(context.Background()); err != nil {
		t.Fatalf("GenerateTracks: %v", err)
	}
	return g
}

// TestMatchesSurfaceGeometry segments the same pin cell described by
// surfaces and by distance fields and compares the region volumes.
func TestMatchesSurfaceGeometry(t *testing.T) {
	ref, err := csg.NewPinCell(surface.NewIDAllocator(), 1.26, 0.4, surface.Reflective, fuel(), water())
	if err != nil {
		t.Fatal(err)
	}
	want := generate(t, ref, 8, 0.05).RegionVolumes()
	got := generate(t, pin(t), 8, 0.05).RegionVolumes()
	for r := range want {
		if rel := math.Abs(got[r]-want[r]) / want[r]; rel > 1e-7 {
			t.Errorf("region %d: sdf volume %.12g, surface volume %.12g", r, got[r], want[r])
		}
	}
}

func TestAnnularPinAreas(t *testing.T) {
	g, err := NewAnnularPin(1.26, 0.3, 0.4, surface.Periodic, fuel(), csg.NewMaterial("zirc", 0.3), water())
	if err != nil {
		t.Fatal(err)
	}
	gen := generate(t, g, 16, 0.01)
	areas := gen.RegionAreas()
	if len(areas) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(areas))
	}
	want := []float64{math.Pi * 0.09, math.Pi * (0.16 - 0.09), 1.26*1.26 - math.Pi*0.16}
	var total float64
	for r, a := range areas {
		total += a
		if math.Abs(a-want[r]) > 0.01 {
			t.Errorf("region %d area %g, want about %g", r, a, want[r])
		}
	}
	if math.Abs(total-1.26*1.26) > 1e-9 {
		t.Errorf("areas sum to %g, want %g", total, 1.26*1.26)
	}
}

func TestBoxedPinCentroid(t *testing.T) {
	centre := v2.Vec{X: 0.2, Y: -0.1}
	g, err := NewBoxedPin(1.26, centre, v2.Vec{X: 0.3, Y: 0.2}, surface.Reflective, fuel(), water())
	if err != nil {
		t.Fatal(err)
	}
	gen := generate(t, g, 16, 0.01)
	c := gen.RegionCentroids()[0]
	if math.Abs(c.X-centre.X) > 0.005 || math.Abs(c.Y-centre.Y) > 0.005 {
		t.Errorf("insert centroid %v, want about %v", c, centre)
	}
	if a := gen.RegionAreas()[0]; math.Abs(a-0.06) > 0.005 {
		t.Errorf("insert area %g, want about 0.06", a)
	}
}
