package generator

import (
	"math"
	"testing"

	"github.com/chazu/trackgen/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquareReflectiveEndToEnd(t *testing.T) {
	const (
		width   = 2.0
		spacing = 0.1
	)
	g := generate(t, square(t, width, width, surface.Reflective), params(4, spacing))

	// Closed form: n_x = ⌊w/δ·sin φ⌋+1 and n_y = ⌊w/δ·cos φ⌋+1 per angle,
	// φ = π/4 for both angles of a 4-angle quadrature.
	phi := math.Pi / 4
	nx := int(width/spacing*math.Sin(phi)) + 1
	ny := int(width/spacing*math.Cos(phi)) + 1
	require.Equal(t, 15, nx)
	assert.Equal(t, 2*(nx+ny), g.NumTracks())
	assert.Equal(t, 60, len(g.Tracks()))

	b := g.Bounds()
	for _, tr := range g.Tracks() {
		assert.LessOrEqual(t, b.DistanceToBoundary(tr.Start), 1e-10, "track %d start %v", tr.UID, tr.Start)
		assert.LessOrEqual(t, b.DistanceToBoundary(tr.End), 1e-10, "track %d end %v", tr.UID, tr.End)
		assert.Equal(t, surface.Reflective, tr.BoundaryFwd)
		assert.Equal(t, surface.Reflective, tr.BoundaryBwd)
	}

	for a := 0; a < 2; a++ {
		assert.InDelta(t, width/float64(nx)*math.Sin(phi), g.AzimSpacing(a), 1e-15)
		assert.LessOrEqual(t, g.AzimSpacing(a), spacing)
	}
	assert.InDelta(t, phi, g.Quadrature().Phi(0), 1e-15)
	assert.InDelta(t, 3*phi, g.Quadrature().Phi(1), 1e-15)
}

func TestSupplementarySymmetry(t *testing.T) {
	tests := []struct {
		name    string
		w, h    float64
		azim    int
		spacing float64
	}{
		{"square", 2, 2, 8, 0.1},
		{"wide", 5, 1.3, 16, 0.07},
		{"tall", 0.8, 3.1, 32, 0.05},
		{"coarse", 1, 1, 12, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(square(t, tt.w, tt.h, surface.Reflective), params(tt.azim, tt.spacing))
			require.NoError(t, err)
			require.NoError(t, g.Layout())

			half := tt.azim / 2
			q := g.Quadrature()
			for a := 0; a < half; a++ {
				sup := half - a - 1
				assert.Equal(t, g.TrackTable().NumTracks(a), g.TrackTable().NumTracks(sup), "azim %d", a)
				assert.InDelta(t, math.Pi, q.Phi(a)+q.Phi(sup), 1e-14)
				assert.LessOrEqual(t, g.AzimSpacing(a), tt.spacing*(1+1e-12))
			}

			b := g.Bounds()
			for _, tr := range g.Tracks() {
				assert.LessOrEqual(t, b.DistanceToBoundary(tr.Start), 1e-10)
				assert.LessOrEqual(t, b.DistanceToBoundary(tr.End), 1e-10)
				assert.Greater(t, tr.End.Y, tr.Start.Y, "tracks run upwards")
			}
		})
	}
}

func TestLayoutRecalibratesToMinimumCorner(t *testing.T) {
	bc := [4]surface.BoundaryType{surface.Reflective, surface.Reflective, surface.Vacuum, surface.Vacuum}
	g, err := New(box(t, -1, -2, 1, 2, bc), params(8, 0.2))
	require.NoError(t, err)
	require.NoError(t, g.Layout())

	for _, tr := range g.Tracks() {
		for _, p := range []struct{ x, y float64 }{{tr.Start.X, tr.Start.Y}, {tr.End.X, tr.End.Y}} {
			assert.GreaterOrEqual(t, p.x, -1-1e-12)
			assert.LessOrEqual(t, p.x, 1+1e-12)
			assert.GreaterOrEqual(t, p.y, -2-1e-12)
			assert.LessOrEqual(t, p.y, 2+1e-12)
		}
		if tr.Start.Y == -2 {
			assert.Equal(t, surface.Vacuum, tr.BoundaryBwd)
		} else {
			assert.Equal(t, surface.Reflective, tr.BoundaryBwd)
		}
	}
}

func TestEndpointSlotsAreUnique(t *testing.T) {
	g, err := New(square(t, 3, 1.7, surface.Reflective), params(16, 0.09))
	require.NoError(t, err)
	require.NoError(t, g.Layout())

	for a := 0; a < g.TrackTable().NumAzim(); a++ {
		seen := map[endpoint]int{}
		for _, tr := range g.TrackTable().Azim(a) {
			e := g.ends[tr.UID]
			seen[e.start]++
			seen[e.end]++
		}
		assert.Len(t, seen, 2*g.TrackTable().NumTracks(a), "azim %d", a)
		for p, n := range seen {
			assert.Equal(t, 1, n, "azim %d slot %v", a, p)
		}
	}
}
