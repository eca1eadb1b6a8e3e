package geometry

import (
	"math"
	"testing"

	"github.com/chazu/trackgen/pkg/surface"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBounds(t *testing.T) {
	bc := [4]surface.BoundaryType{surface.Reflective, surface.Vacuum, surface.Periodic, surface.Periodic}
	b, err := NewBounds(-1, -2, 3, 2, bc)
	require.NoError(t, err)

	assert.Equal(t, 4.0, b.Width())
	assert.Equal(t, 4.0, b.Height())
	assert.Equal(t, surface.Vacuum, b.BoundaryAt(SideMaxX))
	assert.True(t, b.Periodic())

	_, err = NewBounds(math.Inf(-1), 0, 1, 1, bc)
	assert.Error(t, err)
	_, err = NewBounds(1, 0, 1, 1, bc)
	assert.Error(t, err)
}

func TestSideOf(t *testing.T) {
	b, err := NewBounds(0, 0, 2, 1, [4]surface.BoundaryType{})
	require.NoError(t, err)

	tests := []struct {
		p    v2.Vec
		want Side
		ok   bool
	}{
		{v2.Vec{X: 0, Y: 0.5}, SideMinX, true},
		{v2.Vec{X: 2, Y: 0.5}, SideMaxX, true},
		{v2.Vec{X: 1, Y: 0}, SideMinY, true},
		{v2.Vec{X: 1, Y: 1}, SideMaxY, true},
		{v2.Vec{X: 1, Y: 0.5}, 0, false},
	}
	for _, tt := range tests {
		got, ok := b.SideOf(tt.p, 1e-10)
		assert.Equal(t, tt.ok, ok, "%v", tt.p)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.p)
		}
	}
	assert.InDelta(t, 0.25, b.DistanceToBoundary(v2.Vec{X: 1, Y: 0.25}), 1e-15)
}

func TestDirection(t *testing.T) {
	d := Flat(-math.Pi / 2)
	assert.InDelta(t, 3*math.Pi/2, d.Azim, 1e-15)

	u := d.Unit()
	assert.InDelta(t, 0, u.X, 1e-15)
	assert.InDelta(t, -1, u.Y, 1e-15)
	assert.InDelta(t, 0, u.Z, 1e-15)

	assert.InDelta(t, 0.5, NormalizeAzim(0.5+4*math.Pi), 1e-12)
}
