package quadrature

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEqualAngleCounts(t *testing.T) {
	tests := []struct {
		name     string
		azim     int
		polar    int
		sentinel error
	}{
		{"default", 4, 2, nil},
		{"larger", 32, 6, nil},
		{"zero azim", 0, 2, ErrNoAngles},
		{"zero polar", 4, 0, ErrNoAngles},
		{"azim not multiple of 4", 6, 2, ErrInvalidAngleCount},
		{"odd polar", 8, 3, ErrInvalidAngleCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewEqualAngle(tt.azim, tt.polar)
			if tt.sentinel != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.azim, q.NumAzim())
			assert.Equal(t, tt.polar, q.NumPolar())
		})
	}
}

func TestBothCountsInvalidReportsBoth(t *testing.T) {
	_, err := NewEqualAngle(6, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 4")
	assert.Contains(t, err.Error(), "not even")
}

func TestEqualAngleWeights(t *testing.T) {
	q, err := NewEqualAngle(16, 6)
	require.NoError(t, err)

	var azim float64
	for a := 0; a < q.NumAzim()/2; a++ {
		azim += q.AzimWeight(a)
		sup := q.NumAzim()/2 - a - 1
		assert.InDelta(t, math.Pi, q.Phi(a)+q.Phi(sup), 1e-14)
		assert.InDelta(t, q.AzimWeight(a), q.AzimWeight(sup), 1e-15)
	}
	assert.InDelta(t, 1.0, azim, 1e-14)

	var polar float64
	for p := 0; p < q.NumPolar()/2; p++ {
		polar += q.PolarWeight(p)
		assert.InDelta(t, math.Sin(q.Theta(p)), q.SinTheta(p), 1e-15)
	}
	assert.InDelta(t, 1.0, polar, 1e-14)
}

func TestSetPhi(t *testing.T) {
	q, err := NewEqualAngle(8, 2)
	require.NoError(t, err)

	require.NoError(t, q.SetPhi(0, 0.5))
	assert.Equal(t, 0.5, q.Phi(0))
	assert.InDelta(t, math.Pi-0.5, q.Phi(3), 1e-15)

	var sum float64
	for a := 0; a < 4; a++ {
		sum += q.AzimWeight(a)
	}
	assert.InDelta(t, 1.0, sum, 1e-14)

	// The first angle now covers [0, (0.5+φ1)/2].
	assert.InDelta(t, (0.5+(q.Phi(1)-0.5)/2)/math.Pi, q.AzimWeight(0), 1e-15)

	assert.Error(t, q.SetPhi(2, 0.5))
	assert.Error(t, q.SetPhi(0, math.Pi/2))
}

func TestNewCustom(t *testing.T) {
	q, err := NewCustom(4, []float64{0.3, 1.1}, []float64{2, 6})
	require.NoError(t, err)
	assert.Equal(t, 4, q.NumPolar())
	assert.InDelta(t, 0.25, q.PolarWeight(0), 1e-15)
	assert.InDelta(t, 0.75, q.PolarWeight(1), 1e-15)

	_, err = NewCustom(4, []float64{0.3}, []float64{1, 2})
	assert.Error(t, err)
	_, err = NewCustom(4, []float64{2}, []float64{1})
	assert.Error(t, err)
	_, err = NewCustom(4, []float64{0.3}, []float64{-1})
	assert.Error(t, err)
	_, err = NewCustom(4, nil, nil)
	assert.True(t, errors.Is(err, ErrNoAngles))
}

func TestCloneIsIndependent(t *testing.T) {
	q, err := NewCustom(8, []float64{0.3, 1.1}, []float64{1, 3})
	require.NoError(t, err)
	c := q.Clone()

	require.NoError(t, c.SetPhi(0, 0.5))
	assert.InDelta(t, 0.5, c.Phi(0), 1e-15)
	assert.InDelta(t, math.Pi/8, q.Phi(0), 1e-15, "original keeps its angle")
	assert.NotEqual(t, q.AzimWeight(0), c.AzimWeight(0))
	assert.Equal(t, q.NumPolar(), c.NumPolar())
	assert.Equal(t, q.PolarWeight(1), c.PolarWeight(1))
}
