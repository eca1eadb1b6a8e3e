// Package quadrature provides the discrete azimuthal and polar angles, and
// their integration weights, used to lay out and weight tracks.
//
// Azimuthal angles are stored for the half space [0, π): index a and index
// numAzim/2-a-1 are supplementary (φ and π-φ) and always carry the same
// weight. Polar angles are stored for the upper hemisphere (0, π/2); the
// lower hemisphere mirrors it.
package quadrature

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrNoAngles is returned when zero azimuthal or polar angles are requested.
	ErrNoAngles = errors.New("number of angles must be positive")

	// ErrInvalidAngleCount is returned when the azimuthal count is not a
	// multiple of 4 or the polar count is odd.
	ErrInvalidAngleCount = errors.New("invalid number of angles")
)

// Quadrature holds the angular discretization.
type Quadrature struct {
	numAzim  int
	numPolar int

	phis        []float64 // numAzim/2
	azimWeights []float64 // numAzim/2

	thetas       []float64 // numPolar/2
	sinThetas    []float64
	polarWeights []float64 // sums to 1 over the hemisphere
}

func checkCounts(numAzim, numPolar int) error {
	if numAzim <= 0 || numPolar <= 0 {
		return fmt.Errorf("num azim %d, num polar %d: %w", numAzim, numPolar, ErrNoAngles)
	}
	var errs []error
	if numAzim%4 != 0 {
		errs = append(errs, fmt.Errorf("num azim %d is not a multiple of 4: %w", numAzim, ErrInvalidAngleCount))
	}
	if numPolar%2 != 0 {
		errs = append(errs, fmt.Errorf("num polar %d is not even: %w", numPolar, ErrInvalidAngleCount))
	}
	return errors.Join(errs...)
}

// NewEqualAngle returns the default quadrature: azimuthal angles evenly
// spaced at 2π/numAzim·(a+½) and polar angles evenly spaced over the
// hemisphere, each weighted by the solid angle of its band.
func NewEqualAngle(numAzim, numPolar int) (*Quadrature, error) {
	if err := checkCounts(numAzim, numPolar); err != nil {
		return nil, err
	}
	half := numPolar / 2
	delta := math.Pi / 2 / float64(half)
	thetas := make([]float64, half)
	weights := make([]float64, half)
	for p := range thetas {
		thetas[p] = delta * (float64(p) + 0.5)
		weights[p] = math.Cos(delta*float64(p)) - math.Cos(delta*float64(p+1))
	}
	return newQuadrature(numAzim, thetas, weights), nil
}

// NewCustom returns a quadrature with the default azimuthal angles and an
// externally supplied polar set for the upper hemisphere. Weights are
// normalized to sum to 1.
func NewCustom(numAzim int, thetas, weights []float64) (*Quadrature, error) {
	if err := checkCounts(numAzim, 2*len(thetas)); err != nil {
		return nil, err
	}
	if len(weights) != len(thetas) {
		return nil, fmt.Errorf("got %d polar weights for %d polar angles", len(weights), len(thetas))
	}
	var sum float64
	for p, th := range thetas {
		if th <= 0 || th >= math.Pi/2 {
			return nil, fmt.Errorf("polar angle %d = %g is outside (0, π/2)", p, th)
		}
		if weights[p] <= 0 {
			return nil, fmt.Errorf("polar weight %d = %g is not positive", p, weights[p])
		}
		sum += weights[p]
	}
	norm := make([]float64, len(weights))
	for p, w := range weights {
		norm[p] = w / sum
	}
	return newQuadrature(numAzim, append([]float64(nil), thetas...), norm), nil
}

func newQuadrature(numAzim int, thetas, polarWeights []float64) *Quadrature {
	q := &Quadrature{
		numAzim:      numAzim,
		numPolar:     2 * len(thetas),
		phis:         make([]float64, numAzim/2),
		azimWeights:  make([]float64, numAzim/2),
		thetas:       thetas,
		sinThetas:    make([]float64, len(thetas)),
		polarWeights: polarWeights,
	}
	for p, th := range thetas {
		q.sinThetas[p] = math.Sin(th)
	}
	for a := 0; a < numAzim/4; a++ {
		phi := 2 * math.Pi / float64(numAzim) * (float64(a) + 0.5)
		q.phis[a] = phi
		q.phis[numAzim/2-a-1] = math.Pi - phi
	}
	q.updateWeights()
	return q
}

// Clone returns a deep copy of q.
func (q *Quadrature) Clone() *Quadrature {
	return &Quadrature{
		numAzim:      q.numAzim,
		numPolar:     q.numPolar,
		phis:         slices.Clone(q.phis),
		azimWeights:  slices.Clone(q.azimWeights),
		thetas:       slices.Clone(q.thetas),
		sinThetas:    slices.Clone(q.sinThetas),
		polarWeights: slices.Clone(q.polarWeights),
	}
}

// NumAzim returns the number of azimuthal angles over the full circle.
func (q *Quadrature) NumAzim() int { return q.numAzim }

// NumPolar returns the number of polar angles over the full sphere.
func (q *Quadrature) NumPolar() int { return q.numPolar }

// Phi returns the azimuthal angle for a in [0, NumAzim/2).
func (q *Quadrature) Phi(a int) float64 { return q.phis[a] }

// AzimWeight returns the azimuthal weight for a in [0, NumAzim/2).
func (q *Quadrature) AzimWeight(a int) float64 { return q.azimWeights[a] }

// Theta returns the polar angle for p in [0, NumPolar/2).
func (q *Quadrature) Theta(p int) float64 { return q.thetas[p] }

// SinTheta returns sin of the polar angle p.
func (q *Quadrature) SinTheta(p int) float64 { return q.sinThetas[p] }

// PolarWeight returns the polar weight for p in [0, NumPolar/2).
func (q *Quadrature) PolarWeight(p int) float64 { return q.polarWeights[p] }

// SetPhi replaces the azimuthal angle at a, which must lie in the first
// quadrant, and its supplementary angle, then recomputes the azimuthal
// weights.
func (q *Quadrature) SetPhi(a int, phi float64) error {
	if a < 0 || a >= q.numAzim/4 {
		return fmt.Errorf("azimuthal index %d outside the first quadrant [0, %d)", a, q.numAzim/4)
	}
	if phi <= 0 || phi >= math.Pi/2 {
		return fmt.Errorf("azimuthal angle %g outside (0, π/2)", phi)
	}
	q.phis[a] = phi
	q.phis[q.numAzim/2-a-1] = math.Pi - phi
	q.updateWeights()
	return nil
}

// updateWeights applies the midpoint rule over the first quadrant and mirrors
// the result onto the supplementary angles. Weights over [0, π) sum to 1.
func (q *Quadrature) updateWeights() {
	n := q.numAzim / 4
	for a := 0; a < n; a++ {
		var lo, hi float64
		if a == 0 {
			lo = q.phis[a]
		} else {
			lo = (q.phis[a] - q.phis[a-1]) / 2
		}
		if a == n-1 {
			hi = math.Pi/2 - q.phis[a]
		} else {
			hi = (q.phis[a+1] - q.phis[a]) / 2
		}
		w := (lo + hi) / math.Pi
		q.azimWeights[a] = w
		q.azimWeights[q.numAzim/2-a-1] = w
	}
}
