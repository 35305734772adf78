// Package linalg provides the small set of numerical primitives the
// band-classification pipeline needs: a least-squares quadratic fit (used by
// merge's energy-continuity score and signalcorrect's directional
// continuity test) built on Gaussian elimination with partial pivoting,
// mirroring the original's use of a general-purpose curve-fit routine
// rather than a hand-derived closed-form formula.
package linalg

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingular is returned when the normal-equations matrix AᵀA is singular
// (collinear or too-few x samples) and no quadratic can be fit.
var ErrSingular = errors.New("linalg: singular normal-equations matrix")

// ErrTooFewPoints is returned when fewer than 3 points are supplied; a
// quadratic has 3 degrees of freedom.
var ErrTooFewPoints = errors.New("linalg: need at least 3 points to fit a quadratic")

// Quadratic is E(x) = A*x^2 + B*x + C.
type Quadratic struct {
	A, B, C float64
}

// Eval returns the quadratic's value at x.
func (q Quadratic) Eval(x float64) float64 {
	return q.A*x*x + q.B*x + q.C
}

// FitQuadratic solves the least-squares quadratic through (x[i], y[i]) via
// the normal equations AᵀA·θ = Aᵀb, solved by Gaussian elimination with
// partial pivoting. With exactly 3 points this reduces to exact
// interpolation; with more, it is a genuine least-squares fit.
func FitQuadratic(x, y []float64) (Quadratic, error) {
	n := len(x)
	if n != len(y) {
		return Quadratic{}, fmt.Errorf("linalg: x and y have different lengths (%d != %d)", n, len(y))
	}
	if n < 3 {
		return Quadratic{}, ErrTooFewPoints
	}

	// Normal-equations matrix: ATA[r][c] = sum x^(r+c), ATb[r] = sum x^r * y.
	var ata [3][3]float64
	var atb [3]float64
	for i := 0; i < n; i++ {
		xi := x[i]
		powers := [5]float64{1, xi, xi * xi, xi * xi * xi, xi * xi * xi * xi}
		for r := 0; r < 3; r++ {
			atb[r] += powers[r] * y[i]
			for c := 0; c < 3; c++ {
				ata[r][c] += powers[r+c]
			}
		}
	}

	theta, err := solve3(ata, atb)
	if err != nil {
		return Quadratic{}, err
	}
	// theta is ordered [c0, c1, c2] for basis [1, x, x^2]; Quadratic.A is
	// the x^2 coefficient.
	return Quadratic{A: theta[2], B: theta[1], C: theta[0]}, nil
}

// solve3 solves a 3x3 linear system via Gaussian elimination with partial
// pivoting.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, error) {
	const eps = 1e-12

	// augmented rows
	var m [3][4]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = a[r][c]
		}
		m[r][3] = b[r]
	}

	for col := 0; col < 3; col++ {
		piv := col
		best := math.Abs(m[col][col])
		for r := col + 1; r < 3; r++ {
			if v := math.Abs(m[r][col]); v > best {
				best = v
				piv = r
			}
		}
		if best < eps {
			return [3]float64{}, ErrSingular
		}
		m[col], m[piv] = m[piv], m[col]

		for r := col + 1; r < 3; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c < 4; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	var x [3]float64
	for r := 2; r >= 0; r-- {
		sum := m[r][3]
		for c := r + 1; c < 3; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x, nil
}
