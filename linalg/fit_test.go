package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitQuadraticExactThroughThreePoints(t *testing.T) {
	// E(x) = 2x^2 - 3x + 1
	x := []float64{0, 1, 2}
	y := []float64{1, 0, 3}
	q, err := FitQuadratic(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2, q.A, 1e-8)
	assert.InDelta(t, -3, q.B, 1e-8)
	assert.InDelta(t, 1, q.C, 1e-8)
}

func TestFitQuadraticLeastSquaresWithMorePoints(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 0, 3, 10}
	q, err := FitQuadratic(x, y)
	require.NoError(t, err)
	// sanity: the four points lie on 2x^2 - 3x + 1, so the least-squares
	// curve should pass close to them
	assert.InDelta(t, y[0], q.Eval(x[0]), 2.0)
}

func TestFitQuadraticTooFewPoints(t *testing.T) {
	_, err := FitQuadratic([]float64{0, 1}, []float64{0, 1})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestFitQuadraticSingularWhenAllXEqual(t *testing.T) {
	_, err := FitQuadratic([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrSingular)
}
