package vectorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bzclust/bzclust/bandtypes"
)

func dims2x2() bandtypes.Dims {
	return bandtypes.Dims{Nx: 2, Ny: 2, Nk: 4, Nbnd: 2, MinBand: 0, MaxBand: 1}
}

func TestBuildKIndexAndMatrixAgree(t *testing.T) {
	d := dims2x2()
	energy := [][]float64{
		{1.0, 2.0},
		{1.1, 2.1},
		{1.2, 2.2},
		{1.3, 2.3},
	}
	r, err := Build(d, energy)
	require.NoError(t, err)

	for kid := 0; kid < d.Nk; kid++ {
		i, j := r.KIndex[kid][0], r.KIndex[kid][1]
		assert.Equal(t, kid, r.Matrix[j][i])
	}
}

func TestBuildBandEnergyMatchesInput(t *testing.T) {
	d := dims2x2()
	energy := [][]float64{
		{1.0, 2.0},
		{1.1, 2.1},
		{1.2, 2.2},
		{1.3, 2.3},
	}
	r, err := Build(d, energy)
	require.NoError(t, err)

	for kid := 0; kid < d.Nk; kid++ {
		i, j := d.Coord(kid)
		for bo := 0; bo < d.Width(); bo++ {
			assert.Equal(t, energy[kid][d.MinBand+bo], r.BandEnergy[bo][j][i])
		}
	}
}

func TestBuildDegeneratePairsDetected(t *testing.T) {
	d := dims2x2()
	// kid=0 bands 0 and 1 share the identical energy -> node 0 and node 4
	// (n = bo*Nk + kid) should be reported degenerate.
	energy := [][]float64{
		{5.0, 5.0},
		{1.1, 2.1},
		{1.2, 2.2},
		{1.3, 2.3},
	}
	r, err := Build(d, energy)
	require.NoError(t, err)

	n0 := d.NodeID(0, 0)
	n1 := d.NodeID(1, 0)
	found := false
	for _, pair := range r.Degenerate {
		if pair == [2]int{n0, n1} || pair == [2]int{n1, n0} {
			found = true
		}
	}
	assert.True(t, found, "expected degenerate pair (%d,%d) in %v", n0, n1, r.Degenerate)
}

func TestBuildNoDegeneratePairsWhenDistinct(t *testing.T) {
	d := dims2x2()
	energy := [][]float64{
		{1.0, 2.0},
		{1.1, 2.1},
		{1.2, 2.2},
		{1.3, 2.3},
	}
	r, err := Build(d, energy)
	require.NoError(t, err)
	assert.Empty(t, r.Degenerate)
}

func TestBuildRejectsMismatchedShape(t *testing.T) {
	d := dims2x2()
	_, err := Build(d, [][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestIsClose(t *testing.T) {
	assert.True(t, isClose(1.0, 1.0))
	assert.True(t, isClose(1.0, 1.0+5e-9))
	assert.False(t, isClose(1.0, 1.1))
	assert.True(t, isClose(1e5, 1e5*(1+1e-6)))
}
