package engine

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/config"
)

func identityInput() Input {
	d := bandtypes.Dims{Nx: 2, Ny: 2, Nk: 4, Nbnd: 2, MinBand: 0, MaxBand: 1}
	overlaps := make(bandgraph.Overlaps, d.Nk)
	for kid := range overlaps {
		overlaps[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range overlaps[kid] {
			overlaps[kid][dir] = make([][]float64, d.Nbnd)
			for b1 := range overlaps[kid][dir] {
				overlaps[kid][dir][b1] = make([]float64, d.Nbnd)
				if b1 < len(overlaps[kid][dir]) {
					overlaps[kid][dir][b1][b1] = 1
				}
			}
		}
	}
	energies := [][]float64{{0, 1}, {0, 1}, {0, 1}, {0, 1}}
	return Input{Dims: d, Energies: energies, Overlaps: overlaps}
}

// TestRunIdentityScenario is scenario S1 from spec.md §8: identity overlaps
// everywhere should yield a fully-solved, all-CORRECT assignment.
func TestRunIdentityScenario(t *testing.T) {
	in := identityInput()
	cfg := config.DefaultConfig()
	cfg.Seed = 7

	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	for kid := 0; kid < in.Dims.Nk; kid++ {
		assert.Equal(t, int32(0), res.BandsFinal[kid][0])
		assert.Equal(t, int32(1), res.BandsFinal[kid][1])
		assert.Equal(t, int8(bandtypes.Correct), res.Signal[kid][0])
		assert.Equal(t, int8(bandtypes.Correct), res.Signal[kid][1])
	}
	assert.Empty(t, res.Degenerate)
}

// TestCoverageProperty is testable property #1 from spec.md §8.
func TestCoverageProperty(t *testing.T) {
	in := identityInput()
	cfg := config.DefaultConfig()
	cfg.Seed = 7
	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)

	for kid := range res.BandsFinal {
		for _, v := range res.BandsFinal[kid] {
			if v != -1 {
				assert.GreaterOrEqual(t, int(v), in.Dims.MinBand)
				assert.LessOrEqual(t, int(v), in.Dims.MaxBand)
			}
		}
	}
}

// swapEnergyBandInput builds the 2x2 identity scenario but swaps kid 3's
// original-band-to-energy mapping ([1,0] instead of [0,1]) and rewires its
// two edges (to kid1 via Down, to kid2 via Left) to connect band-to-band
// across the swap, so the physically continuous surfaces still line up.
func swapEnergyBandInput() Input {
	d := bandtypes.Dims{Nx: 2, Ny: 2, Nk: 4, Nbnd: 2, MinBand: 0, MaxBand: 1}
	overlaps := make(bandgraph.Overlaps, d.Nk)
	for kid := range overlaps {
		overlaps[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range overlaps[kid] {
			overlaps[kid][dir] = make([][]float64, d.Nbnd)
			for b1 := range overlaps[kid][dir] {
				overlaps[kid][dir][b1] = make([]float64, d.Nbnd)
				overlaps[kid][dir][b1][b1] = 1
			}
		}
	}
	swap := func(kid, dir int) {
		overlaps[kid][dir][0][0] = 0
		overlaps[kid][dir][1][1] = 0
		overlaps[kid][dir][0][1] = 1
		overlaps[kid][dir][1][0] = 1
	}
	swap(3, bandtypes.DirDown)  // kid3 -> kid1
	swap(1, bandtypes.DirUp)    // kid1 -> kid3
	swap(3, bandtypes.DirLeft)  // kid3 -> kid2
	swap(2, bandtypes.DirRight) // kid2 -> kid3

	energies := [][]float64{{0, 1}, {0, 1}, {0, 1}, {1, 0}}
	return Input{Dims: d, Energies: energies, Overlaps: overlaps}
}

// TestRunBandSwapScenario is scenario S2 from spec.md §8: kid 3's original
// bands are swapped relative to its neighbors, but its two edges carry the
// swap, so the compiled result still places the two physically-continuous
// energy surfaces at the same physical-band slot everywhere, including at
// kid 3 (whose original-band labels end up reversed there).
func TestRunBandSwapScenario(t *testing.T) {
	in := swapEnergyBandInput()
	cfg := config.DefaultConfig()
	cfg.Seed = 7

	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	for kid := 0; kid < in.Dims.Nk; kid++ {
		if kid == 3 {
			assert.Equal(t, int32(1), res.BandsFinal[kid][0])
			assert.Equal(t, int32(0), res.BandsFinal[kid][1])
		} else {
			assert.Equal(t, int32(0), res.BandsFinal[kid][0])
			assert.Equal(t, int32(1), res.BandsFinal[kid][1])
		}
		assert.Equal(t, int8(bandtypes.Correct), res.Signal[kid][0])
		assert.Equal(t, int8(bandtypes.Correct), res.Signal[kid][1])
	}
	assert.Empty(t, res.Degenerate)
}

// parabolicInput builds an nx x ny grid, 2 bands, identity overlaps just
// above the default graph tolerance, and smooth separable-quadratic band
// energies E(b,i,j) = b + 0.01*(i^2+j^2) (spec.md §8 scenario S4's setup).
func parabolicInput(nx, ny int) Input {
	d := bandtypes.Dims{Nx: nx, Ny: ny, Nk: nx * ny, Nbnd: 2, MinBand: 0, MaxBand: 1}
	overlaps := make(bandgraph.Overlaps, d.Nk)
	for kid := range overlaps {
		overlaps[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range overlaps[kid] {
			overlaps[kid][dir] = make([][]float64, d.Nbnd)
			for b1 := range overlaps[kid][dir] {
				overlaps[kid][dir][b1] = make([]float64, d.Nbnd)
				overlaps[kid][dir][b1][b1] = 0.99
			}
		}
	}
	energies := make([][]float64, d.Nk)
	for kid := range energies {
		i, j := d.Coord(kid)
		energies[kid] = []float64{0.01 * float64(i*i+j*j), 1 + 0.01*float64(i*i+j*j)}
	}
	return Input{Dims: d, Energies: energies, Overlaps: overlaps}
}

// TestRunSmoothParabolicGridHasNoMistakes is scenario S4 from spec.md §8:
// smooth, well-separated parabolic bands over a 4x4 grid should classify
// every point CORRECT, with no MISTAKE anywhere after correction.
func TestRunSmoothParabolicGridHasNoMistakes(t *testing.T) {
	in := parabolicInput(4, 4)
	cfg := config.DefaultConfig()
	cfg.Seed = 7

	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	for kid := 0; kid < in.Dims.Nk; kid++ {
		for p := 0; p < in.Dims.Width(); p++ {
			assert.Equal(t, int8(bandtypes.Correct), res.Signal[kid][p])
			assert.NotEqual(t, int8(bandtypes.CorrectedMistake), res.CorrectedSignal[kid][p])
		}
	}
}

// TestRunWeakOverlapRescuedByDirectionalFit is scenario S5 from spec.md §8:
// a single weakened overlap link on an otherwise smooth parabolic grid
// degrades the raw signal at that point to POTENTIAL_CORRECT/
// POTENTIAL_MISTAKE, but the directional energy-continuity fit rescues it
// back to CORRECTED_CORRECT since the underlying surface is still smooth.
func TestRunWeakOverlapRescuedByDirectionalFit(t *testing.T) {
	in := parabolicInput(4, 4)
	kid5 := in.Dims.KID(1, 1)
	kid6 := in.Dims.NeighborKID(kid5, bandtypes.DirRight)
	in.Overlaps[kid5][bandtypes.DirRight][0][0] = 0.5
	in.Overlaps[kid6][bandtypes.DirLeft][0][0] = 0.5

	cfg := config.DefaultConfig()
	cfg.Seed = 7

	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	sig := res.Signal[kid5][0]
	assert.True(t, sig == int8(bandtypes.PotentialCorrect) || sig == int8(bandtypes.PotentialMistake),
		"expected signal_final[5,0] in {3,4}, got %d", sig)
	assert.Equal(t, int8(bandtypes.CorrectedCorrect), res.CorrectedSignal[kid5][0])
}

// disconnectedColumnInput builds a 3x1 strip, 2 bands: band offset 0 is
// fully connected (solved outright); band offset 1 has a single weak link
// between kid 1 and kid 2, splitting it into two disjoint, kid-wise
// complementary pieces that the partitioner accepts as two separate
// clusters for the same physical slot (spec.md §8 scenario S6).
func disconnectedColumnInput() Input {
	d := bandtypes.Dims{Nx: 3, Ny: 1, Nk: 3, Nbnd: 2, MinBand: 0, MaxBand: 1}
	overlaps := make(bandgraph.Overlaps, d.Nk)
	for kid := range overlaps {
		overlaps[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range overlaps[kid] {
			overlaps[kid][dir] = make([][]float64, d.Nbnd)
			for b1 := range overlaps[kid][dir] {
				overlaps[kid][dir][b1] = make([]float64, d.Nbnd)
				overlaps[kid][dir][b1][b1] = 1
			}
		}
	}
	// 0.95 equals bandgraph's build tolerance (edge needs strictly > tol), so
	// the link is cut for partitioning purposes, but still above
	// nodeSignal's CORRECT threshold (mean > 0.9), so the compiled result
	// stays clean (no error mask) while final_score still reads below 1.
	kid1, kid2 := d.KID(1, 0), d.KID(2, 0)
	overlaps[kid1][bandtypes.DirRight][1][1] = 0.95
	overlaps[kid2][bandtypes.DirLeft][1][1] = 0.95

	energies := [][]float64{{0, 1}, {0, 1}, {0, 1}}
	return Input{Dims: d, Energies: energies, Overlaps: overlaps}
}

// TestRunDisconnectedColumnStillFullyPopulates is scenario S6 from spec.md
// §8: a whole-column overlap weakness splits one band offset's plane into
// two disjoint clusters; both claim the same physical slot since neither's
// k-points conflict with the other's, and bandsfinal ends up fully
// populated with final_score slightly below 1 at that slot.
func TestRunDisconnectedColumnStillFullyPopulates(t *testing.T) {
	in := disconnectedColumnInput()
	cfg := config.DefaultConfig()
	cfg.Seed = 7

	res, err := Run(log.Default(), cfg, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	for kid := 0; kid < in.Dims.Nk; kid++ {
		assert.Equal(t, int32(0), res.BandsFinal[kid][0])
		assert.Equal(t, int32(1), res.BandsFinal[kid][1])
	}
	assert.InDelta(t, 1.0, res.FinalScore[0], 1e-9)
	assert.Less(t, res.FinalScore[1], 1.0)
	assert.Greater(t, res.FinalScore[1], 0.0)
}

// TestDegeneratePairsSignalTwo is testable property #7.
func TestDegeneratePairsSignalTwo(t *testing.T) {
	d := bandtypes.Dims{Nx: 2, Ny: 2, Nk: 4, Nbnd: 2, MinBand: 0, MaxBand: 1}
	overlaps := make(bandgraph.Overlaps, d.Nk)
	for kid := range overlaps {
		overlaps[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range overlaps[kid] {
			overlaps[kid][dir] = make([][]float64, d.Nbnd)
			for b1 := range overlaps[kid][dir] {
				overlaps[kid][dir][b1] = make([]float64, d.Nbnd)
				overlaps[kid][dir][b1][0] = 0.7
				overlaps[kid][dir][b1][1] = 0.7
			}
		}
	}
	energies := [][]float64{{0.5, 0.5}, {0, 1}, {0, 1}, {0, 1}}

	cfg := config.DefaultConfig()
	cfg.Seed = 11
	res, err := Run(log.Default(), cfg, Input{Dims: d, Energies: energies, Overlaps: overlaps})
	require.NoError(t, err)

	for _, pair := range res.Degenerate {
		kid := d.NodeKID(pair[0])
		bo1 := d.NodeBandOffset(pair[0])
		bo2 := d.NodeBandOffset(pair[1])
		assert.Equal(t, int8(bandtypes.Degenerate), res.Signal[kid][bo1])
		assert.Equal(t, int8(bandtypes.Degenerate), res.Signal[kid][bo2])
	}
}
