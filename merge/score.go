// Package merge iteratively absorbs sample components into the
// best-matching cluster, scoring each candidate pairing by a mix of
// wavefunction overlap and polynomial energy-continuity, until no samples
// remain.
package merge

import (
	"math"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/component"
	"github.com/bzclust/bzclust/linalg"
)

// Scorer bundles the read-only inputs needed to score a (sample, cluster)
// pairing: the overlap tensor and the per-band energy planes produced by
// vectorize.
type Scorer struct {
	Dims       bandtypes.Dims
	Overlaps   bandgraph.Overlaps
	BandEnergy [][][]float64 // BandEnergy[bandOffset][j][i]
	Tol        float64       // outer-loop mixing tol, distinct from the graph-build tol
}

// Score computes score(sample, cluster): the average, over each of sample's
// boundary k-points and each of its 4 neighbors that lie in cluster's
// boundary, of tol*overlap + (1-tol)*energyFit. The divisor is fixed at
// |sample.Boundary|*4 regardless of how many neighbor terms are actually
// counted.
func (s *Scorer) Score(sample, cluster *component.Component) float64 {
	clusterBoundary := make(map[int]bool, len(cluster.Boundary))
	for _, kid := range cluster.Boundary {
		clusterBoundary[kid] = true
	}

	total := 0.0
	for _, kid := range sample.Boundary {
		b1 := sample.BandsNumber[kid]
		for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
			kidPrime := s.Dims.NeighborKID(kid, dir)
			if kidPrime < 0 || !clusterBoundary[kidPrime] {
				continue
			}
			bPrime, ok := cluster.BandsNumber[kidPrime]
			if !ok {
				continue
			}
			overlap := s.Overlaps.At(kid, dir, s.Dims.MinBand+b1, s.Dims.MinBand+bPrime)
			fit := s.energyFit(sample, kid, kidPrime, dir, bPrime)
			total += s.Tol*overlap + (1-s.Tol)*fit
		}
	}
	denom := float64(len(sample.Boundary) * bandtypes.N_NEIGS)
	if denom == 0 {
		return 0
	}
	return total / denom
}

// energyFit implements energy_fit(k -> k'): fit a quadratic through up to 4
// collinear sample points extending away from k', evaluate at k', and
// compare the predicted energy to the cluster's chosen band at k' against
// every other band there.
func (s *Scorer) energyFit(sample *component.Component, kid, kidPrime, dir, bPrime int) float64 {
	xs, ys := s.collinearChain(sample, kid, dir)
	iPrime, jPrime := s.Dims.Coord(kidPrime)

	var ePred float64
	if len(xs) >= 4 {
		q, err := linalg.FitQuadratic(xs, ys)
		if err != nil {
			return s.nearestNeighborFallback(sample, kid, kidPrime, bPrime)
		}
		ePred = q.Eval(-1)
	} else {
		return s.nearestNeighborFallback(sample, kid, kidPrime, bPrime)
	}

	eActual := s.BandEnergy[bPrime][jPrime][iPrime]
	minDiff := math.Inf(1)
	for b := 0; b < s.Dims.Width(); b++ {
		d := math.Abs(ePred - s.BandEnergy[b][jPrime][iPrime])
		if d < minDiff {
			minDiff = d
		}
	}
	denom := math.Abs(ePred - eActual)
	if denom == 0 {
		return 1
	}
	r := minDiff / denom
	return clip01(r)
}

// collinearChain walks backward from kid (away from kid's neighbor in dir),
// collecting up to 4 points (position, energy) that belong to sample,
// position 0 at kid and increasing with distance from kid' direction.
func (s *Scorer) collinearChain(sample *component.Component, kid, dir int) (xs, ys []float64) {
	backDir := opposite(dir)
	cur := kid
	for pos := 0; pos < 4; pos++ {
		bo, ok := sample.BandsNumber[cur]
		if !ok {
			break
		}
		i, j := s.Dims.Coord(cur)
		xs = append(xs, float64(pos))
		ys = append(ys, s.BandEnergy[bo][j][i])

		next := s.Dims.NeighborKID(cur, backDir)
		if next < 0 {
			break
		}
		cur = next
	}
	return xs, ys
}

// nearestNeighborFallback is used when fewer than 4 collinear sample points
// exist: it falls back to a direct energy-difference ratio between kid and
// kidPrime using the same min-over-bands comparison.
func (s *Scorer) nearestNeighborFallback(sample *component.Component, kid, kidPrime, bPrime int) float64 {
	bo, ok := sample.BandsNumber[kid]
	if !ok {
		return 0
	}
	i, j := s.Dims.Coord(kid)
	ePred := s.BandEnergy[bo][j][i]

	iPrime, jPrime := s.Dims.Coord(kidPrime)
	eActual := s.BandEnergy[bPrime][jPrime][iPrime]
	minDiff := math.Inf(1)
	for b := 0; b < s.Dims.Width(); b++ {
		d := math.Abs(ePred - s.BandEnergy[b][jPrime][iPrime])
		if d < minDiff {
			minDiff = d
		}
	}
	denom := math.Abs(ePred - eActual)
	if denom == 0 {
		return 1
	}
	return clip01(minDiff / denom)
}

func opposite(dir int) int {
	switch dir {
	case bandtypes.DirDown:
		return bandtypes.DirUp
	case bandtypes.DirUp:
		return bandtypes.DirDown
	case bandtypes.DirLeft:
		return bandtypes.DirRight
	default:
		return bandtypes.DirLeft
	}
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
