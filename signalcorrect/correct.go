// Package signalcorrect re-evaluates POTENTIAL_CORRECT / POTENTIAL_MISTAKE
// signals using a directional energy-continuity test, then rebuilds a
// filtered similarity graph around the resulting error regions. The
// rebuilt graph replaces the caller's graph for subsequent outer-loop
// iterations' component partitioning — it is not merely an auxiliary
// output.
package signalcorrect

import (
	"math"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/linalg"
)

// Result holds the signal on the 4-level post-correction scale:
// CorrectedCorrect, CorrectedOther, CorrectedMistake (CorrectedDegenerate is
// carried through unchanged from the pre-correction pass, see Correct).
type Result struct {
	Signal [][]int8 // [kid][physicalBand], bandtypes.Corrected* scale
	// ErrorMask[physicalBand][kid] marks a point that is MISTAKE, or is
	// OTHER and persisted as OTHER from the previous iteration; after
	// density-based dilation, this is what Rebuild filters the graph by.
	ErrorMask [][]bool
}

// Correct evaluates every (kid, physicalBand) currently signaled
// POTENTIAL_CORRECT or POTENTIAL_MISTAKE with the directional
// energy-continuity test, leaves every other signal as-is (collapsed onto
// the 4-level scale, with CORRECT(5) downgraded to CorrectedCorrect(4)),
// and builds the (possibly dilated) error mask used by Rebuild.
//
// prevOther, if non-nil, marks which (kid, physicalBand) were
// CorrectedOther in the previous outer-loop iteration; those persist into
// the error mask even though OTHER alone isn't a mistake.
//
// densityThreshold is the per-band error-mask density (fraction of Nk)
// above which the mask is dilated before Rebuild consumes it
// (config.ErrorMaskDilateDensity, spec default 0.05).
func Correct(d bandtypes.Dims, bandEnergy [][][]float64, bandsFinal [][]int32, signalFinal [][]int8, prevOther [][]bool, densityThreshold float64) *Result {
	width := d.Width()
	out := make([][]int8, d.Nk)
	mask := make([][]bool, width)
	for p := 0; p < width; p++ {
		mask[p] = make([]bool, d.Nk)
	}

	for kid := 0; kid < d.Nk; kid++ {
		out[kid] = make([]int8, width)
		for p := 0; p < width; p++ {
			orig := bandsFinal[kid][p]
			cur := bandtypes.Signal(signalFinal[kid][p])
			switch cur {
			case bandtypes.PotentialCorrect, bandtypes.PotentialMistake:
				if orig < 0 {
					out[kid][p] = int8(bandtypes.CorrectedMistake)
					mask[p][kid] = true
					continue
				}
				s := evaluatePoint(d, bandEnergy, bandsFinal, kid, p)
				level := levelFromScore(s)
				out[kid][p] = int8(level)
				if level == bandtypes.CorrectedMistake {
					mask[p][kid] = true
				}
			case bandtypes.Correct:
				out[kid][p] = int8(bandtypes.CorrectedCorrect)
			case bandtypes.Degenerate:
				out[kid][p] = int8(bandtypes.CorrectedDegenerate)
			case bandtypes.Mistake:
				out[kid][p] = int8(bandtypes.CorrectedMistake)
				mask[p][kid] = true
			default: // NotSolved
				out[kid][p] = int8(bandtypes.CorrectedMistake)
				mask[p][kid] = true
			}
			if prevOther != nil && p < len(prevOther) && kid < len(prevOther[p]) && prevOther[p][kid] &&
				bandtypes.Signal(out[kid][p]) == bandtypes.CorrectedOther {
				mask[p][kid] = true
			}
		}
	}

	for p := 0; p < width; p++ {
		density := countTrue(mask[p]) / float64(d.Nk)
		if density > densityThreshold {
			mask[p] = dilate(d, mask[p])
		}
	}

	return &Result{Signal: out, ErrorMask: mask}
}

// evaluatePoint runs the directional continuity test in all 4 cardinal
// directions from (kid, physicalBand) and returns the count, 0..4, of
// directions judged continuous (r > 0.9).
func evaluatePoint(d bandtypes.Dims, bandEnergy [][][]float64, bandsFinal [][]int32, kid, physicalBand int) int {
	s := 0
	bo := int(bandsFinal[kid][physicalBand]) - d.MinBand
	i, j := d.Coord(kid)
	eActual := bandEnergy[bo][j][i]

	for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
		xs, ys := chain(d, bandEnergy, bandsFinal, kid, physicalBand, dir)
		var pred float64
		ok := false
		if len(xs) >= 4 {
			q, err := linalg.FitQuadratic(xs, ys)
			if err == nil {
				pred = q.Eval(0)
				ok = true
			}
		}
		if !ok {
			if len(xs) == 0 {
				continue
			}
			pred = ys[0]
		}

		minDiff := math.Inf(1)
		for b := 0; b < d.Width(); b++ {
			diff := math.Abs(pred - bandEnergy[b][j][i])
			if diff < minDiff {
				minDiff = diff
			}
		}
		denom := math.Abs(pred - eActual)
		var r float64
		if denom == 0 {
			r = 1
		} else {
			r = clip01(minDiff / denom)
		}
		if r > 0.9 {
			s++
		}
	}
	return s
}

// chain walks forward from kid's neighbor in dir, collecting up to 4
// already-assigned same-physical-band points at positions 1..4 (kid itself,
// position 0, is excluded — it is what we are testing).
func chain(d bandtypes.Dims, bandEnergy [][][]float64, bandsFinal [][]int32, kid, physicalBand, dir int) (xs, ys []float64) {
	cur := d.NeighborKID(kid, dir)
	pos := 1
	for cur >= 0 && pos <= 4 {
		orig := bandsFinal[cur][physicalBand]
		if orig < 0 {
			break
		}
		bo := int(orig) - d.MinBand
		i, j := d.Coord(cur)
		xs = append(xs, float64(pos))
		ys = append(ys, bandEnergy[bo][j][i])
		cur = d.NeighborKID(cur, dir)
		pos++
	}
	return xs, ys
}

func levelFromScore(s int) bandtypes.Signal {
	switch {
	case s == 4:
		return bandtypes.CorrectedCorrect
	case s == 0:
		return bandtypes.CorrectedMistake
	default:
		return bandtypes.CorrectedOther
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

func countTrue(mask []bool) float64 {
	n := 0.0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}

// Rebuild constructs a fresh graph over d.V() nodes containing, for every
// masked (kid, physicalBand) node, a forward-only edge to each unmasked
// axis-neighbor in {+x, +y} (Right, Up). The asymmetry is intentional: it
// keeps the filtered region from double-counting a masked/unmasked pair
// from both sides.
func Rebuild(d bandtypes.Dims, mask [][]bool) *bandgraph.Graph {
	g := bandgraph.New(d.V())
	width := d.Width()
	for p := 0; p < width; p++ {
		for kid := 0; kid < d.Nk; kid++ {
			if !mask[p][kid] {
				continue
			}
			n := d.NodeID(p, kid)
			for _, dir := range []int{bandtypes.DirRight, bandtypes.DirUp} {
				kidPrime := d.NeighborKID(kid, dir)
				if kidPrime < 0 || mask[p][kidPrime] {
					continue
				}
				nPrime := d.NodeID(p, kidPrime)
				_ = g.AddEdge(n, nPrime)
			}
		}
	}
	return g
}
