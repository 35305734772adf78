// Package solve implements the outer tolerance-relaxing loop: it
// repeatedly partitions the current graph, compiles and corrects the
// resulting assignment, and keeps the best result seen as the overlap/
// energy mixing tolerance decreases from config.StartTol to config.MinTol.
package solve

import (
	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/component"
	"github.com/bzclust/bzclust/merge"
	"github.com/bzclust/bzclust/output"
	"github.com/bzclust/bzclust/signalcorrect"
)

// Params bundles the read-only pipeline inputs the outer loop threads
// through every iteration.
type Params struct {
	Dims                   bandtypes.Dims
	Overlaps               bandgraph.Overlaps
	BandEnergy             [][][]float64
	StartTol, MinTol, Step float64
	ErrorMaskDilateDensity float64
}

// Result is the best snapshot found across all outer-loop iterations.
type Result struct {
	BandsFinal      [][]int32
	Signal          [][]int8 // pre-correction 0..5 scale
	CorrectedSignal [][]int8 // post-correction 1..4 scale
	Degenerate      [][2]int
	FinalScore      []float64 // per physical band, mean neighbor overlap at the chosen band
	Iterations      int
}

// Run executes the outer loop starting from graph (already built at the
// graph-build tolerance and degeneracy-repaired) and the initial degenerate
// pair list left unresolved by bandgraph.Builder.RepairDegenerate.
//
// The graph is replaced by signalcorrect.Rebuild's filtered graph after
// every iteration's correction pass — subsequent partitioning always
// operates on the most recently rebuilt graph, never the original.
func Run(p Params, graph *bandgraph.Graph, initialDegenerate [][2]int) *Result {
	tol := p.StartTol
	var best *Result
	maxSolved := -1
	var prevNotSolved []int
	var prevBandsFinal [][]int32
	var prevOther [][]bool

	g := graph
	iter := 0
	for tol >= p.MinTol {
		iter++
		solved, clusters, samples := component.Partition(g, p.Dims)
		scorer := &merge.Scorer{Dims: p.Dims, Overlaps: p.Overlaps, BandEnergy: p.BandEnergy, Tol: tol}
		mergedSolved, remainingClusters := merge.Run(p.Dims, scorer, clusters, samples)
		solved = append(solved, mergedSolved...)

		asg, err := output.Compile(p.Dims, p.Overlaps, p.BandEnergy, solved, remainingClusters, initialDegenerate)
		if err != nil {
			break
		}

		corrected := signalcorrect.Correct(p.Dims, p.BandEnergy, asg.BandsFinal, asg.SignalFinal, prevOther, p.ErrorMaskDilateDensity)

		finalScore := computeFinalScore(p.Dims, p.Overlaps, asg.BandsFinal)
		notSolved := computeNotSolved(p.Dims, asg.BandsFinal)

		candidate := &Result{
			BandsFinal:      asg.BandsFinal,
			Signal:          asg.SignalFinal,
			CorrectedSignal: corrected.Signal,
			Degenerate:      asg.Degenerate,
			FinalScore:      finalScore,
			Iterations:      iter,
		}

		solvedCount := countImproving(finalScore, notSolved, best, prevNotSolved)

		var nextMask [][]bool
		if best == nil || solvedCount >= maxSolved {
			best = candidate
			maxSolved = solvedCount
			nextMask = corrected.ErrorMask
			prevNotSolved = notSolved
			prevOther = othersMask(p.Dims, corrected.Signal)
		} else {
			// candidate is worse than the best seen so far: discard it,
			// restore best, and re-run the correction pass on the restored
			// state so later iterations keep steering from the best-known
			// assignment instead of a regression.
			restored := signalcorrect.Correct(p.Dims, p.BandEnergy, best.BandsFinal, best.Signal, prevOther, p.ErrorMaskDilateDensity)
			nextMask = restored.ErrorMask
			prevNotSolved = computeNotSolved(p.Dims, best.BandsFinal)
			prevOther = othersMask(p.Dims, restored.Signal)
		}

		if prevBandsFinal != nil && sameBandsFinal(prevBandsFinal, best.BandsFinal) {
			break
		}
		prevBandsFinal = best.BandsFinal

		g = signalcorrect.Rebuild(p.Dims, nextMask)
		tol -= p.Step
	}

	return best
}

// computeFinalScore implements final_score[b] = mean over k of
// mean-neighbor-overlap at band b (zero for unassigned k-points), the
// literal overlap-based definition, not a proxy derived from the bucketed
// signal scale.
func computeFinalScore(d bandtypes.Dims, overlaps bandgraph.Overlaps, bandsFinal [][]int32) []float64 {
	width := d.Width()
	score := make([]float64, width)
	for p := 0; p < width; p++ {
		sum := 0.0
		for kid := 0; kid < d.Nk; kid++ {
			orig := bandsFinal[kid][p]
			if orig < 0 {
				continue
			}
			bo := int(orig) - d.MinBand
			sum += meanNeighborOverlap(d, overlaps, bandsFinal, kid, p, bo)
		}
		score[p] = sum / float64(d.Nk)
	}
	return score
}

// meanNeighborOverlap averages the realized overlap between (kid, bo) and
// each of kid's 4 neighbors against whatever band each neighbor was
// assigned at physicalBand, skipping neighbors that are out of grid or
// unassigned.
func meanNeighborOverlap(d bandtypes.Dims, overlaps bandgraph.Overlaps, bandsFinal [][]int32, kid, physicalBand, bo int) float64 {
	sum := 0.0
	count := 0
	for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
		kidPrime := d.NeighborKID(kid, dir)
		if kidPrime < 0 {
			continue
		}
		origPrime := bandsFinal[kidPrime][physicalBand]
		if origPrime < 0 {
			continue
		}
		boPrime := int(origPrime) - d.MinBand
		sum += overlaps.At(kid, dir, d.MinBand+bo, d.MinBand+boPrime)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func computeNotSolved(d bandtypes.Dims, bandsFinal [][]int32) []int {
	width := d.Width()
	count := make([]int, width)
	for p := 0; p < width; p++ {
		for kid := 0; kid < d.Nk; kid++ {
			if bandsFinal[kid][p] < 0 {
				count[p]++
			}
		}
	}
	return count
}

// countImproving counts, walking bands from 0, how many consecutive bands
// satisfy final_score[b] >= best_score[b] AND not_solved_count[b] <=
// prev_not_solved_count[b] (ties/first-iteration comparisons treated as
// improving so the first candidate always seeds best).
func countImproving(finalScore []float64, notSolved []int, best *Result, prevNotSolved []int) int {
	count := 0
	for b := range finalScore {
		scoreOK := best == nil || b >= len(best.FinalScore) || finalScore[b] >= best.FinalScore[b]
		notSolvedOK := prevNotSolved == nil || b >= len(prevNotSolved) || notSolved[b] <= prevNotSolved[b]
		if scoreOK && notSolvedOK {
			count++
		} else {
			break
		}
	}
	return count
}

func sameBandsFinal(a, b [][]int32) bool {
	if len(a) != len(b) {
		return false
	}
	for kid := range a {
		if len(a[kid]) != len(b[kid]) {
			return false
		}
		for p := range a[kid] {
			if a[kid][p] != b[kid][p] {
				return false
			}
		}
	}
	return true
}

func othersMask(d bandtypes.Dims, signal [][]int8) [][]bool {
	width := d.Width()
	mask := make([][]bool, width)
	for p := 0; p < width; p++ {
		mask[p] = make([]bool, d.Nk)
		for kid := 0; kid < d.Nk; kid++ {
			mask[p][kid] = bandtypes.Signal(signal[kid][p]) == bandtypes.CorrectedOther
		}
	}
	return mask
}
