// Package output compiles solved and cluster components into the final
// per-(k, physical-band) assignment and quality signal, and detects
// basis-rotation degeneracies left over from the merge stage.
package output

import (
	"math"
	"sort"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/component"
)

// ErrBandSlotExhaustion is returned when a solved component cannot be
// assigned any physical-band slot because every band offset it holds is
// already claimed at one or more of its k-points (pickSlot tries only those
// offsets, not the whole band window). Clusters hitting the same condition are
// skipped rather than erroring (spec behavior): their k-points stay
// unassigned (-1) in BandsFinal.
type ErrBandSlotExhaustion struct {
	ComponentKPoints []int
}

func (e *ErrBandSlotExhaustion) Error() string {
	return "output: no free physical-band slot for a solved component"
}

// Assignment is the compiled result: dense [kid][physicalBand] tables plus
// the updated degenerate-pair list (including any basis-rotation loci
// folded in during this pass).
type Assignment struct {
	BandsFinal  [][]int32 // [kid][physicalBand] = original band, or -1
	SignalFinal [][]int8  // [kid][physicalBand] = bandtypes.Signal
	Degenerate  [][2]int  // updated degenerate pairs (node ids)
}

// Compile assigns solved components (in discovery order) and clusters
// (sorted by descending size) to physical-band slots, computes per-node
// overlap-based signals, and folds detected basis-rotation loci into the
// degenerate list.
func Compile(d bandtypes.Dims, overlaps bandgraph.Overlaps, bandEnergy [][][]float64, solved, clusters []*component.Component, degenerate [][2]int) (*Assignment, error) {
	width := d.Width()

	bandsFinal := make([][]int32, d.Nk)
	nodeToPhysical := make([]map[int]int, d.Nk) // kid -> bandOffset -> physicalBand
	isSolvedKID := make([]bool, d.Nk)
	for kid := range bandsFinal {
		bandsFinal[kid] = make([]int32, width)
		for p := range bandsFinal[kid] {
			bandsFinal[kid][p] = -1
		}
		nodeToPhysical[kid] = make(map[int]int)
	}

	assign := func(c *component.Component, allowFail bool) (bool, error) {
		slot, ok := pickSlot(c, bandsFinal)
		if !ok {
			if allowFail {
				return false, nil
			}
			return false, &ErrBandSlotExhaustion{ComponentKPoints: append([]int(nil), c.KPoints...)}
		}
		for _, kid := range c.KPoints {
			bo := c.BandsNumber[kid]
			bandsFinal[kid][slot] = int32(d.MinBand + bo)
			nodeToPhysical[kid][bo] = slot
		}
		return true, nil
	}

	for _, c := range solved {
		if _, err := assign(c, false); err != nil {
			return nil, err
		}
		for _, kid := range c.KPoints {
			isSolvedKID[kid] = true
		}
	}

	sorted := append([]*component.Component(nil), clusters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].KPoints) > len(sorted[j].KPoints)
	})
	for _, c := range sorted {
		if _, err := assign(c, true); err != nil {
			return nil, err
		}
	}

	signalFinal := make([][]int8, d.Nk)
	for kid := range signalFinal {
		signalFinal[kid] = make([]int8, width)
		for p := 0; p < width; p++ {
			orig := bandsFinal[kid][p]
			if orig < 0 {
				signalFinal[kid][p] = int8(bandtypes.NotSolved)
				continue
			}
			bo := int(orig) - d.MinBand
			signalFinal[kid][p] = int8(nodeSignal(d, overlaps, bandsFinal, kid, p, bo, isSolvedKID[kid]))
		}
	}

	for _, pair := range degenerate {
		kid := d.NodeKID(pair[0])
		bo1 := d.NodeBandOffset(pair[0])
		bo2 := d.NodeBandOffset(pair[1])
		if p, ok := nodeToPhysical[kid][bo1]; ok {
			signalFinal[kid][p] = int8(bandtypes.Degenerate)
		}
		if p, ok := nodeToPhysical[kid][bo2]; ok {
			signalFinal[kid][p] = int8(bandtypes.Degenerate)
		}
	}

	rotationPairs := detectBasisRotation(d, overlaps, bandEnergy, bandsFinal)
	degenerate = append(append([][2]int(nil), degenerate...), rotationPairs...)
	for _, pair := range rotationPairs {
		kid := d.NodeKID(pair[0])
		bo1 := d.NodeBandOffset(pair[0])
		bo2 := d.NodeBandOffset(pair[1])
		if p, ok := nodeToPhysical[kid][bo1]; ok {
			signalFinal[kid][p] = int8(bandtypes.Degenerate)
		}
		if p, ok := nodeToPhysical[kid][bo2]; ok {
			signalFinal[kid][p] = int8(bandtypes.Degenerate)
		}
	}

	return &Assignment{BandsFinal: bandsFinal, SignalFinal: signalFinal, Degenerate: degenerate}, nil
}

// pickSlot walks c's band-offset histogram in descending-frequency order,
// returning the first offset that is still free for every k-point in c.
// "Free" is checked per k-point against bandsFinal rather than as a single
// slot-wide flag: two components that are kid-disjoint (as any two accepted
// clusters are, by Validate) may legitimately share the same physical-band
// slot without colliding.
func pickSlot(c *component.Component, bandsFinal [][]int32) (int, bool) {
	counts := make(map[int]int)
	for _, bo := range c.BandsNumber {
		counts[bo]++
	}
	offsets := make([]int, 0, len(counts))
	for bo := range counts {
		offsets = append(offsets, bo)
	}
	sort.SliceStable(offsets, func(i, j int) bool {
		if counts[offsets[i]] != counts[offsets[j]] {
			return counts[offsets[i]] > counts[offsets[j]]
		}
		return offsets[i] < offsets[j]
	})
	for _, bo := range offsets {
		free := true
		for _, kid := range c.KPoints {
			if bandsFinal[kid][bo] >= 0 {
				free = false
				break
			}
		}
		if free {
			return bo, true
		}
	}
	return 0, false
}

// nodeSignal computes the quality signal for (kid, physicalBand) from the
// mean realized overlap against the chosen band at each of kid's 4
// neighbors. Missing/unassigned neighbors contribute 0 for cluster nodes but
// are simply omitted (don't affect the denominator) for solved nodes.
func nodeSignal(d bandtypes.Dims, overlaps bandgraph.Overlaps, bandsFinal [][]int32, kid, physicalBand, bo int, isSolved bool) bandtypes.Signal {
	sum := 0.0
	count := 0
	for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
		kidPrime := d.NeighborKID(kid, dir)
		if kidPrime < 0 {
			if !isSolved {
				count++
			}
			continue
		}
		origPrime := bandsFinal[kidPrime][physicalBand]
		if origPrime < 0 {
			if !isSolved {
				count++
			}
			continue
		}
		boPrime := int(origPrime) - d.MinBand
		sum += overlaps.At(kid, dir, d.MinBand+bo, d.MinBand+boPrime)
		count++
	}
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	switch {
	case mean > 0.9:
		return bandtypes.Correct
	case mean > 0.8:
		return bandtypes.PotentialCorrect
	case mean > 0.2:
		return bandtypes.PotentialMistake
	default:
		return bandtypes.Mistake
	}
}

// detectBasisRotation scans every (kid, physicalBand) for neighbors whose
// overlap against two or more target bands falls in the ambiguous
// [0.5, 0.8] window — a sign the two bands are mixed by a local basis
// rotation rather than cleanly separated — and folds the ambiguous pair
// with the smaller energy gap into the degenerate list.
func detectBasisRotation(d bandtypes.Dims, overlaps bandgraph.Overlaps, bandEnergy [][][]float64, bandsFinal [][]int32) [][2]int {
	var out [][2]int
	width := d.Width()

	for kid := 0; kid < d.Nk; kid++ {
		for p := 0; p < width; p++ {
			orig := bandsFinal[kid][p]
			if orig < 0 {
				continue
			}
			b := int(orig)

			for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
				kidPrime := d.NeighborKID(kid, dir)
				if kidPrime < 0 {
					continue
				}
				var ambiguous []int
				for bPrime := 0; bPrime < d.Nbnd; bPrime++ {
					ov := overlaps.At(kid, dir, b, bPrime)
					if ov >= 0.5 && ov <= 0.8 {
						ambiguous = append(ambiguous, bPrime)
					}
				}
				if len(ambiguous) < 2 {
					continue
				}
				// Fold the pair of locally-window band offsets with the
				// smallest energy gap at kid into the degenerate list.
				bestI, bestJ := -1, -1
				bestGap := math.Inf(1)
				for i := 0; i < width; i++ {
					for j := i + 1; j < width; j++ {
						if bandsFinal[kid][i] < 0 || bandsFinal[kid][j] < 0 {
							continue
						}
						n1 := d.NodeID(i, kid)
						n2 := d.NodeID(j, kid)
						gap := energyGap(d, bandEnergy, kid, i, j)
						if gap < bestGap {
							bestGap = gap
							bestI, bestJ = n1, n2
						}
					}
				}
				if bestI >= 0 {
					out = append(out, [2]int{minInt(bestI, bestJ), maxInt(bestI, bestJ)})
				}
			}
		}
	}
	return out
}

// energyGap returns |E(kid,b1) - E(kid,b2)| using the windowed band-energy
// tensor, where b1/b2 are band offsets. This is the corrected tiebreak: the
// original implementation's literal scalar multiplication by ±1 always
// produced zero here, which spec.md flags as a bug.
func energyGap(d bandtypes.Dims, bandEnergy [][][]float64, kid, bo1, bo2 int) float64 {
	i, j := d.Coord(kid)
	return math.Abs(bandEnergy[bo1][j][i] - bandEnergy[bo2][j][i])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
