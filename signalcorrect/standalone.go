package signalcorrect

import (
	"fmt"
	"path/filepath"

	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/npy"
)

// Standalone re-runs the directional continuity test over an already
// completed assignment and writes one bn_<b>_signaling.npy file per
// physical band to dir. This restores the original pipeline's standalone
// post-hoc signaling pass (clustering_signaling.py), which the engine's own
// Correct/Rebuild loop does not need since it folds the same test into each
// outer-loop iteration — this entry point exists for operators who want to
// re-signal a previously written result without rerunning the solver.
func Standalone(dir string, d bandtypes.Dims, bandEnergy [][][]float64, bandsFinal [][]int32) error {
	width := d.Width()
	for p := 0; p < width; p++ {
		data := make([]int8, d.Nk)
		for kid := 0; kid < d.Nk; kid++ {
			if bandsFinal[kid][p] < 0 {
				data[kid] = int8(bandtypes.NotSolved)
				continue
			}
			s := evaluatePoint(d, bandEnergy, bandsFinal, kid, p)
			data[kid] = int8(levelFromScore(s))
		}

		arr := &npy.Array{DType: npy.Int8, Shape: []int{d.Ny, d.Nx}, Int8Data: data}
		path := filepath.Join(dir, fmt.Sprintf("bn_%d_signaling.npy", d.MinBand+p))
		if err := npy.WriteFile(path, arr); err != nil {
			return fmt.Errorf("signalcorrect: standalone write %s: %w", path, err)
		}
	}
	return nil
}
