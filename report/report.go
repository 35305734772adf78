// Package report renders a human-readable per-band signaling table
// summarizing an engine.Result, the bzclust equivalent of the original
// pipeline's final.report text output.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bzclust/bzclust/bandtypes"
	"github.com/bzclust/bzclust/engine"
)

// Render writes a tab-aligned summary table of res to w: one row per
// physical band, with counts of each corrected-signal level and the final
// score.
func Render(w io.Writer, dims bandtypes.Dims, res *engine.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "BAND\tCORRECT\tOTHER\tMISTAKE\tDEGENERATE\tUNASSIGNED\tFINAL_SCORE")

	width := dims.Width()
	for p := 0; p < width; p++ {
		var correct, other, mistake, degenerate, unassigned int
		for kid := 0; kid < dims.Nk; kid++ {
			if res.BandsFinal[kid][p] < 0 {
				unassigned++
				continue
			}
			switch bandtypes.Signal(res.CorrectedSignal[kid][p]) {
			case bandtypes.CorrectedCorrect:
				correct++
			case bandtypes.CorrectedOther:
				other++
			case bandtypes.CorrectedMistake:
				mistake++
			case bandtypes.CorrectedDegenerate:
				degenerate++
			}
		}
		score := 0.0
		if p < len(res.FinalScore) {
			score = res.FinalScore[p]
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%.4f\n",
			dims.MinBand+p, correct, other, mistake, degenerate, unassigned, score)
	}

	if len(res.Degenerate) > 0 {
		fmt.Fprintf(tw, "\nunresolved degenerate pairs: %d\n", len(res.Degenerate))
	}

	return tw.Flush()
}
