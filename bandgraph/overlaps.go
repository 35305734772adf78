package bandgraph

import (
	"fmt"

	"github.com/bzclust/bzclust/bandtypes"
)

// Overlaps is the wavefunction overlap tensor C[kid][dir][b1][b2] in [0,1],
// read-only input to Build. b1, b2 are full (unwindowed) band indices.
type Overlaps [][][][]float64

// At returns C[kid, dir, b1, b2], or 0 if dir is outside [0, len(c[kid])).
// It does not check whether kid has a neighbor in dir; callers skip
// off-grid directions themselves.
func (c Overlaps) At(kid, dir, b1, b2 int) float64 {
	if dir < 0 || dir >= len(c[kid]) {
		return 0
	}
	return c[kid][dir][b1][b2]
}

// Validate checks the tensor shape against dims.
func (c Overlaps) Validate(d bandtypes.Dims) error {
	if len(c) != d.Nk {
		return fmt.Errorf("bandgraph: %w: overlaps has %d k-points, want %d", bandtypes.ErrInputShape, len(c), d.Nk)
	}
	for kid, byDir := range c {
		if len(byDir) != bandtypes.N_NEIGS {
			return fmt.Errorf("bandgraph: %w: overlaps[%d] has %d directions, want %d", bandtypes.ErrInputShape, kid, len(byDir), bandtypes.N_NEIGS)
		}
		for _, byB1 := range byDir {
			if len(byB1) != d.Nbnd {
				return fmt.Errorf("bandgraph: %w: overlaps row has %d bands, want %d", bandtypes.ErrInputShape, len(byB1), d.Nbnd)
			}
			for _, byB2 := range byB1 {
				if len(byB2) != d.Nbnd {
					return fmt.Errorf("bandgraph: %w: overlaps row has %d bands, want %d", bandtypes.ErrInputShape, len(byB2), d.Nbnd)
				}
			}
		}
	}
	return nil
}
