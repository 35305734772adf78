// Package bandtypes defines the shared grid geometry and signal-level types
// used across the bzclust pipeline (vectorize, bandgraph, component, merge,
// output, signalcorrect, solve).
//
// Grid points are indexed row-major: kid = j*Nx + i, 0 <= i < Nx, 0 <= j < Ny.
// A node identifies a (k-point, band-offset) pair within the active band
// window [MinBand, MaxBand]: n = bandOffset*Nk + kid, where bandOffset is
// relative to MinBand. Node count V = Width()*Nk.
package bandtypes

import "fmt"

// N_NEIGS is the number of cardinal neighbors every k-point has slots for.
// A missing neighbor (grid boundary) is encoded as -1 in the neighbor table.
const N_NEIGS = 4

// Cardinal neighbor directions, fixed order: Down, Right, Up, Left.
const (
	DirDown = iota
	DirRight
	DirUp
	DirLeft
)

// Dims describes the k-grid shape and the active band window.
type Dims struct {
	Nx, Ny  int // grid extent
	Nk      int // Nx*Ny, total k-points
	Nbnd    int // total bands present in the input files
	MinBand int // first band in the active window (inclusive)
	MaxBand int // last band in the active window (inclusive)
}

// Width returns B, the number of bands in the active window.
func (d Dims) Width() int { return d.MaxBand - d.MinBand + 1 }

// V returns the total node count for the active window.
func (d Dims) V() int { return d.Width() * d.Nk }

// Validate checks the structural invariants spec.md §7 calls InputShape /
// InputRange violations.
func (d Dims) Validate() error {
	if d.Nx <= 0 || d.Ny <= 0 {
		return fmt.Errorf("bandtypes: %w: Nx=%d Ny=%d must be positive", ErrInputShape, d.Nx, d.Ny)
	}
	if d.Nk != d.Nx*d.Ny {
		return fmt.Errorf("bandtypes: %w: Nk=%d != Nx*Ny=%d", ErrInputShape, d.Nk, d.Nx*d.Ny)
	}
	if d.MinBand < 0 || d.MaxBand >= d.Nbnd || d.MinBand > d.MaxBand {
		return fmt.Errorf("bandtypes: %w: band window [%d,%d] invalid for Nbnd=%d", ErrInputRange, d.MinBand, d.MaxBand, d.Nbnd)
	}
	return nil
}

// KID maps grid coordinates to the row-major k-point id.
func (d Dims) KID(i, j int) int { return j*d.Nx + i }

// Coord maps a k-point id back to grid coordinates (i, j).
func (d Dims) Coord(kid int) (i, j int) { return kid % d.Nx, kid / d.Nx }

// NodeID maps a (bandOffset, kid) pair to a node id, bandOffset relative to
// MinBand (0..Width()-1).
func (d Dims) NodeID(bandOffset, kid int) int { return bandOffset*d.Nk + kid }

// NodeKID returns the k-point id encoded in node n.
func (d Dims) NodeKID(n int) int { return n % d.Nk }

// NodeBandOffset returns the band offset (0..Width()-1) encoded in node n.
func (d Dims) NodeBandOffset(n int) int { return n / d.Nk }

// NeighborKID returns the k-point id in direction dir from kid, or -1 if dir
// walks off the grid edge. Direction order matches Dir* constants:
// Down decrements j, Right increments i, Up increments j, Left decrements i.
func (d Dims) NeighborKID(kid, dir int) int {
	i, j := d.Coord(kid)
	switch dir {
	case DirDown:
		j--
	case DirRight:
		i++
	case DirUp:
		j++
	case DirLeft:
		i--
	}
	if i < 0 || i >= d.Nx || j < 0 || j >= d.Ny {
		return -1
	}
	return d.KID(i, j)
}

// Signal is the per-(k,band) quality classification of spec.md §4.5/§4.6.
// The two scales (pre- and post-correction) share these names; callers pick
// the right constant set for the array they are filling.
type Signal int8

const (
	NotSolved        Signal = 0
	Mistake          Signal = 1
	Degenerate       Signal = 2
	PotentialMistake Signal = 3
	PotentialCorrect Signal = 4
	Correct          Signal = 5
)

// Corrected-scale signal values (spec.md §4.6): CORRECT collapses to 4.
const (
	CorrectedMistake    Signal = 1
	CorrectedDegenerate Signal = 2
	CorrectedOther      Signal = 3
	CorrectedCorrect    Signal = 4
)

func (s Signal) String() string {
	switch s {
	case NotSolved:
		return "NOT_SOLVED"
	case Mistake:
		return "MISTAKE"
	case Degenerate:
		return "DEGENERATE"
	case PotentialMistake:
		return "POTENTIAL_MISTAKE"
	case PotentialCorrect:
		return "POTENTIAL_CORRECT"
	case Correct:
		return "CORRECT"
	default:
		return fmt.Sprintf("SIGNAL(%d)", int8(s))
	}
}
