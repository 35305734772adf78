// Package vectorize builds the node set, k-index tables, and per-band energy
// tensor that every later pipeline stage (bandgraph, component, merge,
// output) operates over, and detects numerically degenerate (k, band) pairs.
//
// A node is the integer n = (b-MinBand)*Nk + kid for band offset b and
// k-point id kid, matching bandtypes.Dims.NodeID.
package vectorize

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bzclust/bzclust/bandtypes"
)

// isCloseAbsTol and isCloseRelTol reproduce the default numpy.isclose
// tolerances used by the original implementation's degeneracy test.
const (
	isCloseAbsTol = 1e-8
	isCloseRelTol = 1e-5
)

// Vector is the per-node feature triple used only for degeneracy detection.
type Vector struct {
	I, J int
	E    float64
}

// Result holds everything the vectorizer produces for one run.
type Result struct {
	Dims bandtypes.Dims

	// KIndex[kid] = (i, j).
	KIndex [][2]int

	// Matrix[j][i] = kid, the inverse of KIndex.
	Matrix [][]int

	// Vectors[n] is the (i, j, E) triple for node n.
	Vectors []Vector

	// Degenerate holds unordered pairs (n1, n2), n1 < n2, whose vectors are
	// numerically indistinguishable.
	Degenerate [][2]int

	// BandEnergy[b][j][i] = E[kid, b+MinBand], b in [0, Width()).
	BandEnergy [][][]float64
}

// Build constructs the node set, k-index tables, and band-energy tensor, and
// detects degenerate node pairs.
//
// energy is indexed energy[kid][b] over the full band range [0, Nbnd); only
// the window [d.MinBand, d.MaxBand] is consulted.
//
// The degeneracy-detection fan-out always runs runtime.GOMAXPROCS(0)
// workers (capped at the node count); it is not configurable from here.
func Build(d bandtypes.Dims, energy [][]float64) (*Result, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(energy) != d.Nk {
		return nil, fmt.Errorf("vectorize: %w: energy has %d k-points, want %d", bandtypes.ErrInputShape, len(energy), d.Nk)
	}
	for kid, row := range energy {
		if len(row) != d.Nbnd {
			return nil, fmt.Errorf("vectorize: %w: energy[%d] has %d bands, want %d", bandtypes.ErrInputShape, kid, len(row), d.Nbnd)
		}
	}

	r := &Result{
		Dims:    d,
		KIndex:  make([][2]int, d.Nk),
		Matrix:  make([][]int, d.Ny),
		Vectors: make([]Vector, d.V()),
	}
	for j := 0; j < d.Ny; j++ {
		r.Matrix[j] = make([]int, d.Nx)
		for i := 0; i < d.Nx; i++ {
			kid := d.KID(i, j)
			r.KIndex[kid] = [2]int{i, j}
			r.Matrix[j][i] = kid
		}
	}

	width := d.Width()
	r.BandEnergy = make([][][]float64, width)
	for bo := 0; bo < width; bo++ {
		b := d.MinBand + bo
		plane := make([][]float64, d.Ny)
		for j := 0; j < d.Ny; j++ {
			plane[j] = make([]float64, d.Nx)
			for i := 0; i < d.Nx; i++ {
				kid := d.KID(i, j)
				plane[j][i] = energy[kid][b]
			}
		}
		r.BandEnergy[bo] = plane

		for kid := 0; kid < d.Nk; kid++ {
			i, j := d.Coord(kid)
			n := d.NodeID(bo, kid)
			r.Vectors[n] = Vector{I: i, J: j, E: energy[kid][b]}
		}
	}

	deg, err := findDegenerate(r.Vectors, 0)
	if err != nil {
		return nil, err
	}
	r.Degenerate = deg

	return r, nil
}

// findDegenerate fan-outs the O(V^2) is-close scan across nProcess shards of
// the n1 index range, mirroring clustering_libs.py's parallelize-based
// pairwise scan: each worker owns a disjoint range of n1 and appends to its
// own local slice, concatenated by the master once every shard finishes.
func findDegenerate(v []Vector, nProcess int) ([][2]int, error) {
	n := len(v)
	if n == 0 {
		return nil, nil
	}
	if nProcess <= 0 {
		nProcess = runtime.GOMAXPROCS(0)
	}
	if nProcess > n {
		nProcess = n
	}

	shards := make([][][2]int, nProcess)
	g := new(errgroup.Group)
	g.SetLimit(nProcess)

	chunk := (n + nProcess - 1) / nProcess
	for w := 0; w < nProcess; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			local := make([][2]int, 0)
			for n1 := lo; n1 < hi; n1++ {
				for n2 := n1 + 1; n2 < n; n2++ {
					if isCloseVector(v[n1], v[n2]) {
						local = append(local, [2]int{n1, n2})
					}
				}
			}
			shards[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, s := range shards {
		total += len(s)
	}
	out := make([][2]int, 0, total)
	for _, s := range shards {
		out = append(out, s...)
	}
	return out, nil
}

// isCloseVector reports whether two node vectors are numerically
// indistinguishable componentwise, using the same absolute/relative
// tolerance pair as numpy.isclose's defaults.
func isCloseVector(a, b Vector) bool {
	return isClose(float64(a.I), float64(b.I)) &&
		isClose(float64(a.J), float64(b.J)) &&
		isClose(a.E, b.E)
}

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= isCloseAbsTol+isCloseRelTol*math.Abs(b)
}
