package bandgraph

import (
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bzclust/bzclust/bandtypes"
)

// Builder assembles the similarity graph from overlap data and repairs
// degenerate node pairs. When Rand is nil, RepairDegenerate uses a source
// with a fixed seed; engine.Run sets it from config.Seed.
type Builder struct {
	Dims     bandtypes.Dims
	Overlaps Overlaps
	Tol      float64
	NProcess int
	Rand     *rand.Rand
}

// Build constructs the initial similarity graph: an edge (n1, n2) exists iff
// n2's k-point is a cardinal neighbor of n1's k-point and the corresponding
// overlap exceeds Tol. Edge enumeration fans out over node-id shards with
// errgroup, mirroring vectorize's degeneracy-detection fan-out.
func (b *Builder) Build() (*Graph, error) {
	if err := b.Dims.Validate(); err != nil {
		return nil, err
	}
	if err := b.Overlaps.Validate(b.Dims); err != nil {
		return nil, err
	}

	g := New(b.Dims.V())
	nProcess := b.NProcess
	if nProcess <= 0 {
		nProcess = runtime.GOMAXPROCS(0)
	}
	v := b.Dims.V()
	if nProcess > v {
		nProcess = v
	}
	if nProcess < 1 {
		nProcess = 1
	}

	type edge struct{ n1, n2 int }
	shards := make([][]edge, nProcess)
	eg := new(errgroup.Group)
	eg.SetLimit(nProcess)

	chunk := (v + nProcess - 1) / nProcess
	for w := 0; w < nProcess; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > v {
			hi = v
		}
		if lo >= hi {
			continue
		}
		eg.Go(func() error {
			local := make([]edge, 0)
			for n1 := lo; n1 < hi; n1++ {
				kid := b.Dims.NodeKID(n1)
				bo1 := b.Dims.NodeBandOffset(n1)
				b1 := b.Dims.MinBand + bo1
				for dir := 0; dir < bandtypes.N_NEIGS; dir++ {
					kid2 := b.Dims.NeighborKID(kid, dir)
					if kid2 < 0 {
						continue
					}
					for bo2 := 0; bo2 < b.Dims.Width(); bo2++ {
						b2 := b.Dims.MinBand + bo2
						if b.Overlaps.At(kid, dir, b1, b2) > b.Tol {
							n2 := b.Dims.NodeID(bo2, kid2)
							local = append(local, edge{n1, n2})
						}
					}
				}
			}
			shards[w] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, s := range shards {
		for _, e := range s {
			if err := g.AddEdge(e.n1, e.n2); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// RepairDegenerate resolves ambiguous local topology around each degenerate
// pair (d1, d2): if the pair is disconnected, it is simply reported as
// unresolved; otherwise the union of their neighbors is partitioned between
// d1 and d2 by proximity (in node-id space) to a reference anchor, and the
// pair's old edges are replaced by the new assignment.
func (b *Builder) RepairDegenerate(g *Graph, pairs [][2]int) (degenerateFinal [][2]int) {
	r := b.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(1, 1))
	}

	for _, pair := range pairs {
		d1, d2 := pair[0], pair[1]
		if !g.HasPath(d1, d2) {
			degenerateFinal = append(degenerateFinal, pair)
			continue
		}

		n1 := removeValue(g.Neighbors(d1), d2)
		n2 := removeValue(g.Neighbors(d2), d1)

		assignD1, assignD2 := partitionNeighbors(b.Dims, n1, n2, r)

		_ = g.RemoveEdgesOf(d1)
		_ = g.RemoveEdgesOf(d2)
		for _, n := range assignD1 {
			_ = g.AddEdge(d1, n)
		}
		for _, n := range assignD2 {
			_ = g.AddEdge(d2, n)
		}
	}
	return degenerateFinal
}

func removeValue(s []int, v int) []int {
	out := make([]int, 0, len(s))
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// partitionNeighbors splits the union of n1 (d1's neighbors) and n2 (d2's
// neighbors) into two disjoint sets, resolving any k-point claimed by both
// sides by proximity to an anchor node.
//
// Symmetric case (both sides have more than one neighbor): the anchor is a
// random element of n1; every contested k-point goes to whichever side's
// candidate node id is closer to the anchor.
//
// Asymmetric case: the anchor is n1's first neighbor, or n2's first if n1
// is empty (if both sides are empty, there is nothing to do); the same
// proximity rule resolves every contested k-point against it.
func partitionNeighbors(d bandtypes.Dims, n1, n2 []int, r *rand.Rand) (assignD1, assignD2 []int) {
	byKID := make(map[int][2]int) // kid -> (fromN1 node or -1, fromN2 node or -1)
	for _, n := range n1 {
		kid := d.NodeKID(n)
		e, ok := byKID[kid]
		if !ok {
			e = [2]int{-1, -1}
		}
		e[0] = n
		byKID[kid] = e
	}
	for _, n := range n2 {
		kid := d.NodeKID(n)
		e, ok := byKID[kid]
		if !ok {
			e = [2]int{-1, -1}
		}
		e[1] = n
		byKID[kid] = e
	}

	var anchor int
	switch {
	case len(n1) > 1 && len(n2) > 1:
		anchor = n1[r.IntN(len(n1))]
	case len(n1) > 0:
		anchor = n1[0]
	case len(n2) > 0:
		anchor = n2[0]
	default:
		return nil, nil
	}

	kids := make([]int, 0, len(byKID))
	for kid := range byKID {
		kids = append(kids, kid)
	}
	sort.Ints(kids)

	for _, kid := range kids {
		e := byKID[kid]
		a, bNode := e[0], e[1]
		switch {
		case a >= 0 && bNode >= 0 && a != bNode:
			// Two distinct candidate nodes share this k-id, one from each
			// side: keep both, the one closer to the anchor goes to d1, the
			// farther to d2.
			if absInt(a-anchor) <= absInt(bNode-anchor) {
				assignD1 = append(assignD1, a)
				assignD2 = append(assignD2, bNode)
			} else {
				assignD1 = append(assignD1, bNode)
				assignD2 = append(assignD2, a)
			}
		case a >= 0 && bNode >= 0:
			// Same node adjacent to both d1 and d2 pre-repair: assign it to
			// exactly one side, or the repair would just reconnect them.
			if absInt(a-anchor) <= absInt(bNode-anchor) {
				assignD1 = append(assignD1, a)
			} else {
				assignD2 = append(assignD2, bNode)
			}
		case a >= 0:
			assignD1 = append(assignD1, a)
		case bNode >= 0:
			assignD2 = append(assignD2, bNode)
		}
	}
	return assignD1, assignD2
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
