// Package component extracts connected components from a bandgraph.Graph and
// classifies them as solved (spans the whole k-grid), clusters (maximal
// non-overlapping pieces), or samples (the remainder, merged later).
package component

import (
	"sort"

	"github.com/bzclust/bzclust/bandgraph"
	"github.com/bzclust/bzclust/bandtypes"
)

// Component is a connected subgraph of nodes sharing at most one node per
// k-point.
type Component struct {
	Nodes   []int
	KPoints []int // unique k-ids, sorted

	// BandsNumber maps k-id to the band offset (0..Width()-1) chosen at
	// that k-point within this component.
	BandsNumber map[int]int

	// PositionsMask[j][i] marks whether (i,j) belongs to this component.
	PositionsMask [][]bool

	// Boundary is the subset of KPoints on the perimeter of PositionsMask.
	Boundary []int

	// WasModified invalidates cached merge scores keyed against this
	// component; set by Join, and cleared by merge.Run on every cluster
	// other than the one it joined into last.
	WasModified bool

	// Scores caches merge.score(sample, cluster) results, keyed by the
	// sample's first node id. Valid only while WasModified is false.
	Scores map[int]float64
}

// FromNodes builds a Component from a connected node set produced by BFS.
func FromNodes(d bandtypes.Dims, nodes []int) *Component {
	c := &Component{
		Nodes:       append([]int(nil), nodes...),
		BandsNumber: make(map[int]int, len(nodes)),
		Scores:      make(map[int]float64),
	}
	kset := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		kid := d.NodeKID(n)
		bo := d.NodeBandOffset(n)
		c.BandsNumber[kid] = bo
		kset[kid] = true
	}
	c.KPoints = make([]int, 0, len(kset))
	for kid := range kset {
		c.KPoints = append(c.KPoints, kid)
	}
	sort.Ints(c.KPoints)

	c.PositionsMask = make([][]bool, d.Ny)
	for j := range c.PositionsMask {
		c.PositionsMask[j] = make([]bool, d.Nx)
	}
	for _, kid := range c.KPoints {
		i, j := d.Coord(kid)
		c.PositionsMask[j][i] = true
	}
	c.Boundary = Boundary(d, c.PositionsMask)
	return c
}

// Partition extracts all connected components of g via BFS and classifies
// them into solved (size == Nk), clusters, and samples.
//
// Clusters are formed by scanning components in descending size; the first
// (largest) becomes a cluster unconditionally, and every subsequent
// component becomes a cluster only if it is disjoint (per Validate) from
// every previously accepted cluster — otherwise it becomes a sample.
func Partition(g *bandgraph.Graph, d bandtypes.Dims) (solved, clusters, samples []*Component) {
	visited := make([]bool, g.V())
	var nonSolved []*Component

	for n := 0; n < g.V(); n++ {
		if visited[n] {
			continue
		}
		nodes := bfsComponent(g, n, visited)
		c := FromNodes(d, nodes)
		if len(c.KPoints) == d.Nk {
			solved = append(solved, c)
		} else {
			nonSolved = append(nonSolved, c)
		}
	}

	sort.SliceStable(nonSolved, func(i, j int) bool {
		return len(nonSolved[i].KPoints) > len(nonSolved[j].KPoints)
	})

	for _, c := range nonSolved {
		isCluster := len(clusters) == 0
		if !isCluster {
			isCluster = true
			for _, existing := range clusters {
				if !Validate(existing, c) {
					isCluster = false
					break
				}
			}
		}
		if isCluster {
			clusters = append(clusters, c)
		} else {
			samples = append(samples, c)
		}
	}
	return solved, clusters, samples
}

func bfsComponent(g *bandgraph.Graph, start int, visited []bool) []int {
	visited[start] = true
	queue := []int{start}
	var out []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, m := range g.Neighbors(cur) {
			if !visited[m] {
				visited[m] = true
				queue = append(queue, m)
			}
		}
	}
	return out
}

// Validate reports whether components A and B can coexist as disjoint
// clusters: B must fit in the remaining k-points and their k-masks must not
// overlap.
func Validate(a, b *Component) bool {
	nk := len(a.PositionsMask) * len(a.PositionsMask[0])
	if len(b.KPoints) > nk-len(a.KPoints) {
		return false
	}
	return popcountXOR(a.PositionsMask, b.PositionsMask) == len(a.KPoints)+len(b.KPoints)
}

func popcountXOR(a, b [][]bool) int {
	count := 0
	for j := range a {
		for i := range a[j] {
			if a[j][i] != b[j][i] {
				count++
			}
		}
	}
	return count
}

// Join merges b into a in place: unions node sets, k-masks, recomputes the
// boundary, and marks a as modified (invalidating its cached merge scores).
func Join(d bandtypes.Dims, a, b *Component) {
	a.Nodes = append(a.Nodes, b.Nodes...)
	for kid, bo := range b.BandsNumber {
		a.BandsNumber[kid] = bo
	}
	kset := make(map[int]bool, len(a.KPoints)+len(b.KPoints))
	for _, kid := range a.KPoints {
		kset[kid] = true
	}
	for _, kid := range b.KPoints {
		kset[kid] = true
		i, j := d.Coord(kid)
		a.PositionsMask[j][i] = true
	}
	a.KPoints = a.KPoints[:0]
	for kid := range kset {
		a.KPoints = append(a.KPoints, kid)
	}
	sort.Ints(a.KPoints)
	a.Boundary = Boundary(d, a.PositionsMask)
	a.WasModified = true
	a.Scores = make(map[int]float64)
}
