package bandgraph

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bzclust/bzclust/bandtypes"
)

func TestGraphAddEdgeAndNeighbors(t *testing.T) {
	g := New(4)
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 2))
	assert.Equal(t, []int{1, 2}, g.Neighbors(0))
	assert.Equal(t, []int{0}, g.Neighbors(1))
	assert.True(t, g.HasEdge(0, 1))
	assert.False(t, g.HasEdge(1, 2))
}

func TestGraphAddEdgeOutOfRange(t *testing.T) {
	g := New(2)
	assert.ErrorIs(t, g.AddEdge(0, 5), ErrNodeNotFound)
}

func TestGraphRemoveEdgesOf(t *testing.T) {
	g := New(3)
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 2))
	require.NoError(t, g.RemoveEdgesOf(0))
	assert.Empty(t, g.Neighbors(0))
	assert.Empty(t, g.Neighbors(1))
	assert.Empty(t, g.Neighbors(2))
}

func TestGraphHasPath(t *testing.T) {
	g := New(4)
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(1, 2))
	assert.True(t, g.HasPath(0, 2))
	assert.False(t, g.HasPath(0, 3))
}

func TestGraphClone(t *testing.T) {
	g := New(2)
	require.NoError(t, g.AddEdge(0, 1))
	c := g.Clone()
	require.NoError(t, c.RemoveEdgesOf(0))
	assert.True(t, g.HasEdge(0, 1))
	assert.False(t, c.HasEdge(0, 1))
}

// flatOverlaps builds a minimal 1x1-band-window-friendly overlap tensor for
// a 2x1 grid (two k-points, one neighbor pair) with a single band.
func flatOverlaps(nk, nbnd int, val float64) Overlaps {
	c := make(Overlaps, nk)
	for kid := range c {
		c[kid] = make([][][]float64, bandtypes.N_NEIGS)
		for dir := range c[kid] {
			c[kid][dir] = make([][]float64, nbnd)
			for b1 := range c[kid][dir] {
				c[kid][dir][b1] = make([]float64, nbnd)
				for b2 := range c[kid][dir][b1] {
					c[kid][dir][b1][b2] = val
				}
			}
		}
	}
	return c
}

func TestBuilderBuildThresholdsOverlap(t *testing.T) {
	d := bandtypes.Dims{Nx: 2, Ny: 1, Nk: 2, Nbnd: 1, MinBand: 0, MaxBand: 0}
	b := &Builder{Dims: d, Overlaps: flatOverlaps(2, 1, 0.99), Tol: 0.95, NProcess: 2}
	g, err := b.Build()
	require.NoError(t, err)
	assert.True(t, g.HasEdge(0, 1))
}

func TestBuilderBuildRejectsBelowTolerance(t *testing.T) {
	d := bandtypes.Dims{Nx: 2, Ny: 1, Nk: 2, Nbnd: 1, MinBand: 0, MaxBand: 0}
	b := &Builder{Dims: d, Overlaps: flatOverlaps(2, 1, 0.5), Tol: 0.95, NProcess: 2}
	g, err := b.Build()
	require.NoError(t, err)
	assert.False(t, g.HasEdge(0, 1))
}

func TestRepairDegenerateDisconnectedRecorded(t *testing.T) {
	d := bandtypes.Dims{Nx: 2, Ny: 1, Nk: 2, Nbnd: 2, MinBand: 0, MaxBand: 1}
	b := &Builder{Dims: d, Rand: rand.New(rand.NewPCG(1, 2))}
	g := New(d.V())
	out := b.RepairDegenerate(g, [][2]int{{0, 1}})
	assert.Equal(t, [][2]int{{0, 1}}, out)
}

func TestRepairDegenerateConnectedReassignsEdges(t *testing.T) {
	d := bandtypes.Dims{Nx: 3, Ny: 1, Nk: 3, Nbnd: 2, MinBand: 0, MaxBand: 1}
	// nodes: kid 0..2, band offsets 0,1 -> n = bo*3 + kid
	d1, d2 := 0, 3 // same kid (0), different band offsets: degenerate pair
	g := New(d.V())
	// connect d1 and d2 through an intermediate node so HasPath is true
	mid := d.NodeID(0, 1)
	require.NoError(t, g.AddEdge(d1, mid))
	require.NoError(t, g.AddEdge(d2, mid))

	b := &Builder{Dims: d, Rand: rand.New(rand.NewPCG(1, 2))}
	out := b.RepairDegenerate(g, [][2]int{{d1, d2}})
	assert.Empty(t, out)
	// mid should now be assigned to exactly one of d1/d2, not both.
	linkedToD1 := g.HasEdge(d1, mid)
	linkedToD2 := g.HasEdge(d2, mid)
	assert.True(t, linkedToD1 != linkedToD2, "expected exactly one of d1/d2 to keep the edge")
}
