package datastructure

import (
	"testing"

	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLineNetwork(t *testing.T) (*Network, []Index, []Index) {
	t.Helper()
	n := NewNetwork()
	a := n.AddVertex(0, 0)
	b := n.AddVertex(0, 0.0009)
	c := n.AddVertex(0, 0.0018)

	ab, err := n.AddEdge(a, b, 100, 0, 0, nil)
	require.NoError(t, err)
	bc, err := n.AddEdge(b, c, 100, 0, 0, []geo.Coordinate{geo.NewCoordinate(0, 0.00135)})
	require.NoError(t, err)

	n.Freeze()
	return n, []Index{a, b, c}, []Index{ab, bc}
}

func TestDirectedEdgeIDRoundTrip(t *testing.T) {
	n, _, edges := buildLineNetwork(t)

	for _, eId := range edges {
		fwd := NewDirectedEdgeID(eId, true)
		bwd := NewDirectedEdgeID(eId, false)

		assert.True(t, fwd.IsValid())
		assert.True(t, fwd.Forward())
		assert.False(t, bwd.Forward())
		assert.Equal(t, eId, fwd.EdgeID())
		assert.Equal(t, eId, bwd.EdgeID())

		// the bit-exact convention callers persist
		assert.Equal(t, DirectedEdgeID(eId+1), fwd)
		assert.Equal(t, DirectedEdgeID(-(eId + 1)), bwd)

		view := n.GetDirectedEdge(fwd)
		assert.Equal(t, eId, view.ID)
		assert.False(t, view.DataInverted)
		assert.Equal(t, fwd, view.IdDirected())

		rev := n.GetDirectedEdge(bwd)
		assert.Equal(t, eId, rev.ID)
		assert.True(t, rev.DataInverted)
		assert.Equal(t, bwd, rev.IdDirected())
		assert.Equal(t, view.From, rev.To)
		assert.Equal(t, view.To, rev.From)
	}
}

func TestAdjacencyOrientation(t *testing.T) {
	n, verts, edges := buildLineNetwork(t)
	a, b := verts[0], verts[1]

	seen := 0
	n.ForAdjacentEdges(b, func(e EdgeView) bool {
		seen++
		assert.Equal(t, b, e.From, "views must leave the base vertex")
		if e.ID == edges[0] {
			assert.Equal(t, a, e.To)
			assert.True(t, e.DataInverted)
		}
		return true
	})
	assert.Equal(t, 2, seen)
}

func TestShapeReversal(t *testing.T) {
	n, _, edges := buildLineNetwork(t)

	fwd := n.ShapeOf(edges[1], false)
	bwd := n.ShapeOf(edges[1], true)
	require.Len(t, fwd, 1)
	require.Len(t, bwd, 1)
	assert.Equal(t, fwd[0], bwd[0])

	view := n.GetEdge(edges[1])
	poly := n.EdgePolyline(view)
	require.Len(t, poly, 3)
	assert.InDelta(t, 0.0009, poly[0].Lon, 1e-7)
	assert.InDelta(t, 0.00135, poly[1].Lon, 1e-7)
	assert.InDelta(t, 0.0018, poly[2].Lon, 1e-7)

	revPoly := n.EdgePolyline(view.Reverse())
	assert.Equal(t, poly[0], revPoly[2])
	assert.Equal(t, poly[1], revPoly[1])
	assert.Equal(t, poly[2], revPoly[0])
}

func TestSortHilbertKeepsTopology(t *testing.T) {
	n := NewNetwork()
	// deliberately scattered insertion order
	coords := [][2]float64{
		{10, 10}, {0, 0}, {10, 0}, {0, 10}, {5, 5},
	}
	ids := make([]Index, len(coords))
	for i, c := range coords {
		ids[i] = n.AddVertex(c[0], c[1])
	}
	for i := 1; i < len(ids); i++ {
		_, err := n.AddEdge(ids[i-1], ids[i], 100, 0, 0, nil)
		require.NoError(t, err)
	}

	oldToNew := n.SortHilbert()
	n.Freeze()

	require.Len(t, oldToNew, len(coords))
	// ids stay dense and contiguous
	used := make(map[Index]bool)
	for _, newId := range oldToNew {
		assert.GreaterOrEqual(t, int(newId), 0)
		assert.Less(t, int(newId), len(coords))
		assert.False(t, used[newId])
		used[newId] = true
	}
	// coordinates moved along with their vertex
	for oldId, c := range coords {
		lat, lon := n.GetVertexCoordinates(oldToNew[oldId])
		assert.InDelta(t, c[0], lat, 1e-4)
		assert.InDelta(t, c[1], lon, 1e-4)
	}
	// edge endpoints remapped
	for eId := Index(0); eId < Index(n.EdgeCount()); eId++ {
		e := n.GetEdge(eId)
		assert.NotEqual(t, e.From, e.To)
	}
}

func TestOffsetFromFraction(t *testing.T) {
	assert.Equal(t, uint16(0), OffsetFromFraction(-0.5))
	assert.Equal(t, uint16(0), OffsetFromFraction(0))
	assert.Equal(t, uint16(65535), OffsetFromFraction(1))
	assert.Equal(t, uint16(65535), OffsetFromFraction(1.5))
	assert.InDelta(t, 32768, int(OffsetFromFraction(0.5)), 1)
}
