package routebuilder

import (
	"testing"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNetwork(t *testing.T) (*da.Network, []da.Index, []da.Index, []profiles.Factor) {
	t.Helper()
	n := da.NewNetwork()
	a := n.AddVertex(0, 0)
	b := n.AddVertex(0, 0.0009)
	c := n.AddVertex(0, 0.0018)

	ab, err := n.AddEdge(a, b, 100, 0, 3, nil)
	require.NoError(t, err)
	// shaped edge: one intermediate point
	bc, err := n.AddEdge(b, c, 100, 0, 4, []geo.Coordinate{geo.NewCoordinate(0, 0.00135)})
	require.NoError(t, err)
	n.Freeze()

	// 0.5 s/m keeps durations distinct from distances
	factors := []profiles.Factor{{Value: 0.5, Direction: pkg.BOTH_DIRECTIONS}}
	return n, []da.Index{a, b, c}, []da.Index{ab, bc}, factors
}

func TestBuildFullPath(t *testing.T) {
	n, verts, edges, factors := buildNetwork(t)
	builder := NewBuilder(n)

	source := da.NewRouterPoint(0, 0, edges[0], 0)
	target := da.NewRouterPoint(0, 0.0018, edges[1], pkg.MAX_OFFSET)

	route, err := builder.Build(factors, source, target, []da.Index{verts[0], verts[1], verts[2]})
	require.NoError(t, err)

	assert.InDelta(t, 200, route.TotalDistance, 1e-6)
	assert.InDelta(t, 100, route.TotalDuration, 1e-6)
	require.Len(t, route.Segments, 2)
	assert.Equal(t, uint32(3), route.Segments[0].MetaID)
	assert.Equal(t, uint32(4), route.Segments[1].MetaID)

	// geometry: A, B, shape point, C
	require.Len(t, route.Coordinates, 4)
	assert.InDelta(t, 0.00135, route.Coordinates[2].Lon, 1e-7)
}

func TestBuildTrimsEndEdges(t *testing.T) {
	n, verts, edges, factors := buildNetwork(t)
	builder := NewBuilder(n)

	// from 25% along A-B to 50% along B-C
	source := da.NewRouterPoint(0, 0.000225, edges[0], da.OffsetFromFraction(0.25))
	target := da.NewRouterPoint(0, 0.00135, edges[1], da.OffsetFromFraction(0.5))

	route, err := builder.Build(factors, source, target, []da.Index{verts[1]})
	require.NoError(t, err)

	assert.InDelta(t, 75+50, route.TotalDistance, 1e-2)
	require.Len(t, route.Segments, 2)
	assert.InDelta(t, 75, route.Segments[0].Distance, 1e-2)
	assert.InDelta(t, 50, route.Segments[1].Distance, 1e-2)

	first := route.Coordinates[0]
	assert.InDelta(t, 0.000225, first.Lon, 1e-6)
	last := route.Coordinates[len(route.Coordinates)-1]
	assert.InDelta(t, 0.00135, last.Lon, 1e-6)
}

func TestBuildSameEdge(t *testing.T) {
	n, _, edges, factors := buildNetwork(t)
	builder := NewBuilder(n)

	source := da.NewRouterPoint(0, 0, edges[0], 10000)
	target := da.NewRouterPoint(0, 0, edges[0], 20000)

	route, err := builder.Build(factors, source, target, nil)
	require.NoError(t, err)

	want := float64(10000) / float64(pkg.MAX_OFFSET) * 100
	assert.InDelta(t, want, route.TotalDistance, 1e-6)
	require.Len(t, route.Segments, 1)
	// forward along the edge, longitudes increase
	require.GreaterOrEqual(t, len(route.Coordinates), 2)
	assert.Less(t, route.Coordinates[0].Lon, route.Coordinates[len(route.Coordinates)-1].Lon)
}

func TestBuildSameEdgeReversed(t *testing.T) {
	n, _, edges, factors := buildNetwork(t)
	builder := NewBuilder(n)

	source := da.NewRouterPoint(0, 0, edges[0], 20000)
	target := da.NewRouterPoint(0, 0, edges[0], 10000)

	route, err := builder.Build(factors, source, target, nil)
	require.NoError(t, err)
	assert.Less(t, route.Coordinates[len(route.Coordinates)-1].Lon, route.Coordinates[0].Lon,
		"reversed trip must emit the shape backwards")
}

func TestBuildRejectsDetachedPath(t *testing.T) {
	n, verts, edges, factors := buildNetwork(t)
	builder := NewBuilder(n)

	source := da.NewRouterPoint(0, 0, edges[0], 0)
	target := da.NewRouterPoint(0, 0, edges[1], 0)

	_, err := builder.Build(factors, source, target, []da.Index{verts[2]})
	require.Error(t, err)
}
