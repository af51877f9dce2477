package engine

import (
	"context"
	"testing"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

// testNet is the 3-vertex scenario network: A(0,0), B(0,0.0009),
// C(0,0.0018) joined by 100m edges, plus an optional 500m A-C edge.
type testNet struct {
	network  *da.Network
	table    *profiles.EdgeProfileTable
	shortest profiles.Profile

	a, b, c    da.Index
	ab, bc, ac da.Index
}

func buildLine(t *testing.T, withAC bool, acDirection pkg.Direction) *testNet {
	t.Helper()
	n := da.NewNetwork()
	tn := &testNet{network: n, table: profiles.NewEdgeProfileTable()}

	tn.a = n.AddVertex(0, 0)
	tn.b = n.AddVertex(0, 0.0009)
	tn.c = n.AddVertex(0, 0.0018)

	epBoth := tn.table.Add(profiles.EdgeProfile{
		RoadClass: pkg.RESIDENTIAL, Oneway: pkg.BOTH_DIRECTIONS,
	})

	var err error
	tn.ab, err = n.AddEdge(tn.a, tn.b, 100, epBoth, 0, nil)
	require.NoError(t, err)
	tn.bc, err = n.AddEdge(tn.b, tn.c, 100, epBoth, 0, nil)
	require.NoError(t, err)

	tn.ac = da.INVALID_ID
	if withAC {
		epAC := tn.table.Add(profiles.EdgeProfile{
			RoadClass: pkg.RESIDENTIAL, Oneway: acDirection,
		})
		tn.ac, err = n.AddEdge(tn.a, tn.c, 500, epAC, 0, nil)
		require.NoError(t, err)
	}

	tn.shortest = profiles.NewShortest(tn.table)
	return tn
}

func (tn *testNet) engine(t *testing.T) *Engine {
	t.Helper()
	cache := profiles.NewFactorCache(tn.table, tn.shortest)
	return New(tn.network, tn.table, zap.NewNop(), Config{FactorCache: cache}, tn.shortest)
}

func point(edge da.Index, offset uint16) da.RouterPoint {
	return da.NewRouterPoint(0, 0, edge, offset)
}

func TestScenarioStraightLine(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)
	ctx := context.Background()

	source := point(tn.ab, 0)
	target := point(tn.bc, pkg.MAX_OFFSET)

	weight, err := eng.TryCalculateWeight(ctx, tn.shortest, source, target)
	require.NoError(t, err)
	assert.InDelta(t, 200, weight, 1e-6)

	route, err := eng.TryCalculate(ctx, tn.shortest, source, target)
	require.NoError(t, err)
	assert.InDelta(t, 200, route.TotalDistance, 1e-6)
	// passes through B
	found := false
	for _, c := range route.Coordinates {
		if da.Eq(c.Lat, 0) && da.Eq(c.Lon, 0.0009) {
			found = true
		}
	}
	assert.True(t, found, "route must pass through B")
}

func TestScenarioOneWayBlock(t *testing.T) {
	tn := buildLine(t, true, pkg.BACKWARD_ONLY) // A-C traversable C->A only
	eng := tn.engine(t)

	weight, err := eng.TryCalculateWeight(context.Background(), tn.shortest,
		point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.NoError(t, err)
	assert.InDelta(t, 200, weight, 1e-6, "must route A-B-C, not the one-way edge")

	// the reverse trip may use the one-way edge
	back, err := eng.TryCalculateWeight(context.Background(), tn.shortest,
		point(tn.bc, pkg.MAX_OFFSET), point(tn.ab, 0))
	require.NoError(t, err)
	assert.InDelta(t, 200, back, 1e-6)
}

func TestScenarioRestriction(t *testing.T) {
	tn := buildLine(t, true, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)
	eng.AddRestrictions(tn.shortest.Name(), da.NewRestrictionIndex([][]da.Index{
		{tn.a, tn.b, tn.c},
	}))

	weight, err := eng.TryCalculateWeight(context.Background(), tn.shortest,
		point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.NoError(t, err)
	assert.InDelta(t, 500, weight, 1e-6, "restricted trip must take the long edge")

	// without the restriction the short chain wins
	free := tn.engine(t)
	weight, err = free.TryCalculateWeight(context.Background(), tn.shortest,
		point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.NoError(t, err)
	assert.InDelta(t, 200, weight, 1e-6)
}

func TestScenarioSameEdge(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	source := point(tn.ab, 10000)
	target := point(tn.ab, 20000)

	weight, err := eng.TryCalculateWeight(context.Background(), tn.shortest, source, target)
	require.NoError(t, err)
	want := float64(20000-10000) / float64(pkg.MAX_OFFSET) * 100
	assert.InDelta(t, want, weight, 1e-6)

	route, err := eng.TryCalculate(context.Background(), tn.shortest, source, target)
	require.NoError(t, err)
	assert.InDelta(t, want, route.TotalDistance, 1e-6)
	assert.Len(t, route.Segments, 1, "no intermediate vertex on a same-edge trip")
}

func TestScenarioUnreachable(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	// disconnected component far away
	d1 := tn.network.AddVertex(0.01, 0.01)
	d2 := tn.network.AddVertex(0.01, 0.0109)
	island, err := tn.network.AddEdge(d1, d2, 100, 0, 0, nil)
	require.NoError(t, err)
	eng := tn.engine(t)

	_, err = eng.TryCalculate(context.Background(), tn.shortest,
		point(tn.ab, 0), point(island, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrRouteNotFound)

	// the island target is unreachable from every source
	weights, invalidSources, invalidTargets, err := eng.TryCalculateWeights(context.Background(),
		tn.shortest,
		[]da.RouterPoint{point(tn.ab, 0), point(tn.bc, 0)},
		[]da.RouterPoint{point(tn.bc, pkg.MAX_OFFSET), point(island, 0)})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, weights[0][1], pkg.INF_WEIGHT)
	// with two targets a single unreachable entry already crosses the
	// (|T|-1)/2 threshold
	assert.Equal(t, []int{0, 1}, invalidSources)
	assert.Equal(t, []int{1}, invalidTargets)
}

// hand-built hierarchy over the line network: B contracted first, with
// an A-C shortcut summarizing A-B-C.
func (tn *testNet) contractedLine() *da.ContractedGraph {
	chb := da.NewContractedGraphBuilder(tn.network.VertexCount(), false)
	chb.SetLevel(tn.b, 0)
	chb.SetLevel(tn.a, 1)
	chb.SetLevel(tn.c, 2)
	chb.AddEdge(tn.a, tn.b, 100, 100, da.INVALID_ID, tn.ab)
	chb.AddEdge(tn.b, tn.c, 100, 100, da.INVALID_ID, tn.bc)
	chb.AddEdge(tn.a, tn.c, 200, 200, tn.b, da.INVALID_ID)
	return chb.Build()
}

func TestScenarioContractedEquivalence(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)

	plain := tn.engine(t)
	contracted := tn.engine(t)
	contracted.AddContracted(tn.shortest.Name(), tn.contractedLine())

	queries := []struct {
		name           string
		source, target da.RouterPoint
	}{
		{name: "endpoint to endpoint", source: point(tn.ab, 0), target: point(tn.bc, pkg.MAX_OFFSET)},
		{name: "mid to mid", source: point(tn.ab, 16384), target: point(tn.bc, 49151)},
		{name: "backwards", source: point(tn.bc, pkg.MAX_OFFSET), target: point(tn.ab, 0)},
	}
	for _, q := range queries {
		t.Run(q.name, func(t *testing.T) {
			wantWeight, err := plain.TryCalculateWeight(context.Background(), tn.shortest, q.source, q.target)
			require.NoError(t, err)
			gotWeight, err := contracted.TryCalculateWeight(context.Background(), tn.shortest, q.source, q.target)
			require.NoError(t, err)
			assert.InDelta(t, wantWeight, gotWeight, 1e-3)

			wantRoute, err := plain.TryCalculate(context.Background(), tn.shortest, q.source, q.target)
			require.NoError(t, err)
			gotRoute, err := contracted.TryCalculate(context.Background(), tn.shortest, q.source, q.target)
			require.NoError(t, err)
			assert.InDelta(t, wantRoute.TotalDistance, gotRoute.TotalDistance, 1e-3)
			require.Len(t, gotRoute.Coordinates, len(wantRoute.Coordinates))
			for i := range wantRoute.Coordinates {
				assert.InDelta(t, wantRoute.Coordinates[i].Lat, gotRoute.Coordinates[i].Lat, 1e-6)
				assert.InDelta(t, wantRoute.Coordinates[i].Lon, gotRoute.Coordinates[i].Lon, 1e-6)
			}
		})
	}
}

func TestSymmetryUndirectedProfile(t *testing.T) {
	tn := buildLine(t, true, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	points := []da.RouterPoint{
		point(tn.ab, 0),
		point(tn.ab, 40000),
		point(tn.bc, 20000),
		point(tn.ac, 30000),
	}
	for i := range points {
		for j := range points {
			forward, err := eng.TryCalculateWeight(context.Background(), tn.shortest, points[i], points[j])
			require.NoError(t, err)
			backward, err := eng.TryCalculateWeight(context.Background(), tn.shortest, points[j], points[i])
			require.NoError(t, err)
			assert.InDelta(t, forward, backward, 1e-6, "weight(%d,%d) != weight(%d,%d)", i, j, j, i)
		}
	}
}

func TestTriangleInequality(t *testing.T) {
	tn := buildLine(t, true, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	pts := []da.RouterPoint{
		point(tn.ab, 10000),
		point(tn.bc, 30000),
		point(tn.ac, 60000),
	}
	for _, a := range pts {
		for _, b := range pts {
			for _, c := range pts {
				ac, err := eng.TryCalculateWeight(context.Background(), tn.shortest, a, c)
				require.NoError(t, err)
				ab, err := eng.TryCalculateWeight(context.Background(), tn.shortest, a, b)
				require.NoError(t, err)
				bc, err := eng.TryCalculateWeight(context.Background(), tn.shortest, b, c)
				require.NoError(t, err)
				assert.LessOrEqual(t, ac, ab+bc+1e-6)
			}
		}
	}
}

func TestManyToManyConsistency(t *testing.T) {
	tn := buildLine(t, true, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	sources := []da.RouterPoint{point(tn.ab, 0), point(tn.ab, 50000), point(tn.ac, 10000)}
	targets := []da.RouterPoint{point(tn.bc, pkg.MAX_OFFSET), point(tn.bc, 1000)}

	weights, _, _, err := eng.TryCalculateWeights(context.Background(), tn.shortest, sources, targets)
	require.NoError(t, err)

	for i := range sources {
		for j := range targets {
			single, err := eng.TryCalculateWeight(context.Background(), tn.shortest, sources[i], targets[j])
			require.NoError(t, err)
			assert.InDelta(t, single, weights[i][j], 1e-6, "matrix[%d][%d]", i, j)
		}
	}
}

func TestManyToManyRoutes(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	sources := []da.RouterPoint{point(tn.ab, 0), point(tn.bc, 0)}
	targets := []da.RouterPoint{point(tn.bc, pkg.MAX_OFFSET), point(tn.ab, 30000)}

	routes, invalidSources, invalidTargets, err := eng.TryCalculateRoutes(context.Background(),
		tn.shortest, sources, targets)
	require.NoError(t, err)
	assert.Empty(t, invalidSources)
	assert.Empty(t, invalidTargets)

	require.Len(t, routes, 2)
	for i := range sources {
		require.Len(t, routes[i], 2)
		for j := range targets {
			require.NotNil(t, routes[i][j], "route[%d][%d]", i, j)
			single, err := eng.TryCalculateWeight(context.Background(), tn.shortest, sources[i], targets[j])
			require.NoError(t, err)
			assert.InDelta(t, single, routes[i][j].TotalDistance, 1e-3)
		}
	}
}

func TestManyToManyContractedConsistency(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)

	plain := tn.engine(t)
	contracted := tn.engine(t)
	contracted.AddContracted(tn.shortest.Name(), tn.contractedLine())

	sources := []da.RouterPoint{point(tn.ab, 0), point(tn.ab, 30000)}
	targets := []da.RouterPoint{point(tn.bc, pkg.MAX_OFFSET), point(tn.bc, 20000)}

	want, _, _, err := plain.TryCalculateWeights(context.Background(), tn.shortest, sources, targets)
	require.NoError(t, err)
	got, _, _, err := contracted.TryCalculateWeights(context.Background(), tn.shortest, sources, targets)
	require.NoError(t, err)

	for i := range sources {
		for j := range targets {
			assert.InDelta(t, want[i][j], got[i][j], 1e-3, "matrix[%d][%d]", i, j)
		}
	}
}

// edgeHierarchyLine hand-builds the edge-expanded hierarchy over the
// line+long-edge network with the A,B,C transition left out, encoding
// the turn restriction natively.
func (tn *testNet) edgeHierarchyLine() *da.ContractedGraph {
	abF := da.EdgeNode(tn.ab, true)
	abB := da.EdgeNode(tn.ab, false)
	bcF := da.EdgeNode(tn.bc, true)
	bcB := da.EdgeNode(tn.bc, false)
	acF := da.EdgeNode(tn.ac, true)
	acB := da.EdgeNode(tn.ac, false)

	chb := da.NewContractedGraphBuilder(2*tn.network.EdgeCount(), true)
	chb.SetLevel(abB, 0)
	chb.SetLevel(abF, 1)
	chb.SetLevel(bcF, 2)
	chb.SetLevel(bcB, 3)
	chb.SetLevel(acB, 4)
	chb.SetLevel(acF, 5)

	inf := pkg.INF_WEIGHT
	chb.AddEdge(bcB, abB, 100, inf, da.INVALID_ID, tn.ab)
	chb.AddEdge(abB, acF, 500, inf, da.INVALID_ID, tn.ac)
	chb.AddEdge(acB, abF, 100, inf, da.INVALID_ID, tn.ab)
	chb.AddEdge(bcF, acB, 500, inf, da.INVALID_ID, tn.ac)
	chb.AddEdge(acF, bcB, 100, inf, da.INVALID_ID, tn.bc)
	return chb.Build()
}

func TestEngineSelectsEdgeHierarchy(t *testing.T) {
	tn := buildLine(t, true, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)
	eng.AddRestrictions(tn.shortest.Name(), da.NewRestrictionIndex([][]da.Index{
		{tn.a, tn.b, tn.c},
	}))
	eng.AddContracted(tn.shortest.Name(), tn.edgeHierarchyLine())

	weight, err := eng.TryCalculateWeight(context.Background(), tn.shortest,
		point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.NoError(t, err)
	assert.InDelta(t, 500, weight, 1e-6, "the edge-based hierarchy must honor the restriction")

	route, err := eng.TryCalculate(context.Background(), tn.shortest,
		point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.NoError(t, err)
	assert.InDelta(t, 500, route.TotalDistance, 1e-6)
}

func TestInvalidMarkingThreshold(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	// two islands
	d1 := tn.network.AddVertex(0.01, 0.01)
	d2 := tn.network.AddVertex(0.01, 0.0109)
	island1, err := tn.network.AddEdge(d1, d2, 100, 0, 0, nil)
	require.NoError(t, err)
	e1 := tn.network.AddVertex(0.02, 0.02)
	e2 := tn.network.AddVertex(0.02, 0.0209)
	island2, err := tn.network.AddEdge(e1, e2, 100, 0, 0, nil)
	require.NoError(t, err)
	eng := tn.engine(t)

	// source 0 reaches 1 of 3 targets: 2 unreachable > (3-1)/2 = 1
	sources := []da.RouterPoint{point(tn.ab, 0)}
	targets := []da.RouterPoint{point(tn.bc, 0), point(island1, 0), point(island2, 0)}

	_, invalidSources, invalidTargets, err := eng.TryCalculateWeights(context.Background(),
		tn.shortest, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, invalidSources)
	// every island target misses its single source: 1 > (1-1)/2 = 0
	assert.Equal(t, []int{1, 2}, invalidTargets)
}

func TestProfileUnsupported(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	unregistered := profiles.NewCar(tn.table)
	_, err := eng.TryCalculateWeight(context.Background(), unregistered,
		point(tn.ab, 0), point(tn.bc, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrProfileUnsupported)
	assert.Equal(t, "Routing profile is not supported.", err.Error())

	assert.True(t, eng.SupportsAll("shortest"))
	assert.False(t, eng.SupportsAll("shortest", "car"))
}

func TestCancellation(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.TryCalculateWeight(ctx, tn.shortest, point(tn.ab, 0), point(tn.bc, pkg.MAX_OFFSET))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrCancelled)
}

func TestCheckConnectivity(t *testing.T) {
	tn := buildLine(t, false, pkg.BOTH_DIRECTIONS)
	eng := tn.engine(t)
	ctx := context.Background()

	reached, err := eng.TryCheckConnectivity(ctx, tn.shortest, point(tn.ab, 0), 150)
	require.NoError(t, err)
	assert.True(t, reached, "the network extends 200m from A")

	reached, err = eng.TryCheckConnectivity(ctx, tn.shortest, point(tn.ab, 0), 10000)
	require.NoError(t, err)
	assert.False(t, reached, "the whole component is smaller than 10km")
}
