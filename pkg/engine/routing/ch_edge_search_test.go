package routing

import (
	"context"
	"testing"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangle network with a turn restriction A,B,C: the short chain is
// forbidden, trips towards C must use the long A-C edge.
type restrictedTriangle struct {
	network    *da.Network
	factors    []profiles.Factor
	ri         *da.RestrictionIndex
	a, b, c    da.Index
	ab, bc, ac da.Index
}

func buildRestrictedTriangle(t *testing.T) *restrictedTriangle {
	t.Helper()
	n := da.NewNetwork()
	tr := &restrictedTriangle{network: n}
	tr.a = n.AddVertex(0, 0)
	tr.b = n.AddVertex(0, 0.0009)
	tr.c = n.AddVertex(0, 0.0018)

	var err error
	tr.ab, err = n.AddEdge(tr.a, tr.b, 100, 0, 0, nil)
	require.NoError(t, err)
	tr.bc, err = n.AddEdge(tr.b, tr.c, 100, 0, 0, nil)
	require.NoError(t, err)
	tr.ac, err = n.AddEdge(tr.a, tr.c, 500, 0, 0, nil)
	require.NoError(t, err)
	n.Freeze()

	tr.factors = []profiles.Factor{{Value: 1.0, Direction: pkg.BOTH_DIRECTIONS}}
	tr.ri = da.NewRestrictionIndex([][]da.Index{{tr.a, tr.b, tr.c}})
	return tr
}

// edgeHierarchy hand-builds the edge-expanded hierarchy: nodes are
// directed edges, the A,B,C transition is absent, U-turns are not
// modeled.
func (tr *restrictedTriangle) edgeHierarchy() *da.ContractedGraph {
	abF := da.EdgeNode(tr.ab, true)
	abB := da.EdgeNode(tr.ab, false)
	bcF := da.EdgeNode(tr.bc, true)
	bcB := da.EdgeNode(tr.bc, false)
	acF := da.EdgeNode(tr.ac, true)
	acB := da.EdgeNode(tr.ac, false)

	chb := da.NewContractedGraphBuilder(2*tr.network.EdgeCount(), true)
	chb.SetLevel(abB, 0)
	chb.SetLevel(abF, 1)
	chb.SetLevel(bcF, 2)
	chb.SetLevel(bcB, 3)
	chb.SetLevel(acB, 4)
	chb.SetLevel(acF, 5)

	// transition weights carry the successor edge weight; the abF->bcF
	// transition encoding the restriction is left out
	chb.AddEdge(bcB, abB, 100, pkg.INF_WEIGHT, da.INVALID_ID, tr.ab)
	chb.AddEdge(abB, acF, 500, pkg.INF_WEIGHT, da.INVALID_ID, tr.ac)
	chb.AddEdge(acB, abF, 100, pkg.INF_WEIGHT, da.INVALID_ID, tr.ab)
	chb.AddEdge(bcF, acB, 500, pkg.INF_WEIGHT, da.INVALID_ID, tr.ac)
	chb.AddEdge(acF, bcB, 100, pkg.INF_WEIGHT, da.INVALID_ID, tr.bc)
	return chb.Build()
}

func TestCHEdgeSearchHonorsRestriction(t *testing.T) {
	tr := buildRestrictedTriangle(t)
	ch := tr.edgeHierarchy()
	search := NewCHEdgeBidirectionalSearch(tr.network, ch)

	source := da.NewRouterPoint(0, 0, tr.ab, 0)
	target := da.NewRouterPoint(0, 0.0018, tr.bc, pkg.MAX_OFFSET)

	result, err := search.Run(context.Background(), tr.factors, source, target)
	require.NoError(t, err)
	assert.InDelta(t, 500, result.Weight, 1e-6)
	assert.Equal(t, []da.Index{tr.a, tr.c}, result.Path)
}

func TestCHEdgeSearchMatchesEdgeDijkstra(t *testing.T) {
	tr := buildRestrictedTriangle(t)
	ch := tr.edgeHierarchy()
	chSearch := NewCHEdgeBidirectionalSearch(tr.network, ch)
	plain := NewEdgeDijkstra(tr.network, tr.factors, tr.ri)

	queries := []struct {
		name           string
		source, target da.RouterPoint
	}{
		{
			name:   "to the far vertex",
			source: da.NewRouterPoint(0, 0, tr.ab, 0),
			target: da.NewRouterPoint(0, 0.0018, tr.bc, pkg.MAX_OFFSET),
		},
		{
			name:   "to a mid-edge point",
			source: da.NewRouterPoint(0, 0, tr.ab, 0),
			target: da.NewRouterPoint(0, 0.00135, tr.bc, da.OffsetFromFraction(0.5)),
		},
	}
	for _, q := range queries {
		t.Run(q.name, func(t *testing.T) {
			chResult, err := chSearch.Run(context.Background(), tr.factors, q.source, q.target)
			require.NoError(t, err)

			plainResult, err := plain.RunPointToPoint(context.Background(), q.source, q.target,
				OriginPoints(tr.network, tr.factors, q.target, true))
			require.NoError(t, err)

			assert.InDelta(t, plainResult.Weight, chResult.Weight, 1e-3)
		})
	}
}

func TestEdgeDijkstraWithoutRestrictions(t *testing.T) {
	tr := buildRestrictedTriangle(t)
	free := NewEdgeDijkstra(tr.network, tr.factors, da.NewRestrictionIndex(nil))

	source := da.NewRouterPoint(0, 0, tr.ab, 0)
	target := da.NewRouterPoint(0, 0.0018, tr.bc, pkg.MAX_OFFSET)

	result, err := free.RunPointToPoint(context.Background(), source, target,
		OriginPoints(tr.network, tr.factors, target, true))
	require.NoError(t, err)
	assert.InDelta(t, 200, result.Weight, 1e-6)
}
