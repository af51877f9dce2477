package datastructure

import (
	"math"

	"github.com/F0rt1s/routing/pkg"
)

// ContractedEdge is one directed adjacency entry of the hierarchy.
// weightFwd is the cost of traversing source->target, weightBwd
// target->source; an impassable direction carries INF_WEIGHT.
// Shortcuts reference the vertex they contract, original edges the edge
// id in the base network.
type ContractedEdge struct {
	target           Index
	weightFwd        float32
	weightBwd        float32
	contractedVertex Index
	originalEdge     Index
}

type ContractedEdgeView struct {
	Target           Index
	WeightForward    float64
	WeightBackward   float64
	ContractedVertex Index
	OriginalEdge     Index
}

func (e ContractedEdgeView) IsShortcut() bool {
	return e.ContractedVertex != INVALID_ID
}

// ContractedGraph is a frozen hierarchy: every node carries a
// contraction level and searches only relax edges toward higher levels.
// For the edge-based variant, nodes are directed original edges (see
// EdgeNode) and turn restrictions are honored by construction.
type ContractedGraph struct {
	numNodes  int
	levels    []int32
	firstEdge []int32
	edges     []ContractedEdge
	edgeBased bool
}

func (g *ContractedGraph) NodeCount() int {
	return g.numNodes
}

func (g *ContractedGraph) Level(v Index) int32 {
	return g.levels[v]
}

func (g *ContractedGraph) IsEdgeBased() bool {
	return g.edgeBased
}

// ForEdgesOf visits the adjacency of v. Return false to stop early.
func (g *ContractedGraph) ForEdgesOf(v Index, fn func(e ContractedEdgeView) bool) {
	for i := g.firstEdge[v]; i < g.firstEdge[v+1]; i++ {
		e := g.edges[i]
		view := ContractedEdgeView{
			Target:           e.target,
			WeightForward:    float64(e.weightFwd),
			WeightBackward:   float64(e.weightBwd),
			ContractedVertex: e.contractedVertex,
			OriginalEdge:     e.originalEdge,
		}
		if !fn(view) {
			return
		}
	}
}

// FindEdge returns the cheapest adjacency entry joining u and v in the
// given direction. Shortcut expansion walks the hierarchy with this.
func (g *ContractedGraph) FindEdge(u, v Index, forward bool) (ContractedEdgeView, bool) {
	best := ContractedEdgeView{}
	bestWeight := math.Inf(1)
	found := false
	g.ForEdgesOf(u, func(e ContractedEdgeView) bool {
		if e.Target != v {
			return true
		}
		w := e.WeightForward
		if !forward {
			w = e.WeightBackward
		}
		if w < bestWeight {
			best = e
			bestWeight = w
			found = true
		}
		return true
	})
	if bestWeight >= pkg.INF_WEIGHT {
		return ContractedEdgeView{}, false
	}
	return best, found
}

// EdgeNode maps a directed original edge onto a hierarchy node id for
// the edge-based variant.
func EdgeNode(edge Index, forward bool) Index {
	if forward {
		return edge * 2
	}
	return edge*2 + 1
}

// DecodeEdgeNode is the inverse of EdgeNode.
func DecodeEdgeNode(node Index) (Index, bool) {
	return node / 2, node%2 == 0
}

// ContractedGraphBuilder accumulates hierarchy nodes and edges; Build
// freezes them into the CSR form the kernels read.
type ContractedGraphBuilder struct {
	numNodes  int
	levels    []int32
	adj       [][]ContractedEdge
	edgeBased bool
}

func NewContractedGraphBuilder(numNodes int, edgeBased bool) *ContractedGraphBuilder {
	return &ContractedGraphBuilder{
		numNodes:  numNodes,
		levels:    make([]int32, numNodes),
		adj:       make([][]ContractedEdge, numNodes),
		edgeBased: edgeBased,
	}
}

func (b *ContractedGraphBuilder) SetLevel(v Index, level int32) {
	b.levels[v] = level
}

// AddEdge registers an edge of the hierarchy. weightFwd is the from->to
// cost, weightBwd the to->from cost; pass INF_WEIGHT for a forbidden
// direction. contractedVertex is INVALID_ID for original edges,
// originalEdge is INVALID_ID for shortcuts.
func (b *ContractedGraphBuilder) AddEdge(from, to Index, weightFwd, weightBwd float64,
	contractedVertex Index, originalEdge Index) {
	b.adj[from] = append(b.adj[from], ContractedEdge{
		target:           to,
		weightFwd:        float32(weightFwd),
		weightBwd:        float32(weightBwd),
		contractedVertex: contractedVertex,
		originalEdge:     originalEdge,
	})
	if from != to {
		b.adj[to] = append(b.adj[to], ContractedEdge{
			target:           from,
			weightFwd:        float32(weightBwd),
			weightBwd:        float32(weightFwd),
			contractedVertex: contractedVertex,
			originalEdge:     originalEdge,
		})
	}
}

func (b *ContractedGraphBuilder) Build() *ContractedGraph {
	firstEdge := make([]int32, b.numNodes+1)
	total := 0
	for i, list := range b.adj {
		firstEdge[i] = int32(total)
		total += len(list)
	}
	firstEdge[b.numNodes] = int32(total)

	edges := make([]ContractedEdge, 0, total)
	for _, list := range b.adj {
		edges = append(edges, list...)
	}

	return &ContractedGraph{
		numNodes:  b.numNodes,
		levels:    b.levels,
		firstEdge: firstEdge,
		edges:     edges,
		edgeBased: b.edgeBased,
	}
}
