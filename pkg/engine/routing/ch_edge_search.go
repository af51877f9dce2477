package routing

import (
	"context"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
)

// CHEdgeBidirectionalSearch runs the contracted kernel over the
// edge-expanded hierarchy, where every node is a directed original edge
// and forbidden turns are absent by construction.
//
// A forward label on node d is the cost from the source to the head
// vertex of d with d fully traversed; a backward label is the cost from
// the head of d to the target with d excluded. The sum at a meeting
// node is therefore the exact path weight.
type CHEdgeBidirectionalSearch struct {
	network   *da.Network
	ch        *da.ContractedGraph
	maxWeight float64
}

func NewCHEdgeBidirectionalSearch(network *da.Network, ch *da.ContractedGraph) *CHEdgeBidirectionalSearch {
	return &CHEdgeBidirectionalSearch{
		network:   network,
		ch:        ch,
		maxWeight: pkg.INF_WEIGHT,
	}
}

func (s *CHEdgeBidirectionalSearch) SetMaxWeight(w float64) {
	s.maxWeight = w
}

// sourceNodes seeds the forward search with the directed traversals of
// the resolved source edge.
func (s *CHEdgeBidirectionalSearch) sourceNodes(factors []profiles.Factor,
	rp da.RouterPoint) []OriginPoint {
	e := s.network.GetEdge(rp.EdgeID())
	f := factors[e.ProfileID]
	if !f.IsTraversable() {
		return nil
	}
	w := EdgeWeight(e, f)
	frac := rp.OffsetFraction()
	points := make([]OriginPoint, 0, 2)
	if f.Direction.AllowsForward() {
		points = append(points, OriginPoint{
			vertex: da.EdgeNode(e.ID, true),
			weight: (1 - frac) * w,
		})
	}
	if f.Direction.AllowsBackward() {
		points = append(points, OriginPoint{
			vertex: da.EdgeNode(e.ID, false),
			weight: frac * w,
		})
	}
	return points
}

// targetNodes seeds the backward search with every directed edge that
// may immediately precede the partial traversal of the target edge.
// Only predecessors with a surviving transition in the hierarchy are
// seeded, so restrictions on the final turn are honored.
func (s *CHEdgeBidirectionalSearch) targetNodes(factors []profiles.Factor,
	rp da.RouterPoint) []OriginPoint {
	e := s.network.GetEdge(rp.EdgeID())
	f := factors[e.ProfileID]
	if !f.IsTraversable() {
		return nil
	}
	w := EdgeWeight(e, f)
	frac := rp.OffsetFraction()

	points := make([]OriginPoint, 0, 4)
	seed := func(arriveAt da.Index, entry da.Index, partial float64) {
		s.network.ForAdjacentEdges(arriveAt, func(adj da.EdgeView) bool {
			// the reverse of an edge leaving arriveAt ends there
			rev := adj.Reverse()
			af := factors[adj.ProfileID]
			if !canTraverse(af, rev, false) {
				return true
			}
			pred := da.EdgeNode(rev.ID, !rev.DataInverted)
			if _, ok := s.ch.FindEdge(pred, entry, true); !ok {
				return true
			}
			points = append(points, OriginPoint{vertex: pred, weight: partial})
			return true
		})
	}
	if f.Direction.AllowsForward() {
		seed(e.From, da.EdgeNode(e.ID, true), frac*w)
	}
	if f.Direction.AllowsBackward() {
		seed(e.To, da.EdgeNode(e.ID, false), (1-frac)*w)
	}
	return points
}

func (s *CHEdgeBidirectionalSearch) Run(ctx context.Context, factors []profiles.Factor,
	source, target da.RouterPoint) (SearchResult, error) {
	fwd := newCHFrontier(s.ch, false, s.sourceNodes(factors, source))
	bwd := newCHFrontier(s.ch, true, s.targetNodes(factors, target))

	best := 2 * pkg.INF_WEIGHT
	meet := da.INVALID_ID

	for fwd.pq.GetMinrank() < best || bwd.pq.GetMinrank() < best {
		if util.StopConcurrentOperation(ctx) {
			return SearchResult{}, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "route query cancelled")
		}
		cur, other := fwd, bwd
		if bwd.pq.GetMinrank() < fwd.pq.GetMinrank() {
			cur, other = bwd, fwd
		}
		if cur.pq.GetMinrank() >= best {
			cur, other = other, cur
		}

		u, uWeight := cur.settleNext(s.maxWeight)
		if u == da.INVALID_ID {
			continue
		}
		if otherWeight, ok := other.dist[u]; ok {
			if cand := uWeight + otherWeight; da.Lt(cand, best) {
				best = cand
				meet = u
			}
		}
	}

	if meet == da.INVALID_ID || best >= pkg.INF_WEIGHT {
		return SearchResult{}, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"no route found in the edge-expanded contracted graph")
	}

	return SearchResult{Weight: best, Path: s.unpack(fwd, bwd, meet)}, nil
}

// unpack rebuilds the directed-edge node sequence around the meeting
// node, expands edge-shortcuts, and recovers vertex ids from edge
// endpoints.
func (s *CHEdgeBidirectionalSearch) unpack(fwd, bwd *chFrontier, meet da.Index) []da.Index {
	hops := make([]da.Index, 0, 16)
	for v := meet; v != da.INVALID_ID; v = fwd.pred[v] {
		hops = append(hops, v)
	}
	nodeSeq := make([]da.Index, 0, 32)
	nodeSeq = append(nodeSeq, hops[len(hops)-1])
	for i := len(hops) - 2; i >= 0; i-- {
		v := hops[i]
		expandHop(s.ch, fwd.pred[v], v, fwd.via[v], &nodeSeq)
	}
	for v := meet; bwd.pred[v] != da.INVALID_ID; v = bwd.pred[v] {
		expandHop(s.ch, v, bwd.pred[v], bwd.via[v], &nodeSeq)
	}

	// node sequence -> vertex path: the head of every directed edge in
	// travel order. The first node is the partially traversed source
	// edge, so its tail vertex is never visited.
	path := make([]da.Index, 0, len(nodeSeq))
	for _, node := range nodeSeq {
		edge, forward := da.DecodeEdgeNode(node)
		e := s.network.GetEdge(edge)
		if !forward {
			e = e.Reverse()
		}
		path = append(path, e.To)
	}
	return path
}
