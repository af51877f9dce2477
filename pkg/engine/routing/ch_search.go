package routing

import (
	"context"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/util"
)

// chFrontier is one half of a contracted bidirectional search. Only
// edges leading to strictly higher contraction levels are relaxed.
type chFrontier struct {
	ch       *da.ContractedGraph
	backward bool

	dist  map[da.Index]float64
	pred  map[da.Index]da.Index
	via   map[da.Index]da.ContractedEdgeView
	done  map[da.Index]struct{}
	nodes map[da.Index]*da.PriorityQueueNode[da.Index]
	pq    *da.MinHeap[da.Index]
}

func newCHFrontier(ch *da.ContractedGraph, backward bool, origins []OriginPoint) *chFrontier {
	f := &chFrontier{
		ch:       ch,
		backward: backward,
		dist:     make(map[da.Index]float64),
		pred:     make(map[da.Index]da.Index),
		via:      make(map[da.Index]da.ContractedEdgeView),
		done:     make(map[da.Index]struct{}),
		nodes:    make(map[da.Index]*da.PriorityQueueNode[da.Index]),
		pq:       da.NewFourAryHeap[da.Index](),
	}
	for _, o := range origins {
		f.update(o.vertex, o.weight, da.INVALID_ID, da.ContractedEdgeView{})
	}
	return f
}

func (f *chFrontier) update(v da.Index, weight float64, pred da.Index, via da.ContractedEdgeView) {
	if cur, ok := f.dist[v]; ok && da.Le(cur, weight) {
		return
	}
	f.dist[v] = weight
	f.pred[v] = pred
	f.via[v] = via
	if n, ok := f.nodes[v]; ok {
		f.pq.DecreaseKey(n, weight)
		return
	}
	n := da.NewPriorityQueueNode(weight, v)
	f.nodes[v] = n
	f.pq.Insert(n)
}

// settleNext pops and settles one vertex, relaxing its upward edges.
// Returns the settled vertex or INVALID_ID when the pop was stale.
func (f *chFrontier) settleNext(maxWeight float64) (da.Index, float64) {
	node, err := f.pq.ExtractMin()
	if err != nil {
		return da.INVALID_ID, 0
	}
	u := node.GetItem()
	uWeight := node.GetRank()
	delete(f.nodes, u)
	if _, ok := f.done[u]; ok {
		return da.INVALID_ID, 0
	}
	if uWeight > maxWeight {
		return da.INVALID_ID, 0
	}
	f.done[u] = struct{}{}

	uLevel := f.ch.Level(u)
	f.ch.ForEdgesOf(u, func(e da.ContractedEdgeView) bool {
		if f.ch.Level(e.Target) <= uLevel {
			return true
		}
		w := e.WeightForward
		if f.backward {
			w = e.WeightBackward
		}
		if w >= pkg.INF_WEIGHT {
			return true
		}
		newWeight := uWeight + w
		if newWeight > maxWeight {
			return true
		}
		f.update(e.Target, newWeight, u, e)
		return true
	})
	return u, uWeight
}

// expandHop replaces a hierarchy edge with the original-edge vertex
// sequence it summarizes, appending every vertex after `from`. An
// explicit stack avoids deep recursion on large hierarchies.
func expandHop(ch *da.ContractedGraph, from, to da.Index, e da.ContractedEdgeView, out *[]da.Index) {
	type frame struct {
		from, to da.Index
		e        da.ContractedEdgeView
	}
	stack := []frame{{from: from, to: to, e: e}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fr.e.IsShortcut() {
			*out = append(*out, fr.to)
			continue
		}
		c := fr.e.ContractedVertex
		lower, _ := ch.FindEdge(fr.from, c, true)
		upper, _ := ch.FindEdge(c, fr.to, true)
		stack = append(stack, frame{from: c, to: fr.to, e: upper})
		stack = append(stack, frame{from: fr.from, to: c, e: lower})
	}
}

// CHBidirectionalSearch is the node-based contracted kernel: two upward
// searches whose best meeting vertex yields the shortest path after
// shortcut expansion.
type CHBidirectionalSearch struct {
	ch        *da.ContractedGraph
	maxWeight float64
}

func NewCHBidirectionalSearch(ch *da.ContractedGraph) *CHBidirectionalSearch {
	return &CHBidirectionalSearch{
		ch:        ch,
		maxWeight: pkg.INF_WEIGHT,
	}
}

func (s *CHBidirectionalSearch) SetMaxWeight(w float64) {
	s.maxWeight = w
}

func (s *CHBidirectionalSearch) Run(ctx context.Context,
	sourceOrigins, targetOrigins []OriginPoint) (SearchResult, error) {
	fwd := newCHFrontier(s.ch, false, sourceOrigins)
	bwd := newCHFrontier(s.ch, true, targetOrigins)

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
			"no route found in the contracted graph")
	}

	path := s.unpack(fwd, bwd, meet)
	return SearchResult{Weight: best, Path: path}, nil
}

// unpack concatenates the two predecessor chains around the meeting
// vertex and expands every shortcut into original edges.
func (s *CHBidirectionalSearch) unpack(fwd, bwd *chFrontier, meet da.Index) []da.Index {
	// forward hops origin..meet
	hops := make([]da.Index, 0, 16)
	for v := meet; v != da.INVALID_ID; v = fwd.pred[v] {
		hops = append(hops, v)
	}
	path := make([]da.Index, 0, 32)
	path = append(path, hops[len(hops)-1])
	for i := len(hops) - 2; i >= 0; i-- {
		v := hops[i]
		expandHop(s.ch, fwd.pred[v], v, fwd.via[v], &path)
	}
	// backward hops meet..target origin, travel order v -> pred
	for v := meet; bwd.pred[v] != da.INVALID_ID; v = bwd.pred[v] {
		expandHop(s.ch, v, bwd.pred[v], bwd.via[v], &path)
	}
	return path
}

// SettleAll exhausts one upward search and returns the distances of
// every settled vertex. The many-to-many engine intersects these
// middle sets.
func (s *CHBidirectionalSearch) SettleAll(ctx context.Context, origins []OriginPoint,
	backward bool) (map[da.Index]float64, error) {
	f := newCHFrontier(s.ch, backward, origins)
	out := make(map[da.Index]float64)
	for !f.pq.IsEmpty() {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "matrix query cancelled")
		}
		u, uWeight := f.settleNext(s.maxWeight)
		if u == da.INVALID_ID {
			continue
		}
		out[u] = uWeight
	}
	return out, nil
}
