package routing

import (
	"context"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
)

// SearchResult is the outcome of a point-to-point kernel: the total
// weight and the vertex path between the source-side and target-side
// origin vertices.
type SearchResult struct {
	Weight float64
	Path   []da.Index
}

// frontier is one half of a bidirectional search.
type frontier struct {
	dist  map[da.Index]float64
	pred  map[da.Index]da.Index
	done  map[da.Index]struct{}
	nodes map[da.Index]*da.PriorityQueueNode[da.Index]
	pq    *da.MinHeap[da.Index]
}

func newFrontier(origins []OriginPoint) *frontier {
	f := &frontier{
		dist:  make(map[da.Index]float64),
		pred:  make(map[da.Index]da.Index),
		done:  make(map[da.Index]struct{}),
		nodes: make(map[da.Index]*da.PriorityQueueNode[da.Index]),
		pq:    da.NewFourAryHeap[da.Index](),
	}
	for _, o := range origins {
		f.update(o.vertex, o.weight, da.INVALID_ID)
	}
	return f
}

func (f *frontier) update(v da.Index, weight float64, pred da.Index) {
	if cur, ok := f.dist[v]; ok && da.Le(cur, weight) {
		return
	}
	f.dist[v] = weight
	f.pred[v] = pred
	if n, ok := f.nodes[v]; ok {
		f.pq.DecreaseKey(n, weight)
		return
	}
	n := da.NewPriorityQueueNode(weight, v)
	f.nodes[v] = n
	f.pq.Insert(n)
}

// chain walks predecessors from v back to the origin, origin first.
func (f *frontier) chain(v da.Index) []da.Index {
	out := make([]da.Index, 0, 16)
	for v != da.INVALID_ID {
		out = append(out, v)
		v = f.pred[v]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// BidirectionalDijkstra runs a forward search from the source and a
// backward search from the target over the uncontracted network,
// alternating by the smaller frontier top.
type BidirectionalDijkstra struct {
	network   *da.Network
	factors   []profiles.Factor
	maxWeight float64
}

func NewBidirectionalDijkstra(network *da.Network, factors []profiles.Factor) *BidirectionalDijkstra {
	return &BidirectionalDijkstra{
		network:   network,
		factors:   factors,
		maxWeight: pkg.INF_WEIGHT,
	}
}

func (b *BidirectionalDijkstra) SetMaxWeight(w float64) {
	b.maxWeight = w
}

func (b *BidirectionalDijkstra) Run(ctx context.Context,
	sourceOrigins, targetOrigins []OriginPoint) (SearchResult, error) {
	fwd := newFrontier(sourceOrigins)
	bwd := newFrontier(targetOrigins)

	best := 2 * pkg.INF_WEIGHT
	meet := da.INVALID_ID

	for fwd.pq.GetMinrank()+bwd.pq.GetMinrank() < best {
		if util.StopConcurrentOperation(ctx) {
			return SearchResult{}, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "route query cancelled")
		}

		cur, other := fwd, bwd
		backward := false
		if bwd.pq.GetMinrank() < fwd.pq.GetMinrank() {
			cur, other = bwd, fwd
			backward = true
		}

		node, err := cur.pq.ExtractMin()
		if err != nil {
			break
		}
		u := node.GetItem()
		uWeight := node.GetRank()
		delete(cur.nodes, u)
		if _, ok := cur.done[u]; ok {
			continue
		}
		if uWeight > b.maxWeight {
			continue
		}
		cur.done[u] = struct{}{}

		if otherWeight, ok := other.dist[u]; ok {
			if cand := uWeight + otherWeight; da.Lt(cand, best) {
				best = cand
				meet = u
			}
		}

		b.network.ForAdjacentEdges(u, func(e da.EdgeView) bool {
			f := b.factors[e.ProfileID]
			if !canTraverse(f, e, backward) {
				return true
			}
			newWeight := uWeight + EdgeWeight(e, f)
			if newWeight > b.maxWeight {
				return true
			}
			cur.update(e.To, newWeight, u)
			return true
		})
	}

	if meet == da.INVALID_ID || best >= pkg.INF_WEIGHT {
		return SearchResult{}, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"no route found between the given points")
	}

	forwardChain := fwd.chain(meet)
	backwardChain := bwd.chain(meet)
	// backward chain is target-origin..meet; append it reversed, meet
	// excluded
	path := forwardChain
	for i := len(backwardChain) - 2; i >= 0; i-- {
		path = append(path, backwardChain[i])
	}
	return SearchResult{Weight: best, Path: path}, nil
}
