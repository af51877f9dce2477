package routing

import (
	"context"
	"math"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
)

// Dijkstra is the plain one-directional kernel. The backward variant
// traverses the network with edge directions logically reversed.
type Dijkstra struct {
	network    *da.Network
	factors    []profiles.Factor
	backward   bool
	maxWeight  float64
	maxSettled int
}

func NewDijkstra(network *da.Network, factors []profiles.Factor, backward bool) *Dijkstra {
	return &Dijkstra{
		network:    network,
		factors:    factors,
		backward:   backward,
		maxWeight:  pkg.INF_WEIGHT,
		maxSettled: math.MaxInt,
	}
}

func (d *Dijkstra) SetMaxWeight(w float64) {
	d.maxWeight = w
}

func (d *Dijkstra) SetMaxSettled(n int) {
	d.maxSettled = n
}

// Run settles vertices from the given origins until the queue drains,
// a budget is exhausted, or every vertex of stopAt (when non-nil) has
// been settled.
func (d *Dijkstra) Run(ctx context.Context, origins []OriginPoint,
	stopAt map[da.Index]struct{}) (*searchSpace, error) {
	space := newSearchSpace()
	dist := make(map[da.Index]float64)
	pred := make(map[da.Index]int32)
	via := make(map[da.Index]da.Index)
	nodes := make(map[da.Index]*da.PriorityQueueNode[da.Index])

	pq := da.NewFourAryHeap[da.Index]()
	for _, o := range origins {
		if cur, ok := dist[o.vertex]; ok && da.Le(cur, o.weight) {
			continue
		}
		dist[o.vertex] = o.weight
		pred[o.vertex] = -1
		via[o.vertex] = o.edge
		if n, ok := nodes[o.vertex]; ok {
			pq.DecreaseKey(n, o.weight)
			continue
		}
		n := da.NewPriorityQueueNode(o.weight, o.vertex)
		nodes[o.vertex] = n
		pq.Insert(n)
	}

	remaining := len(stopAt)
	for !pq.IsEmpty() {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "route query cancelled")
		}
		node, _ := pq.ExtractMin()
		u := node.GetItem()
		uWeight := node.GetRank()
		delete(nodes, u)

		if _, ok := space.settled[u]; ok {
			continue
		}
		if uWeight > d.maxWeight {
			break
		}
		idx := space.settle(u, uWeight, pred[u], via[u])
		if space.SettledCount() > d.maxSettled {
			break
		}
		if stopAt != nil {
			if _, ok := stopAt[u]; ok {
				remaining--
				if remaining == 0 {
					break
				}
			}
		}

		d.network.ForAdjacentEdges(u, func(e da.EdgeView) bool {
			f := d.factors[e.ProfileID]
			if !canTraverse(f, e, d.backward) {
				return true
			}
			v := e.To
			newWeight := uWeight + EdgeWeight(e, f)
			if newWeight > d.maxWeight {
				return true
			}
			if cur, ok := dist[v]; ok && da.Le(cur, newWeight) {
				return true
			}
			dist[v] = newWeight
			pred[v] = idx
			via[v] = e.ID
			if n, ok := nodes[v]; ok {
				pq.DecreaseKey(n, newWeight)
			} else {
				n := da.NewPriorityQueueNode(newWeight, v)
				nodes[v] = n
				pq.Insert(n)
			}
			return true
		})
	}
	return space, nil
}

// ReachedWeight reports whether the search frontier crosses the given
// weight radius: the component around the origins extends at least that
// far. The search stops at the first vertex at or beyond the radius.
func (d *Dijkstra) ReachedWeight(ctx context.Context, origins []OriginPoint,
	radius float64) (bool, error) {
	dist := make(map[da.Index]float64)
	done := make(map[da.Index]struct{})
	nodes := make(map[da.Index]*da.PriorityQueueNode[da.Index])
	pq := da.NewFourAryHeap[da.Index]()

	push := func(v da.Index, weight float64) {
		if cur, ok := dist[v]; ok && da.Le(cur, weight) {
			return
		}
		dist[v] = weight
		if n, ok := nodes[v]; ok {
			pq.DecreaseKey(n, weight)
			return
		}
		n := da.NewPriorityQueueNode(weight, v)
		nodes[v] = n
		pq.Insert(n)
	}
	for _, o := range origins {
		push(o.vertex, o.weight)
	}

	for !pq.IsEmpty() {
		if util.StopConcurrentOperation(ctx) {
			return false, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "connectivity check cancelled")
		}
		node, _ := pq.ExtractMin()
		u := node.GetItem()
		uWeight := node.GetRank()
		delete(nodes, u)
		if _, ok := done[u]; ok {
			continue
		}
		done[u] = struct{}{}
		if da.Ge(uWeight, radius) {
			return true, nil
		}

		d.network.ForAdjacentEdges(u, func(e da.EdgeView) bool {
			f := d.factors[e.ProfileID]
			if !canTraverse(f, e, d.backward) {
				return true
			}
			push(e.To, uWeight+EdgeWeight(e, f))
			return true
		})
	}
	return false, nil
}
