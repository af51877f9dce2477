package routing

import (
	"context"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
)

// edgeLabel is one search state of the restriction-aware kernel: a
// directed edge plus the trailing vertex window needed to test every
// restriction that could still apply.
type edgeLabel struct {
	dirEdge da.DirectedEdgeID
	vertex  da.Index
	weight  float64
	pred    int32
	trail   []da.Index
}

type edgeSearchSpace struct {
	labels      []edgeLabel
	vertexLabel map[da.Index]int32
}

func (s *edgeSearchSpace) HasSettled(v da.Index) (float64, bool) {
	idx, ok := s.vertexLabel[v]
	if !ok {
		return 0, false
	}
	return s.labels[idx].weight, true
}

// PathTo drops the edge-state wrapper and returns the vertex sequence
// origin..v.
func (s *edgeSearchSpace) PathTo(v da.Index) []da.Index {
	idx, ok := s.vertexLabel[v]
	if !ok {
		return nil
	}
	path := make([]da.Index, 0, 16)
	for idx >= 0 {
		path = append(path, s.labels[idx].vertex)
		idx = s.labels[idx].pred
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// EdgeDijkstra is the edge-expanded forward kernel that honors turn
// restrictions during relaxation.
type EdgeDijkstra struct {
	network      *da.Network
	factors      []profiles.Factor
	restrictions *da.RestrictionIndex
	maxWeight    float64
}

func NewEdgeDijkstra(network *da.Network, factors []profiles.Factor,
	restrictions *da.RestrictionIndex) *EdgeDijkstra {
	return &EdgeDijkstra{
		network:      network,
		factors:      factors,
		restrictions: restrictions,
		maxWeight:    pkg.INF_WEIGHT,
	}
}

func (d *EdgeDijkstra) SetMaxWeight(w float64) {
	d.maxWeight = w
}

// window is the trailing-buffer size: the longest restriction minus
// one, with the current vertex always kept.
func (d *EdgeDijkstra) window() int {
	w := d.restrictions.MaxLength() - 1
	if w < 1 {
		w = 1
	}
	return w
}

// forbidden reports whether the trail (already extended with the
// candidate vertex) matches any restriction contiguously at its end.
func (d *EdgeDijkstra) forbidden(trail []da.Index) bool {
	for l := 2; l <= len(trail); l++ {
		first := trail[len(trail)-l]
		for _, r := range d.restrictions.FromVertex(first) {
			if len(r) != l {
				continue
			}
			if da.MatchesSuffix(trail, r) {
				return true
			}
		}
	}
	return false
}

func capTrail(trail []da.Index, window int) []da.Index {
	if len(trail) <= window {
		return trail
	}
	return trail[len(trail)-window:]
}

// Run searches forward from the resolved source point until every
// vertex of stopAt (when non-nil) has been seen or the queue drains.
func (d *EdgeDijkstra) Run(ctx context.Context, source da.RouterPoint,
	stopAt map[da.Index]struct{}) (*edgeSearchSpace, error) {
	space := &edgeSearchSpace{
		labels:      make([]edgeLabel, 0, 64),
		vertexLabel: make(map[da.Index]int32),
	}
	settled := make(map[da.DirectedEdgeID]struct{})
	dist := make(map[da.DirectedEdgeID]float64)
	window := d.window()

	pq := da.NewFourAryHeap[int32]()
	push := func(l edgeLabel) {
		if cur, ok := dist[l.dirEdge]; ok && da.Le(cur, l.weight) {
			return
		}
		dist[l.dirEdge] = l.weight
		space.labels = append(space.labels, l)
		pq.Insert(da.NewPriorityQueueNode(l.weight, int32(len(space.labels)-1)))
	}

	e := d.network.GetEdge(source.EdgeID())
	f := d.factors[e.ProfileID]
	if f.IsTraversable() {
		w := EdgeWeight(e, f)
		frac := source.OffsetFraction()
		if f.Direction.AllowsForward() {
			// a point sitting exactly on the tail vertex traverses the
			// whole edge, so the tail belongs in the trail
			trail := []da.Index{e.To}
			if da.Eq(frac, 0) {
				trail = []da.Index{e.From, e.To}
			}
			push(edgeLabel{
				dirEdge: da.NewDirectedEdgeID(e.ID, true),
				vertex:  e.To,
				weight:  (1 - frac) * w,
				pred:    -1,
				trail:   capTrail(trail, window),
			})
		}
		if f.Direction.AllowsBackward() {
			trail := []da.Index{e.From}
			if da.Eq(frac, 1) {
				trail = []da.Index{e.To, e.From}
			}
			push(edgeLabel{
				dirEdge: da.NewDirectedEdgeID(e.ID, false),
				vertex:  e.From,
				weight:  frac * w,
				pred:    -1,
				trail:   capTrail(trail, window),
			})
		}
	}

	remaining := len(stopAt)
	for !pq.IsEmpty() {
		if util.StopConcurrentOperation(ctx) {
			return nil, util.WrapErrorf(ctx.Err(), util.ErrCancelled, "route query cancelled")
		}
		node, _ := pq.ExtractMin()
		idx := node.GetItem()
		label := space.labels[idx]
		if _, ok := settled[label.dirEdge]; ok {
			continue
		}
		if label.weight > d.maxWeight {
			break
		}
		settled[label.dirEdge] = struct{}{}

		u := label.vertex
		if _, ok := space.vertexLabel[u]; !ok {
			space.vertexLabel[u] = idx
			if stopAt != nil {
				if _, ok := stopAt[u]; ok {
					remaining--
					if remaining == 0 {
						break
					}
				}
			}
		}

		d.network.ForAdjacentEdges(u, func(e da.EdgeView) bool {
			f := d.factors[e.ProfileID]
			if !canTraverse(f, e, false) {
				return true
			}
			v := e.To
			next := append(append(make([]da.Index, 0, len(label.trail)+1), label.trail...), v)
			if d.forbidden(next) {
				return true
			}
			newWeight := label.weight + EdgeWeight(e, f)
			if newWeight > d.maxWeight {
				return true
			}
			push(edgeLabel{
				dirEdge: e.IdDirected(),
				vertex:  v,
				weight:  newWeight,
				pred:    idx,
				trail:   capTrail(next, window),
			})
			return true
		})
	}
	return space, nil
}

// allowsFinalEntry checks the turn onto the target edge: entering the
// edge at o.vertex counts like heading for its far endpoint, matching
// the edge-expanded encoding of restrictions.
func (d *EdgeDijkstra) allowsFinalEntry(space *edgeSearchSpace, targetEdge da.EdgeView,
	o OriginPoint) bool {
	if da.Eq(o.weight, 0) {
		// the point sits on the arrival vertex, the edge is not entered
		return true
	}
	far := targetEdge.To
	if o.vertex == targetEdge.To {
		far = targetEdge.From
	}
	label := space.labels[space.vertexLabel[o.vertex]]
	next := append(append(make([]da.Index, 0, len(label.trail)+1), label.trail...), far)
	return !d.forbidden(next)
}

// RunPointToPoint wraps the forward kernel for a single-pair query: it
// searches until both endpoints of the target edge are covered and
// combines the target-side partial weights.
func (d *EdgeDijkstra) RunPointToPoint(ctx context.Context,
	source, target da.RouterPoint, targetOrigins []OriginPoint) (SearchResult, error) {
	stopAt := make(map[da.Index]struct{}, len(targetOrigins))
	for _, o := range targetOrigins {
		stopAt[o.vertex] = struct{}{}
	}

	space, err := d.Run(ctx, source, stopAt)
	if err != nil {
		return SearchResult{}, err
	}

	targetEdge := d.network.GetEdge(target.EdgeID())
	best := 2 * pkg.INF_WEIGHT
	bestVertex := da.INVALID_ID
	for _, o := range targetOrigins {
		w, ok := space.HasSettled(o.vertex)
		if !ok {
			continue
		}
		if !d.allowsFinalEntry(space, targetEdge, o) {
			continue
		}
		if cand := w + o.weight; da.Lt(cand, best) {
			best = cand
			bestVertex = o.vertex
		}
	}
	if bestVertex == da.INVALID_ID {
		return SearchResult{}, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"no restriction-honoring route found between the given points")
	}
	return SearchResult{Weight: best, Path: space.PathTo(bestVertex)}, nil
}
