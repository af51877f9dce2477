package routing

import (
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
)

// OriginPoint roots a search at one endpoint of a resolved edge, with
// the partial weight from the router point to that endpoint. This is
// how a search starts "inside" an edge at a fractional offset.
type OriginPoint struct {
	vertex da.Index
	weight float64
	edge   da.Index
}

func (o OriginPoint) Vertex() da.Index {
	return o.vertex
}

func (o OriginPoint) Weight() float64 {
	return o.weight
}

// EdgeWeight is the traversal cost of an edge under a factor.
func EdgeWeight(e da.EdgeView, f profiles.Factor) float64 {
	return e.Distance * f.Value
}

// canTraverse reports whether the oriented edge view may be traversed.
// For a backward search the real travel direction is the reverse of the
// view orientation.
func canTraverse(f profiles.Factor, e da.EdgeView, backwardSearch bool) bool {
	if !f.IsTraversable() {
		return false
	}
	alongStorage := !e.DataInverted
	if backwardSearch {
		alongStorage = !alongStorage
	}
	if alongStorage {
		return f.Direction.AllowsForward()
	}
	return f.Direction.AllowsBackward()
}

// OriginPoints derives the search roots for a router point. For a
// source the roots are the endpoints the trip can leave through; for a
// target (backward search) the endpoints the trip can arrive from.
func OriginPoints(network *da.Network, factors []profiles.Factor, rp da.RouterPoint,
	target bool) []OriginPoint {
	e := network.GetEdge(rp.EdgeID())
	f := factors[e.ProfileID]
	if !f.IsTraversable() {
		return nil
	}
	w := EdgeWeight(e, f)
	frac := rp.OffsetFraction()

	points := make([]OriginPoint, 0, 2)
	if !target {
		// leave towards `to` = travel forward along storage
		if f.Direction.AllowsForward() {
			points = append(points, OriginPoint{vertex: e.To, weight: (1 - frac) * w, edge: e.ID})
		}
		// leave towards `from` = travel backward
		if f.Direction.AllowsBackward() {
			points = append(points, OriginPoint{vertex: e.From, weight: frac * w, edge: e.ID})
		}
		return points
	}
	// arrive from `from` = travel forward along storage
	if f.Direction.AllowsForward() {
		points = append(points, OriginPoint{vertex: e.From, weight: frac * w, edge: e.ID})
	}
	// arrive from `to` = travel backward
	if f.Direction.AllowsBackward() {
		points = append(points, OriginPoint{vertex: e.To, weight: (1 - frac) * w, edge: e.ID})
	}
	return points
}

// visit is one settled record of a search. Records live in a flat
// arena; predecessors are arena indices, so reconstruction is pointer
// free.
type visit struct {
	vertex da.Index
	weight float64
	pred   int32
	edge   da.Index
}

type searchSpace struct {
	visits  []visit
	settled map[da.Index]int32
}

func newSearchSpace() *searchSpace {
	return &searchSpace{
		visits:  make([]visit, 0, 64),
		settled: make(map[da.Index]int32),
	}
}

func (s *searchSpace) settle(v da.Index, weight float64, pred int32, edge da.Index) int32 {
	s.visits = append(s.visits, visit{vertex: v, weight: weight, pred: pred, edge: edge})
	idx := int32(len(s.visits) - 1)
	s.settled[v] = idx
	return idx
}

// HasSettled returns the final shortest weight of a vertex.
func (s *searchSpace) HasSettled(v da.Index) (float64, bool) {
	idx, ok := s.settled[v]
	if !ok {
		return 0, false
	}
	return s.visits[idx].weight, true
}

func (s *searchSpace) SettledCount() int {
	return len(s.visits)
}

// PathTo walks the predecessor chain and returns the vertex sequence
// origin..v.
func (s *searchSpace) PathTo(v da.Index) []da.Index {
	idx, ok := s.settled[v]
	if !ok {
		return nil
	}
	path := make([]da.Index, 0, 16)
	for idx >= 0 {
		path = append(path, s.visits[idx].vertex)
		idx = s.visits[idx].pred
	}
	// collected target-first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
