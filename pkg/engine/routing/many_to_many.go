package routing

import (
	"context"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/profiles"
	"golang.org/x/sync/errgroup"
)

// infRow allocates a matrix row initialized to unreachable.
func infRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = pkg.INF_WEIGHT
	}
	return row
}

// WeightsPlain computes the NxM weight matrix with one forward Dijkstra
// per source, stopping each search once every target endpoint settled.
func WeightsPlain(ctx context.Context, network *da.Network, factors []profiles.Factor,
	sources, targets []da.RouterPoint, maxWeight float64) ([][]float64, error) {
	targetOrigins := make([][]OriginPoint, len(targets))
	stopAt := make(map[da.Index]struct{})
	for j, t := range targets {
		targetOrigins[j] = OriginPoints(network, factors, t, true)
		for _, o := range targetOrigins[j] {
			stopAt[o.vertex] = struct{}{}
		}
	}

	weights := make([][]float64, len(sources))
	for i, s := range sources {
		weights[i] = infRow(len(targets))

		d := NewDijkstra(network, factors, false)
		d.SetMaxWeight(maxWeight)
		space, err := d.Run(ctx, OriginPoints(network, factors, s, false), stopAt)
		if err != nil {
			return nil, err
		}
		for j := range targets {
			for _, o := range targetOrigins[j] {
				w, ok := space.HasSettled(o.vertex)
				if !ok {
					continue
				}
				if cand := w + o.weight; da.Lt(cand, weights[i][j]) {
					weights[i][j] = cand
				}
			}
		}
	}
	return weights, nil
}

// WeightsEdgePlain mirrors WeightsPlain with the restriction-aware
// kernel.
func WeightsEdgePlain(ctx context.Context, network *da.Network, factors []profiles.Factor,
	restrictions *da.RestrictionIndex, sources, targets []da.RouterPoint,
	maxWeight float64) ([][]float64, error) {
	targetOrigins := make([][]OriginPoint, len(targets))
	stopAt := make(map[da.Index]struct{})
	for j, t := range targets {
		targetOrigins[j] = OriginPoints(network, factors, t, true)
		for _, o := range targetOrigins[j] {
			stopAt[o.vertex] = struct{}{}
		}
	}

	weights := make([][]float64, len(sources))
	for i, s := range sources {
		weights[i] = infRow(len(targets))

		d := NewEdgeDijkstra(network, factors, restrictions)
		d.SetMaxWeight(maxWeight)
		space, err := d.Run(ctx, s, stopAt)
		if err != nil {
			return nil, err
		}
		for j := range targets {
			targetEdge := network.GetEdge(targets[j].EdgeID())
			for _, o := range targetOrigins[j] {
				w, ok := space.HasSettled(o.vertex)
				if !ok {
					continue
				}
				if !d.allowsFinalEntry(space, targetEdge, o) {
					continue
				}
				if cand := w + o.weight; da.Lt(cand, weights[i][j]) {
					weights[i][j] = cand
				}
			}
		}
	}
	return weights, nil
}

// WeightsContracted shares the forward upward searches: every source
// settles a middle set, every target settles one backward, and the
// weight is the best sum over the intersection.
func WeightsContracted(ctx context.Context, network *da.Network, ch *da.ContractedGraph,
	factors []profiles.Factor, sources, targets []da.RouterPoint,
	maxWeight float64) ([][]float64, error) {
	forward := make([]map[da.Index]float64, len(sources))
	backward := make([]map[da.Index]float64, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			search := NewCHBidirectionalSearch(ch)
			search.SetMaxWeight(maxWeight)
			set, err := search.SettleAll(gctx, OriginPoints(network, factors, s, false), false)
			if err != nil {
				return err
			}
			forward[i] = set
			return nil
		})
	}
	for j, t := range targets {
		j, t := j, t
		g.Go(func() error {
			search := NewCHBidirectionalSearch(ch)
			search.SetMaxWeight(maxWeight)
			set, err := search.SettleAll(gctx, OriginPoints(network, factors, t, true), true)
			if err != nil {
				return err
			}
			backward[j] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return combineMiddleSets(forward, backward), nil
}

// WeightsEdgeContracted mirrors WeightsContracted over the
// edge-expanded hierarchy.
func WeightsEdgeContracted(ctx context.Context, network *da.Network, ch *da.ContractedGraph,
	factors []profiles.Factor, sources, targets []da.RouterPoint,
	maxWeight float64) ([][]float64, error) {
	search := NewCHEdgeBidirectionalSearch(network, ch)
	search.SetMaxWeight(maxWeight)

	forward := make([]map[da.Index]float64, len(sources))
	backward := make([]map[da.Index]float64, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		i, s := i, s
		g.Go(func() error {
			helper := NewCHBidirectionalSearch(ch)
			helper.SetMaxWeight(maxWeight)
			set, err := helper.SettleAll(gctx, search.sourceNodes(factors, s), false)
			if err != nil {
				return err
			}
			forward[i] = set
			return nil
		})
	}
	for j, t := range targets {
		j, t := j, t
		g.Go(func() error {
			helper := NewCHBidirectionalSearch(ch)
			helper.SetMaxWeight(maxWeight)
			set, err := helper.SettleAll(gctx, search.targetNodes(factors, t), true)
			if err != nil {
				return err
			}
			backward[j] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return combineMiddleSets(forward, backward), nil
}

// PathsFromSource runs one forward search (restriction-aware when the
// index demands it) and returns the best vertex path and weight to
// every target. Unreachable targets get a nil path and INF_WEIGHT.
func PathsFromSource(ctx context.Context, network *da.Network, factors []profiles.Factor,
	restrictions *da.RestrictionIndex, maxWeight float64, source da.RouterPoint,
	targets []da.RouterPoint, targetOrigins [][]OriginPoint,
	stopAt map[da.Index]struct{}) ([][]da.Index, []float64, error) {

	paths := make([][]da.Index, len(targets))
	weights := infRow(len(targets))

	if restrictions.HasComplexRestrictions() {
		d := NewEdgeDijkstra(network, factors, restrictions)
		d.SetMaxWeight(maxWeight)
		space, err := d.Run(ctx, source, stopAt)
		if err != nil {
			return nil, nil, err
		}
		for j, t := range targets {
			targetEdge := network.GetEdge(t.EdgeID())
			bestVertex := da.INVALID_ID
			for _, o := range targetOrigins[j] {
				w, ok := space.HasSettled(o.vertex)
				if !ok {
					continue
				}
				if !d.allowsFinalEntry(space, targetEdge, o) {
					continue
				}
				if cand := w + o.weight; da.Lt(cand, weights[j]) {
					weights[j] = cand
					bestVertex = o.vertex
				}
			}
			if bestVertex != da.INVALID_ID {
				paths[j] = space.PathTo(bestVertex)
			}
		}
		return paths, weights, nil
	}

	d := NewDijkstra(network, factors, false)
	d.SetMaxWeight(maxWeight)
	space, err := d.Run(ctx, OriginPoints(network, factors, source, false), stopAt)
	if err != nil {
		return nil, nil, err
	}
	for j := range targets {
		bestVertex := da.INVALID_ID
		for _, o := range targetOrigins[j] {
			w, ok := space.HasSettled(o.vertex)
			if !ok {
				continue
			}
			if cand := w + o.weight; da.Lt(cand, weights[j]) {
				weights[j] = cand
				bestVertex = o.vertex
			}
		}
		if bestVertex != da.INVALID_ID {
			paths[j] = space.PathTo(bestVertex)
		}
	}
	return paths, weights, nil
}

func combineMiddleSets(forward, backward []map[da.Index]float64) [][]float64 {
	weights := make([][]float64, len(forward))
	for i := range forward {
		weights[i] = infRow(len(backward))
		for j := range backward {
			fset, bset := forward[i], backward[j]
			// iterate the smaller middle set
			if len(bset) < len(fset) {
				for v, bw := range bset {
					if fw, ok := fset[v]; ok && da.Lt(fw+bw, weights[i][j]) {
						weights[i][j] = fw + bw
					}
				}
			} else {
				for v, fw := range fset {
					if bw, ok := bset[v]; ok && da.Lt(fw+bw, weights[i][j]) {
						weights[i][j] = fw + bw
					}
				}
			}
		}
	}
	return weights
}

// MarkInvalid applies the unreachable-majority rule: a source is
// invalid when strictly more than (|T|-1)/2 of its non-self entries are
// unreachable, and symmetrically for targets.
func MarkInvalid(sources, targets []da.RouterPoint, weights [][]float64) ([]int, []int) {
	selfPair := func(s, t da.RouterPoint) bool {
		return s.EdgeID() == t.EdgeID() && s.Offset() == t.Offset()
	}

	invalidSources := make([]int, 0)
	for i := range sources {
		unreachable := 0
		for j := range targets {
			if selfPair(sources[i], targets[j]) {
				continue
			}
			if weights[i][j] >= pkg.INF_WEIGHT {
				unreachable++
			}
		}
		if unreachable > (len(targets)-1)/2 {
			invalidSources = append(invalidSources, i)
		}
	}

	invalidTargets := make([]int, 0)
	for j := range targets {
		unreachable := 0
		for i := range sources {
			if selfPair(sources[i], targets[j]) {
				continue
			}
			if weights[i][j] >= pkg.INF_WEIGHT {
				unreachable++
			}
		}
		if unreachable > (len(sources)-1)/2 {
			invalidTargets = append(invalidTargets, j)
		}
	}
	return invalidSources, invalidTargets
}
