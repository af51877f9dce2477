package engine

import (
	"context"
	"runtime"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/concurrent"
	"github.com/F0rt1s/routing/pkg/engine/routebuilder"
	"github.com/F0rt1s/routing/pkg/engine/routing"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/spatialindex"
	"github.com/F0rt1s/routing/pkg/util"
	"go.uber.org/zap"
)

// RouteBuilderFunc turns a vertex path between two resolved points into
// a route. The default is routebuilder.Builder; Config.CustomRouteBuilder
// replaces it wholesale.
type RouteBuilderFunc func(factors []profiles.Factor, source, target da.RouterPoint,
	path []da.Index) (*routebuilder.Route, error)

// Config carries the engine options and customization hooks.
type Config struct {
	// VerifyAllStoppable makes resolution reject edges where any
	// profile forbids stopping.
	VerifyAllStoppable bool
	// MaxSearchDistance is the default resolver radius in meters.
	MaxSearchDistance float64
	// FactorCache, when present and complete, lets resolver and
	// kernels bypass per-call profile evaluation.
	FactorCache *profiles.FactorCache
	// CreateCustomResolver replaces the default resolver.
	CreateCustomResolver func(e *Engine) Resolver
	// CustomRouteBuilder replaces the default route builder.
	CustomRouteBuilder RouteBuilderFunc
	// MaxWeight bounds every search; zero means unbounded.
	MaxWeight float64
}

// Engine serves shortest-path queries over an immutable network. After
// construction it is safe for concurrent use; all per-query state is
// scoped to the call.
type Engine struct {
	network *da.Network
	table   *profiles.EdgeProfileTable

	profileSet     map[string]profiles.Profile
	restrictions   map[string]*da.RestrictionIndex
	contracted     map[string]*da.ContractedGraph
	contractedEdge map[string]*da.ContractedGraph

	index        *spatialindex.EdgeIndex
	resolver     Resolver
	routeBuilder RouteBuilderFunc
	cache        *profiles.FactorCache

	verifyAllStoppable bool
	maxSearchDistance  float64
	maxWeight          float64

	log *zap.Logger
}

// New freezes the network (when not yet frozen), builds the spatial
// index, and wires the configured hooks.
func New(network *da.Network, table *profiles.EdgeProfileTable, log *zap.Logger,
	cfg Config, profileList ...profiles.Profile) *Engine {
	network.Freeze()

	index := spatialindex.NewEdgeIndex()
	index.Build(network, log)

	e := &Engine{
		network:            network,
		table:              table,
		profileSet:         make(map[string]profiles.Profile, len(profileList)),
		restrictions:       make(map[string]*da.RestrictionIndex),
		contracted:         make(map[string]*da.ContractedGraph),
		contractedEdge:     make(map[string]*da.ContractedGraph),
		index:              index,
		cache:              cfg.FactorCache,
		verifyAllStoppable: cfg.VerifyAllStoppable,
		maxSearchDistance:  cfg.MaxSearchDistance,
		maxWeight:          cfg.MaxWeight,
		log:                log,
	}
	if e.maxSearchDistance <= 0 {
		e.maxSearchDistance = pkg.DEFAULT_SEARCH_DISTANCE_METER
	}
	if e.maxWeight <= 0 {
		e.maxWeight = pkg.INF_WEIGHT
	}
	for _, p := range profileList {
		e.profileSet[p.Name()] = p
	}
	if cfg.CreateCustomResolver != nil {
		e.resolver = cfg.CreateCustomResolver(e)
	} else {
		e.resolver = NewDefaultResolver(network, index)
	}
	if cfg.CustomRouteBuilder != nil {
		e.routeBuilder = cfg.CustomRouteBuilder
	} else {
		builder := routebuilder.NewBuilder(network)
		e.routeBuilder = builder.Build
	}
	return e
}

func (e *Engine) Network() *da.Network {
	return e.network
}

func (e *Engine) ProfileTable() *profiles.EdgeProfileTable {
	return e.table
}

// AddRestrictions registers the forbidden vertex sequences of one
// profile.
func (e *Engine) AddRestrictions(profileName string, ri *da.RestrictionIndex) {
	e.restrictions[profileName] = ri
}

// AddContracted registers a precomputed hierarchy for a profile. The
// edge-based flag of the graph decides which slot it fills.
func (e *Engine) AddContracted(profileName string, ch *da.ContractedGraph) {
	if ch.IsEdgeBased() {
		e.contractedEdge[profileName] = ch
		return
	}
	e.contracted[profileName] = ch
}

// Profile looks a registered profile up by name.
func (e *Engine) Profile(name string) (profiles.Profile, bool) {
	p, ok := e.profileSet[name]
	return p, ok
}

// SupportsAll reports whether every named profile is registered.
func (e *Engine) SupportsAll(names ...string) bool {
	for _, n := range names {
		if _, ok := e.profileSet[n]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) factorsFor(p profiles.Profile) []profiles.Factor {
	return e.cache.FactorsFor(e.table, p)
}

func (e *Engine) canStopFor(p profiles.Profile) func(uint16) bool {
	if e.cache != nil {
		if canStop, ok := e.cache.CanStop(p.Name()); ok && len(canStop) == e.table.Count() {
			return func(id uint16) bool { return canStop[id] }
		}
	}
	return p.CanStopOn
}

// TryResolve snaps a coordinate for a set of profiles. The edge must be
// traversable by every profile and, with VerifyAllStoppable, stoppable
// for every profile.
func (e *Engine) TryResolve(profs []profiles.Profile, lat, lon float64,
	isBetter func(da.EdgeView) bool, maxSearchDistance float64) (da.RouterPoint, error) {
	for _, p := range profs {
		if !e.SupportsAll(p.Name()) {
			return da.RouterPoint{}, util.WrapErrorf(nil, util.ErrProfileUnsupported,
				"Not all routing profiles are supported.")
		}
	}
	if maxSearchDistance <= 0 {
		maxSearchDistance = e.maxSearchDistance
	}

	factorSets := make([][]profiles.Factor, len(profs))
	stopChecks := make([]func(uint16) bool, len(profs))
	for i, p := range profs {
		factorSets[i] = e.factorsFor(p)
		stopChecks[i] = e.canStopFor(p)
	}
	isAcceptable := func(edge da.EdgeView) bool {
		for i := range profs {
			if !factorSets[i][edge.ProfileID].IsTraversable() {
				return false
			}
			if e.verifyAllStoppable && !stopChecks[i](edge.ProfileID) {
				return false
			}
		}
		return true
	}

	return e.resolver.Resolve(lat, lon, isAcceptable, isBetter, maxSearchDistance)
}

// TryCheckConnectivity runs a distance-bounded Dijkstra around the
// point and reports whether the radius was reached.
func (e *Engine) TryCheckConnectivity(ctx context.Context, p profiles.Profile,
	point da.RouterPoint, radiusMeter float64) (bool, error) {
	if !e.SupportsAll(p.Name()) {
		return false, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	// unit-value factors keep the profile's directions but weigh
	// every meter as one, so the budget is the radius itself
	factors := e.factorsFor(p)
	distFactors := make([]profiles.Factor, len(factors))
	for i, f := range factors {
		distFactors[i] = profiles.Factor{Direction: f.Direction}
		if f.IsTraversable() {
			distFactors[i].Value = 1.0
		}
	}
	d := routing.NewDijkstra(e.network, distFactors, false)
	return d.ReachedWeight(ctx, routing.OriginPoints(e.network, distFactors, point, false), radiusMeter)
}

// runSearch picks the kernel for one point-to-point query following the
// selection table, then challenges the outcome with the same-edge
// direct path.
func (e *Engine) runSearch(ctx context.Context, p profiles.Profile,
	factors []profiles.Factor, source, target da.RouterPoint) (routing.SearchResult, error) {
	name := p.Name()
	ri := e.restrictions[name]
	complex := ri.HasComplexRestrictions()
	nodeCH := e.contracted[name]
	edgeCH := e.contractedEdge[name]

	var (
		result routing.SearchResult
		err    error
	)
	switch {
	case nodeCH == nil && edgeCH == nil && !complex:
		search := routing.NewBidirectionalDijkstra(e.network, factors)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.Run(ctx,
			routing.OriginPoints(e.network, factors, source, false),
			routing.OriginPoints(e.network, factors, target, true))

	case nodeCH == nil && edgeCH == nil && complex:
		search := routing.NewEdgeDijkstra(e.network, factors, ri)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.RunPointToPoint(ctx, source, target,
			routing.OriginPoints(e.network, factors, target, true))

	case complex && edgeCH != nil:
		search := routing.NewCHEdgeBidirectionalSearch(e.network, edgeCH)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.Run(ctx, factors, source, target)

	case complex:
		// contracted graph exists but cannot honor restrictions
		e.log.Warn("complex restrictions without an edge-based hierarchy, falling back to the plain graph",
			zap.String("profile", name))
		search := routing.NewEdgeDijkstra(e.network, factors, ri)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.RunPointToPoint(ctx, source, target,
			routing.OriginPoints(e.network, factors, target, true))

	case nodeCH != nil:
		search := routing.NewCHBidirectionalSearch(nodeCH)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.Run(ctx,
			routing.OriginPoints(e.network, factors, source, false),
			routing.OriginPoints(e.network, factors, target, true))

	default:
		search := routing.NewCHEdgeBidirectionalSearch(e.network, edgeCH)
		search.SetMaxWeight(e.maxWeight)
		result, err = search.Run(ctx, factors, source, target)
	}

	if source.EdgeID() == target.EdgeID() {
		if direct, ok := e.directPath(p, factors, source, target); ok {
			// the searched path keeps ties
			if err != nil || da.Lt(direct.Weight, result.Weight) {
				return direct, nil
			}
		}
	}
	return result, err
}

// directPath computes the on-edge alternative for a same-edge pair:
// straight along the edge when the offsets line up with a permitted
// direction, otherwise a U-turn at the nearest endpoint when the
// profile may stop on the edge.
func (e *Engine) directPath(p profiles.Profile, factors []profiles.Factor,
	source, target da.RouterPoint) (routing.SearchResult, bool) {
	edge := e.network.GetEdge(source.EdgeID())
	f := factors[edge.ProfileID]
	if !f.IsTraversable() {
		return routing.SearchResult{}, false
	}
	w := routing.EdgeWeight(edge, f)
	sf := source.OffsetFraction()
	tf := target.OffsetFraction()

	if sf <= tf && f.Direction.AllowsForward() {
		return routing.SearchResult{Weight: (tf - sf) * w, Path: nil}, true
	}
	if sf > tf && f.Direction.AllowsBackward() {
		return routing.SearchResult{Weight: (sf - tf) * w, Path: nil}, true
	}
	if !e.canStopFor(p)(edge.ProfileID) || f.Direction != pkg.BOTH_DIRECTIONS {
		return routing.SearchResult{}, false
	}
	// U-turn at the nearest endpoint
	viaFrom := (sf + tf) * w
	viaTo := ((1 - sf) + (1 - tf)) * w
	if viaFrom <= viaTo {
		return routing.SearchResult{Weight: viaFrom, Path: []da.Index{edge.From}}, true
	}
	return routing.SearchResult{Weight: viaTo, Path: []da.Index{edge.To}}, true
}

// TryCalculate computes a single route.
func (e *Engine) TryCalculate(ctx context.Context, p profiles.Profile,
	source, target da.RouterPoint) (*routebuilder.Route, error) {
	if !e.SupportsAll(p.Name()) {
		return nil, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	factors := e.factorsFor(p)
	result, err := e.runSearch(ctx, p, factors, source, target)
	if err != nil {
		return nil, err
	}
	return e.routeBuilder(factors, source, target, result.Path)
}

// TryCalculateWeight computes a single scalar weight.
func (e *Engine) TryCalculateWeight(ctx context.Context, p profiles.Profile,
	source, target da.RouterPoint) (float64, error) {
	if !e.SupportsAll(p.Name()) {
		return 0, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	factors := e.factorsFor(p)
	result, err := e.runSearch(ctx, p, factors, source, target)
	if err != nil {
		return 0, err
	}
	return result.Weight, nil
}

// TryCalculateWeights computes the NxM cost matrix plus the invalid
// source/target marking.
func (e *Engine) TryCalculateWeights(ctx context.Context, p profiles.Profile,
	sources, targets []da.RouterPoint) ([][]float64, []int, []int, error) {
	if !e.SupportsAll(p.Name()) {
		return nil, nil, nil, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	factors := e.factorsFor(p)
	name := p.Name()
	ri := e.restrictions[name]
	complex := ri.HasComplexRestrictions()
	nodeCH := e.contracted[name]
	edgeCH := e.contractedEdge[name]

	var (
		weights [][]float64
		err     error
	)
	switch {
	case complex && edgeCH != nil:
		weights, err = routing.WeightsEdgeContracted(ctx, e.network, edgeCH, factors,
			sources, targets, e.maxWeight)
	case complex:
		if nodeCH != nil {
			e.log.Warn("complex restrictions without an edge-based hierarchy, falling back to the plain graph",
				zap.String("profile", name))
		}
		weights, err = routing.WeightsEdgePlain(ctx, e.network, factors, ri,
			sources, targets, e.maxWeight)
	case nodeCH != nil:
		weights, err = routing.WeightsContracted(ctx, e.network, nodeCH, factors,
			sources, targets, e.maxWeight)
	default:
		weights, err = routing.WeightsPlain(ctx, e.network, factors,
			sources, targets, e.maxWeight)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	// same-edge pairs may beat the searched weight with the direct
	// on-edge path
	for i, s := range sources {
		for j, t := range targets {
			if s.EdgeID() != t.EdgeID() {
				continue
			}
			if direct, ok := e.directPath(p, factors, s, t); ok && da.Lt(direct.Weight, weights[i][j]) {
				weights[i][j] = direct.Weight
			}
		}
	}

	invalidSources, invalidTargets := routing.MarkInvalid(sources, targets, weights)
	return weights, invalidSources, invalidTargets, nil
}

type routeRowJob struct {
	index  int
	source da.RouterPoint
}

type routeRowResult struct {
	index int
	row   []*routebuilder.Route
	err   error
}

// TryCalculateRoutes computes full many-to-many routes on the
// uncontracted engine: one forward search per source augmented until
// all targets are settled, each path built individually. Rows run on a
// worker pool.
func (e *Engine) TryCalculateRoutes(ctx context.Context, p profiles.Profile,
	sources, targets []da.RouterPoint) ([][]*routebuilder.Route, []int, []int, error) {
	if !e.SupportsAll(p.Name()) {
		return nil, nil, nil, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	factors := e.factorsFor(p)
	ri := e.restrictions[p.Name()]

	targetOrigins := make([][]routing.OriginPoint, len(targets))
	stopAt := make(map[da.Index]struct{})
	for j, t := range targets {
		targetOrigins[j] = routing.OriginPoints(e.network, factors, t, true)
		for _, o := range targetOrigins[j] {
			stopAt[o.Vertex()] = struct{}{}
		}
	}

	weights := make([][]float64, len(sources))
	routes := make([][]*routebuilder.Route, len(sources))

	pool := concurrent.NewWorkerPool[routeRowJob, routeRowResult](
		util.MinInt(runtime.NumCPU(), len(sources)), len(sources))
	pool.Start(func(job routeRowJob) routeRowResult {
		row, rowWeights, err := e.routeRow(ctx, p, factors, ri, job.source,
			targets, targetOrigins, stopAt)
		if err != nil {
			return routeRowResult{index: job.index, err: err}
		}
		weights[job.index] = rowWeights
		return routeRowResult{index: job.index, row: row}
	})
	for i, s := range sources {
		pool.AddJob(routeRowJob{index: i, source: s})
	}
	pool.Close()
	pool.Wait()

	for res := range pool.CollectResults() {
		if res.err != nil {
			return nil, nil, nil, res.err
		}
		routes[res.index] = res.row
	}

	invalidSources, invalidTargets := routing.MarkInvalid(sources, targets, weights)
	return routes, invalidSources, invalidTargets, nil
}

// routeRow computes one source row of the route matrix.
func (e *Engine) routeRow(ctx context.Context, p profiles.Profile, factors []profiles.Factor,
	ri *da.RestrictionIndex, source da.RouterPoint, targets []da.RouterPoint,
	targetOrigins [][]routing.OriginPoint, stopAt map[da.Index]struct{}) ([]*routebuilder.Route, []float64, error) {

	paths, rowWeights, err := routing.PathsFromSource(ctx, e.network, factors, ri,
		e.maxWeight, source, targets, targetOrigins, stopAt)
	if err != nil {
		return nil, nil, err
	}

	row := make([]*routebuilder.Route, len(targets))
	for j, t := range targets {
		path := paths[j]
		if source.EdgeID() == t.EdgeID() {
			if direct, ok := e.directPath(p, factors, source, t); ok && da.Lt(direct.Weight, rowWeights[j]) {
				rowWeights[j] = direct.Weight
				path = direct.Path
			}
		}
		if rowWeights[j] >= pkg.INF_WEIGHT {
			continue
		}
		route, err := e.routeBuilder(factors, source, t, path)
		if err != nil {
			continue
		}
		row[j] = route
	}
	return row, rowWeights, nil
}
