package routebuilder

import (
	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
)

// Segment is one traversed edge (or edge part) of a route. Shape is
// the index into Route.Coordinates where the segment ends.
type Segment struct {
	Shape     int     `json:"shape"`
	Distance  float64 `json:"distance"`
	Duration  float64 `json:"duration"`
	ProfileID uint16  `json:"profile_id"`
	MetaID    uint32  `json:"meta_id"`
}

// Route owns its data; it outlives the query that produced it.
type Route struct {
	Coordinates   []geo.Coordinate `json:"coordinates"`
	Segments      []Segment        `json:"segments"`
	TotalDistance float64          `json:"total_distance"`
	TotalDuration float64          `json:"total_duration"`
}

// Builder expands a vertex path between two router points into a
// coordinated route: correct shape directions, trimmed first and last
// edges, per-segment distance and duration.
type Builder struct {
	network *da.Network
}

func NewBuilder(network *da.Network) *Builder {
	return &Builder{network: network}
}

// subPolyline clips a polyline to the piece between two length
// fractions, interpolating both cut points. fromFrac may exceed toFrac,
// in which case the piece comes out reversed.
func subPolyline(poly []geo.Coordinate, fromFrac, toFrac float64) []geo.Coordinate {
	reversed := false
	if fromFrac > toFrac {
		fromFrac, toFrac = toFrac, fromFrac
		reversed = true
	}
	total := da.PolylineLengthMeter(poly)
	if da.Eq(total, 0) {
		return []geo.Coordinate{poly[0], poly[len(poly)-1]}
	}
	fromAt := fromFrac * total
	toAt := toFrac * total

	out := make([]geo.Coordinate, 0, len(poly))
	walked := 0.0
	interpolate := func(i int, at, segLen float64) geo.Coordinate {
		segFrac := (at - walked) / segLen
		lat := poly[i-1].Lat + (poly[i].Lat-poly[i-1].Lat)*segFrac
		lon := poly[i-1].Lon + (poly[i].Lon-poly[i-1].Lon)*segFrac
		return geo.NewCoordinate(lat, lon)
	}
	for i := 1; i < len(poly); i++ {
		segLen := geo.HaversineMeter(poly[i-1].Lat, poly[i-1].Lon, poly[i].Lat, poly[i].Lon)
		if segLen <= 0 {
			continue
		}
		if len(out) == 0 && walked+segLen >= fromAt {
			out = append(out, interpolate(i, fromAt, segLen))
		}
		if walked+segLen >= toAt {
			out = append(out, interpolate(i, toAt, segLen))
			break
		}
		if len(out) > 0 {
			out = append(out, poly[i])
		}
		walked += segLen
	}
	if len(out) < 2 {
		out = append(out, out[0])
	}
	if reversed {
		out = util.ReverseG(out)
	}
	return out
}

// appendSegment adds coordinates (skipping the first point, which must
// already be present) and books the segment.
func (b *Builder) appendSegment(route *Route, coords []geo.Coordinate,
	distance float64, f profiles.Factor, profileID uint16, metaID uint32) {
	route.Coordinates = append(route.Coordinates, coords[1:]...)
	duration := distance * f.Value
	route.Segments = append(route.Segments, Segment{
		Shape:     len(route.Coordinates) - 1,
		Distance:  distance,
		Duration:  duration,
		ProfileID: profileID,
		MetaID:    metaID,
	})
	route.TotalDistance += distance
	route.TotalDuration += duration
}

// Build produces the route for a vertex path. An empty path means the
// trip stays on a single edge.
func (b *Builder) Build(factors []profiles.Factor, source, target da.RouterPoint,
	path []da.Index) (*Route, error) {
	if len(path) == 0 {
		return b.buildSameEdge(factors, source, target)
	}

	route := &Route{
		Coordinates: make([]geo.Coordinate, 0, len(path)+2),
		Segments:    make([]Segment, 0, len(path)+1),
	}

	// trimmed first edge: from the source point to path[0]
	srcEdge := b.network.GetEdge(source.EdgeID())
	srcFrac := source.OffsetFraction()
	srcPoly := b.network.EdgePolyline(srcEdge)
	srcFactor := factors[srcEdge.ProfileID]
	var endFrac float64
	switch path[0] {
	case srcEdge.From:
		endFrac = 0
	case srcEdge.To:
		endFrac = 1
	default:
		return nil, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"path does not start at the resolved source edge")
	}
	if !da.Eq(srcFrac, endFrac) {
		piece := subPolyline(srcPoly, srcFrac, endFrac)
		route.Coordinates = append(route.Coordinates, piece[0])
		dist := srcEdge.Distance * abs(endFrac-srcFrac)
		b.appendSegment(route, piece, dist, srcFactor, srcEdge.ProfileID, srcEdge.MetaID)
	} else {
		lat, lon := b.network.GetVertexCoordinates(path[0])
		route.Coordinates = append(route.Coordinates, geo.NewCoordinate(lat, lon))
	}

	// full edges between consecutive path vertices
	for i := 1; i < len(path); i++ {
		u, v := path[i-1], path[i]
		edge, ok := b.cheapestEdge(factors, u, v)
		if !ok {
			return nil, util.WrapErrorf(nil, util.ErrRouteNotFound,
				"no traversable edge joins path vertices %d and %d", u, v)
		}
		poly := b.network.EdgePolyline(edge)
		b.appendSegment(route, poly, edge.Distance, factors[edge.ProfileID],
			edge.ProfileID, edge.MetaID)
	}

	// trimmed last edge: from path[len-1] to the target point
	tgtEdge := b.network.GetEdge(target.EdgeID())
	tgtFrac := target.OffsetFraction()
	tgtFactor := factors[tgtEdge.ProfileID]
	last := path[len(path)-1]
	var startFrac float64
	switch last {
	case tgtEdge.From:
		startFrac = 0
	case tgtEdge.To:
		startFrac = 1
	default:
		return nil, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"path does not end at the resolved target edge")
	}
	if !da.Eq(startFrac, tgtFrac) {
		tgtPoly := b.network.EdgePolyline(tgtEdge)
		piece := subPolyline(tgtPoly, startFrac, tgtFrac)
		dist := tgtEdge.Distance * abs(tgtFrac-startFrac)
		b.appendSegment(route, piece, dist, tgtFactor, tgtEdge.ProfileID, tgtEdge.MetaID)
	}

	return route, nil
}

// buildSameEdge covers the trip confined to one edge: the geometry
// between the two offsets, no intermediate vertex.
func (b *Builder) buildSameEdge(factors []profiles.Factor, source, target da.RouterPoint) (*Route, error) {
	if source.EdgeID() != target.EdgeID() {
		return nil, util.WrapErrorf(nil, util.ErrRouteNotFound,
			"empty path but source and target resolve to different edges")
	}
	e := b.network.GetEdge(source.EdgeID())
	f := factors[e.ProfileID]
	poly := b.network.EdgePolyline(e)

	srcFrac := source.OffsetFraction()
	tgtFrac := target.OffsetFraction()

	route := &Route{
		Coordinates: make([]geo.Coordinate, 0, len(poly)),
		Segments:    make([]Segment, 0, 1),
	}
	piece := subPolyline(poly, srcFrac, tgtFrac)
	route.Coordinates = append(route.Coordinates, piece[0])
	dist := e.Distance * abs(tgtFrac-srcFrac)
	b.appendSegment(route, piece, dist, f, e.ProfileID, e.MetaID)
	return route, nil
}

// cheapestEdge picks the traversable u->v edge with the least weight.
func (b *Builder) cheapestEdge(factors []profiles.Factor, u, v da.Index) (da.EdgeView, bool) {
	var best da.EdgeView
	bestWeight := pkg.INF_WEIGHT
	found := false
	b.network.ForEdgesBetween(u, v, func(e da.EdgeView) bool {
		f := factors[e.ProfileID]
		if !f.IsTraversable() {
			return true
		}
		alongStorage := !e.DataInverted
		if alongStorage && !f.Direction.AllowsForward() {
			return true
		}
		if !alongStorage && !f.Direction.AllowsBackward() {
			return true
		}
		if w := e.Distance * f.Value; w < bestWeight {
			best = e
			bestWeight = w
			found = true
		}
		return true
	})
	return best, found
}

func abs(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
