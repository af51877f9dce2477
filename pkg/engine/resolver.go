package engine

import (
	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/F0rt1s/routing/pkg/spatialindex"
	"github.com/F0rt1s/routing/pkg/util"
)

// Resolver snaps a coordinate onto the network. Implementations may be
// swapped wholesale through Config.CreateCustomResolver.
type Resolver interface {
	Resolve(lat, lon float64, isAcceptable func(da.EdgeView) bool,
		isBetter func(da.EdgeView) bool, maxSearchDistance float64) (da.RouterPoint, error)
}

// DefaultResolver queries the r-tree edge index with a bounding box
// around the point and projects onto every candidate shape segment.
type DefaultResolver struct {
	network *da.Network
	index   *spatialindex.EdgeIndex
}

func NewDefaultResolver(network *da.Network, index *spatialindex.EdgeIndex) *DefaultResolver {
	return &DefaultResolver{
		network: network,
		index:   index,
	}
}

// projection of a point onto one edge polyline.
type projection struct {
	distance float64
	location geo.Coordinate
	offset   uint16
}

// projectOntoEdge finds the closest point of the edge polyline and the
// normalized offset of that point by cumulative shape length.
func (r *DefaultResolver) projectOntoEdge(eId da.Index, snap geo.Coordinate) projection {
	poly := r.network.EdgePolyline(r.network.GetEdge(eId))
	total := da.PolylineLengthMeter(poly)

	best := projection{distance: pkg.INF_WEIGHT}
	walked := 0.0
	for i := 1; i < len(poly); i++ {
		proj := geo.ProjectPointToLineCoord(poly[i-1], poly[i], snap)
		dist := geo.HaversineMeter(snap.Lat, snap.Lon, proj.Lat, proj.Lon)
		if dist < best.distance {
			along := walked + geo.HaversineMeter(poly[i-1].Lat, poly[i-1].Lon, proj.Lat, proj.Lon)
			frac := 0.0
			if total > 0 {
				frac = along / total
			}
			best = projection{
				distance: dist,
				location: proj,
				offset:   da.OffsetFromFraction(frac),
			}
		}
		walked += geo.HaversineMeter(poly[i-1].Lat, poly[i-1].Lon, poly[i].Lat, poly[i].Lon)
	}
	return best
}

func (r *DefaultResolver) Resolve(lat, lon float64, isAcceptable func(da.EdgeView) bool,
	isBetter func(da.EdgeView) bool, maxSearchDistance float64) (da.RouterPoint, error) {
	snap := geo.NewCoordinate(lat, lon)
	candidates := r.index.SearchWithinRadius(lat, lon, maxSearchDistance/1000.0)

	bestEdge := da.INVALID_ID
	bestPreferred := false
	best := projection{distance: pkg.INF_WEIGHT}

	for _, eId := range candidates {
		view := r.network.GetEdge(eId)
		if isAcceptable != nil && !isAcceptable(view) {
			continue
		}
		proj := r.projectOntoEdge(eId, snap)
		if proj.distance > maxSearchDistance {
			continue
		}

		preferred := isBetter != nil && isBetter(view)
		switch {
		case proj.distance < best.distance-pkg.RESOLVE_TOLERANCE_METER:
			bestEdge, best, bestPreferred = eId, proj, preferred
		case proj.distance <= best.distance+pkg.RESOLVE_TOLERANCE_METER && preferred && !bestPreferred:
			// within tolerance of the current best, break the tie
			bestEdge, best, bestPreferred = eId, proj, true
		}
	}

	if bestEdge == da.INVALID_ID {
		return da.RouterPoint{}, util.WrapErrorf(nil, util.ErrResolveFailed,
			"no acceptable edge within %.0fm of %f,%f", maxSearchDistance, lat, lon)
	}
	return da.NewRouterPoint(best.location.Lat, best.location.Lon, bestEdge, best.offset), nil
}
