package usecases

import (
	"context"

	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/engine"
	"github.com/F0rt1s/routing/pkg/engine/routebuilder"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
	"go.uber.org/zap"
)

// RoutingService adapts the engine to the HTTP controllers: coordinates
// in, polylines and matrices out.
type RoutingService struct {
	log          *zap.Logger
	engine       *engine.Engine
	searchRadius float64
}

func NewRoutingService(log *zap.Logger, eng *engine.Engine, searchRadius float64) *RoutingService {
	return &RoutingService{
		log:          log,
		engine:       eng,
		searchRadius: searchRadius,
	}
}

func (rs *RoutingService) profile(name string) (profiles.Profile, error) {
	p, ok := rs.engine.Profile(name)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrProfileUnsupported,
			"Routing profile is not supported.")
	}
	return p, nil
}

func (rs *RoutingService) resolve(p profiles.Profile, lat, lon float64) (da.RouterPoint, error) {
	return rs.engine.TryResolve([]profiles.Profile{p}, lat, lon, nil, rs.searchRadius)
}

// ShortestPath resolves both endpoints and returns the route with its
// geometry as an encoded polyline.
func (rs *RoutingService) ShortestPath(ctx context.Context, profileName string,
	origLat, origLon, dstLat, dstLon float64) (*routebuilder.Route, string, error) {
	p, err := rs.profile(profileName)
	if err != nil {
		return nil, "", err
	}
	source, err := rs.resolve(p, origLat, origLon)
	if err != nil {
		return nil, "", err
	}
	target, err := rs.resolve(p, dstLat, dstLon)
	if err != nil {
		return nil, "", err
	}
	route, err := rs.engine.TryCalculate(ctx, p, source, target)
	if err != nil {
		return nil, "", err
	}
	return route, geo.PolylineFromCoords(route.Coordinates), nil
}

// Resolve snaps a coordinate and returns the router point.
func (rs *RoutingService) Resolve(profileName string, lat, lon float64) (da.RouterPoint, error) {
	p, err := rs.profile(profileName)
	if err != nil {
		return da.RouterPoint{}, err
	}
	return rs.resolve(p, lat, lon)
}

// Connectivity reports whether the point can reach the given radius.
func (rs *RoutingService) Connectivity(ctx context.Context, profileName string,
	lat, lon, radiusMeter float64) (bool, error) {
	p, err := rs.profile(profileName)
	if err != nil {
		return false, err
	}
	point, err := rs.resolve(p, lat, lon)
	if err != nil {
		return false, err
	}
	return rs.engine.TryCheckConnectivity(ctx, p, point, radiusMeter)
}

// Matrix computes the many-to-many weight matrix for coordinate lists.
func (rs *RoutingService) Matrix(ctx context.Context, profileName string,
	sources, targets []geo.Coordinate) ([][]float64, []int, []int, error) {
	p, err := rs.profile(profileName)
	if err != nil {
		return nil, nil, nil, err
	}
	srcPoints := make([]da.RouterPoint, len(sources))
	for i, c := range sources {
		srcPoints[i], err = rs.resolve(p, c.Lat, c.Lon)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	tgtPoints := make([]da.RouterPoint, len(targets))
	for j, c := range targets {
		tgtPoints[j], err = rs.resolve(p, c.Lat, c.Lon)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return rs.engine.TryCalculateWeights(ctx, p, srcPoints, tgtPoints)
}
