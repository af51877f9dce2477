package controllers

import (
	"context"

	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/engine/routebuilder"
	"github.com/F0rt1s/routing/pkg/geo"
)

type RoutingService interface {
	ShortestPath(ctx context.Context, profileName string,
		origLat, origLon, dstLat, dstLon float64) (*routebuilder.Route, string, error)
	Resolve(profileName string, lat, lon float64) (da.RouterPoint, error)
	Connectivity(ctx context.Context, profileName string,
		lat, lon, radiusMeter float64) (bool, error)
	Matrix(ctx context.Context, profileName string,
		sources, targets []geo.Coordinate) ([][]float64, []int, []int, error)
}
