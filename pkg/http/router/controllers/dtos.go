package controllers

import (
	"github.com/F0rt1s/routing/pkg/engine/routebuilder"
	"github.com/F0rt1s/routing/pkg/geo"
)

type shortestPathRequest struct {
	Profile        string  `validate:"required"`
	OriginLat      float64 `validate:"required,latitude"`
	OriginLon      float64 `validate:"required,longitude"`
	DestinationLat float64 `validate:"required,latitude"`
	DestinationLon float64 `validate:"required,longitude"`
}

type shortestPathResponse struct {
	Distance float64               `json:"distance"`
	Duration float64               `json:"duration"`
	Polyline string                `json:"polyline"`
	Segments []routebuilder.Segment `json:"segments"`
}

func NewShortestPathResponse(route *routebuilder.Route, polyline string) shortestPathResponse {
	return shortestPathResponse{
		Distance: route.TotalDistance,
		Duration: route.TotalDuration,
		Polyline: polyline,
		Segments: route.Segments,
	}
}

type coordinateDTO struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

type matrixRequest struct {
	Profile string          `json:"profile" validate:"required"`
	Sources []coordinateDTO `json:"sources" validate:"required,min=1,dive"`
	Targets []coordinateDTO `json:"targets" validate:"required,min=1,dive"`
}

func (r matrixRequest) sourceCoords() []geo.Coordinate {
	return toCoords(r.Sources)
}

func (r matrixRequest) targetCoords() []geo.Coordinate {
	return toCoords(r.Targets)
}

func toCoords(dtos []coordinateDTO) []geo.Coordinate {
	coords := make([]geo.Coordinate, len(dtos))
	for i, d := range dtos {
		coords[i] = geo.NewCoordinate(d.Lat, d.Lon)
	}
	return coords
}

type matrixResponse struct {
	Weights        [][]float64 `json:"weights"`
	InvalidSources []int       `json:"invalid_sources"`
	InvalidTargets []int       `json:"invalid_targets"`
}

type resolveResponse struct {
	EdgeID int32   `json:"edge_id"`
	Offset uint16  `json:"offset"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type connectivityResponse struct {
	Connected bool `json:"connected"`
}
