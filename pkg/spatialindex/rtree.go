package spatialindex

import (
	"math"

	"github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// EdgeIndex is an r-tree over edge polylines. The resolver queries it
// with a bounding box around the snap coordinate.
type EdgeIndex struct {
	tr *rtree.RTreeG[datastructure.Index]
}

func NewEdgeIndex() *EdgeIndex {
	var tr rtree.RTreeG[datastructure.Index]
	return &EdgeIndex{
		tr: &tr,
	}
}

// Build inserts every edge with the bounding box of its full polyline.
func (idx *EdgeIndex) Build(network *datastructure.Network, log *zap.Logger) {
	log.Info("building r-tree edge index...",
		zap.Int("edges", network.EdgeCount()))

	for eId := datastructure.Index(0); eId < datastructure.Index(network.EdgeCount()); eId++ {
		poly := network.EdgePolyline(network.GetEdge(eId))

		minLat, minLon := math.Inf(1), math.Inf(1)
		maxLat, maxLon := math.Inf(-1), math.Inf(-1)
		for _, c := range poly {
			minLat = math.Min(minLat, c.Lat)
			minLon = math.Min(minLon, c.Lon)
			maxLat = math.Max(maxLat, c.Lat)
			maxLon = math.Max(maxLon, c.Lon)
		}

		idx.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, eId)
	}

	log.Info("r-tree edge index built.")
}

// SearchWithinRadius returns candidate edges whose bounding box
// intersects the box enclosing the circle of the given radius (in km)
// around the query point. The box corners lie on the diagonals, at
// radius*sqrt(2) from the point.
func (idx *EdgeIndex) SearchWithinRadius(qLat, qLon, radius float64) []datastructure.Index {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius*math.Sqrt2)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius*math.Sqrt2)

	results := make([]datastructure.Index, 0, 16)
	idx.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data datastructure.Index) bool {
			results = append(results, data)
			return true
		})
	return results
}
