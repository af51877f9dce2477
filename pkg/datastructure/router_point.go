package datastructure

import (
	"github.com/F0rt1s/routing/pkg"
	"github.com/F0rt1s/routing/pkg/geo"
)

// DirectedEdgeID is a signed edge reference: +(id+1) means forward
// traversal of the edge, -(id+1) backward. Zero is reserved as invalid.
// Callers persist these, so the mapping is bit-exact.
type DirectedEdgeID int32

func NewDirectedEdgeID(edge Index, forward bool) DirectedEdgeID {
	if forward {
		return DirectedEdgeID(edge + 1)
	}
	return -DirectedEdgeID(edge + 1)
}

func (d DirectedEdgeID) IsValid() bool {
	return d != 0
}

func (d DirectedEdgeID) Forward() bool {
	return d > 0
}

func (d DirectedEdgeID) EdgeID() Index {
	if d < 0 {
		return Index(-d) - 1
	}
	return Index(d) - 1
}

// RouterPoint is a location resolved onto an edge. The offset is the
// normalized position along the shape-interpolated edge polyline from
// the stored `from` vertex: 0 means from, 65535 means to.
type RouterPoint struct {
	edgeID Index
	offset uint16
	lat    float32
	lon    float32
}

func NewRouterPoint(lat, lon float64, edgeID Index, offset uint16) RouterPoint {
	return RouterPoint{
		edgeID: edgeID,
		offset: offset,
		lat:    float32(lat),
		lon:    float32(lon),
	}
}

func (rp RouterPoint) EdgeID() Index {
	return rp.edgeID
}

func (rp RouterPoint) Offset() uint16 {
	return rp.offset
}

func (rp RouterPoint) Location() geo.Coordinate {
	return geo.NewCoordinate(float64(rp.lat), float64(rp.lon))
}

// OffsetFraction is the offset scaled into [0,1].
func (rp RouterPoint) OffsetFraction() float64 {
	return float64(rp.offset) / float64(pkg.MAX_OFFSET)
}

// IsVertex reports whether the point coincides with one of the edge
// endpoints.
func (rp RouterPoint) IsVertex() bool {
	return rp.offset == 0 || rp.offset == pkg.MAX_OFFSET
}

// OffsetFromFraction clamps a fraction into the uint16 offset range.
func OffsetFromFraction(frac float64) uint16 {
	if frac <= 0 {
		return 0
	}
	if frac >= 1 {
		return pkg.MAX_OFFSET
	}
	return uint16(frac*float64(pkg.MAX_OFFSET) + 0.5)
}

// LocationOnEdge interpolates the coordinate at a fractional position
// along the full edge polyline.
func LocationOnEdge(n *Network, edge Index, frac float64) geo.Coordinate {
	poly := n.EdgePolyline(n.GetEdge(edge))
	total := PolylineLengthMeter(poly)
	if Eq(total, 0) {
		return poly[0]
	}
	target := frac * total
	walked := 0.0
	for i := 1; i < len(poly); i++ {
		segLen := geo.HaversineMeter(poly[i-1].Lat, poly[i-1].Lon, poly[i].Lat, poly[i].Lon)
		if walked+segLen >= target && segLen > 0 {
			segFrac := (target - walked) / segLen
			lat := poly[i-1].Lat + (poly[i].Lat-poly[i-1].Lat)*segFrac
			lon := poly[i-1].Lon + (poly[i].Lon-poly[i-1].Lon)*segFrac
			return geo.NewCoordinate(lat, lon)
		}
		walked += segLen
	}
	return poly[len(poly)-1]
}
