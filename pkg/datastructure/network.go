package datastructure

import (
	"fmt"

	"github.com/F0rt1s/routing/pkg/geo"
)

type Vertex struct {
	lat float32
	lon float32
}

func (v Vertex) GetLat() float64 {
	return float64(v.lat)
}

func (v Vertex) GetLon() float64 {
	return float64(v.lon)
}

// Edge as stored. from/to fix the canonical orientation; a backward
// traversal is reported through EdgeView.DataInverted.
type Edge struct {
	from       Index
	to         Index
	distance   float32
	profileID  uint16
	metaID     uint32
	shapeStart int32
	shapeCount int32
}

// EdgeView is an edge oriented for one traversal. From/To are in
// traversal order; DataInverted is true when that order is the reverse
// of the stored one.
type EdgeView struct {
	ID           Index
	From         Index
	To           Index
	Distance     float64
	ProfileID    uint16
	MetaID       uint32
	DataInverted bool
}

// IdDirected encodes the traversal as a signed edge reference:
// +(id+1) forward, -(id+1) backward. Zero is invalid.
func (e EdgeView) IdDirected() DirectedEdgeID {
	if e.DataInverted {
		return -DirectedEdgeID(e.ID + 1)
	}
	return DirectedEdgeID(e.ID + 1)
}

// Reverse flips the view to the opposite traversal.
func (e EdgeView) Reverse() EdgeView {
	e.From, e.To = e.To, e.From
	e.DataInverted = !e.DataInverted
	return e
}

// Network is the routing network: vertices with coordinates, edges with
// profile/meta references and optional shapes, plus an adjacency array.
// After Freeze the network is immutable and safe for concurrent queries.
type Network struct {
	vertices []Vertex
	edges    []Edge
	shapes   []geo.Coordinate

	firstAdj []int32
	adjEdges []Index

	frozen bool
}

func NewNetwork() *Network {
	return &Network{
		vertices: make([]Vertex, 0),
		edges:    make([]Edge, 0),
		shapes:   make([]geo.Coordinate, 0),
	}
}

func (n *Network) VertexCount() int {
	return len(n.vertices)
}

func (n *Network) EdgeCount() int {
	return len(n.edges)
}

func (n *Network) AddVertex(lat, lon float64) Index {
	if n.frozen {
		panic("network is frozen")
	}
	n.vertices = append(n.vertices, Vertex{lat: float32(lat), lon: float32(lon)})
	return Index(len(n.vertices) - 1)
}

// AddEdge adds an edge with its intermediate shape points (endpoints
// excluded), in from->to order.
func (n *Network) AddEdge(from, to Index, distance float64, profileID uint16, metaID uint32,
	shape []geo.Coordinate) (Index, error) {
	if n.frozen {
		panic("network is frozen")
	}
	if int(from) >= len(n.vertices) || int(to) >= len(n.vertices) || from < 0 || to < 0 {
		return INVALID_ID, fmt.Errorf("edge endpoints %d-%d out of range", from, to)
	}
	e := Edge{
		from:       from,
		to:         to,
		distance:   float32(distance),
		profileID:  profileID,
		metaID:     metaID,
		shapeStart: int32(len(n.shapes)),
		shapeCount: int32(len(shape)),
	}
	n.shapes = append(n.shapes, shape...)
	n.edges = append(n.edges, e)
	return Index(len(n.edges) - 1), nil
}

// Freeze builds the adjacency array and seals the network for queries.
func (n *Network) Freeze() {
	if n.frozen {
		return
	}
	numV := len(n.vertices)
	degree := make([]int32, numV+1)
	for _, e := range n.edges {
		degree[e.from+1]++
		if e.to != e.from {
			degree[e.to+1]++
		}
	}
	for i := 1; i <= numV; i++ {
		degree[i] += degree[i-1]
	}
	n.firstAdj = degree
	n.adjEdges = make([]Index, n.firstAdj[numV])
	cursor := make([]int32, numV)
	for eId, e := range n.edges {
		idx := n.firstAdj[e.from] + cursor[e.from]
		n.adjEdges[idx] = Index(eId)
		cursor[e.from]++
		if e.to != e.from {
			idx = n.firstAdj[e.to] + cursor[e.to]
			n.adjEdges[idx] = Index(eId)
			cursor[e.to]++
		}
	}
	n.frozen = true
}

func (n *Network) IsFrozen() bool {
	return n.frozen
}

func (n *Network) GetVertex(v Index) Vertex {
	return n.vertices[v]
}

func (n *Network) GetVertexCoordinates(v Index) (float64, float64) {
	vert := n.vertices[v]
	return vert.GetLat(), vert.GetLon()
}

// GetEdge returns the forward (stored-order) view of an edge.
func (n *Network) GetEdge(id Index) EdgeView {
	e := n.edges[id]
	return EdgeView{
		ID:        id,
		From:      e.from,
		To:        e.to,
		Distance:  float64(e.distance),
		ProfileID: e.profileID,
		MetaID:    e.metaID,
	}
}

// GetDirectedEdge resolves a signed edge reference to an oriented view.
func (n *Network) GetDirectedEdge(d DirectedEdgeID) EdgeView {
	view := n.GetEdge(d.EdgeID())
	if !d.Forward() {
		view = view.Reverse()
	}
	return view
}

// ForAdjacentEdges visits every edge incident to v, oriented to leave
// v. Return false from the callback to stop early.
func (n *Network) ForAdjacentEdges(v Index, fn func(e EdgeView) bool) {
	for i := n.firstAdj[v]; i < n.firstAdj[v+1]; i++ {
		eId := n.adjEdges[i]
		view := n.GetEdge(eId)
		if view.From != v {
			view = view.Reverse()
		}
		if !fn(view) {
			return
		}
	}
}

// ForEdgesBetween visits edges joining u and v, oriented u->v.
func (n *Network) ForEdgesBetween(u, v Index, fn func(e EdgeView) bool) {
	n.ForAdjacentEdges(u, func(e EdgeView) bool {
		if e.To != v {
			return true
		}
		return fn(e)
	})
}

// ShapeOf returns the intermediate shape points of an edge in traversal
// order.
func (n *Network) ShapeOf(id Index, reversed bool) []geo.Coordinate {
	e := n.edges[id]
	if e.shapeCount == 0 {
		return nil
	}
	shape := n.shapes[e.shapeStart : e.shapeStart+e.shapeCount]
	if !reversed {
		out := make([]geo.Coordinate, len(shape))
		copy(out, shape)
		return out
	}
	out := make([]geo.Coordinate, len(shape))
	for i, c := range shape {
		out[len(shape)-1-i] = c
	}
	return out
}

// EdgePolyline returns the full polyline of an oriented edge, endpoints
// included.
func (n *Network) EdgePolyline(e EdgeView) []geo.Coordinate {
	fromLat, fromLon := n.GetVertexCoordinates(e.From)
	toLat, toLon := n.GetVertexCoordinates(e.To)
	shape := n.ShapeOf(e.ID, e.DataInverted)
	poly := make([]geo.Coordinate, 0, len(shape)+2)
	poly = append(poly, geo.NewCoordinate(fromLat, fromLon))
	poly = append(poly, shape...)
	poly = append(poly, geo.NewCoordinate(toLat, toLon))
	return poly
}

// PolylineLengthMeter sums the haversine lengths of a polyline.
func PolylineLengthMeter(poly []geo.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(poly); i++ {
		total += geo.HaversineMeter(poly[i-1].Lat, poly[i-1].Lon, poly[i].Lat, poly[i].Lon)
	}
	return total
}
