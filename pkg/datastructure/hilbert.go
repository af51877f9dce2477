package datastructure

import (
	"golang.org/x/exp/slices"
)

const hilbertOrder = 16

// hilbertD converts quantized x/y into a distance along the order-16
// hilbert curve.
func hilbertD(x, y uint32) uint64 {
	var rx, ry uint32
	var d uint64
	for s := uint32(1) << (hilbertOrder - 1); s > 0; s /= 2 {
		if x&s > 0 {
			rx = 1
		} else {
			rx = 0
		}
		if y&s > 0 {
			ry = 1
		} else {
			ry = 0
		}
		d += uint64(s) * uint64(s) * uint64((3*rx)^ry)

		// rotate quadrant
		if ry == 0 {
			if rx == 1 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}

func hilbertOfCoordinate(lat, lon float64) uint64 {
	x := uint32((lon + 180.0) / 360.0 * float64(uint32(1)<<hilbertOrder-1))
	y := uint32((lat + 90.0) / 180.0 * float64(uint32(1)<<hilbertOrder-1))
	return hilbertD(x, y)
}

// SortHilbert reorders vertices along a hilbert space-filling curve so
// that spatially close vertices get close ids, and remaps edge
// endpoints accordingly. Must run before Freeze. Returns the mapping
// oldId -> newId.
func (n *Network) SortHilbert() []Index {
	if n.frozen {
		panic("network is frozen")
	}
	numV := len(n.vertices)
	order := make([]Index, numV)
	for i := range order {
		order[i] = Index(i)
	}
	slices.SortStableFunc(order, func(a, b Index) int {
		ha := hilbertOfCoordinate(n.vertices[a].GetLat(), n.vertices[a].GetLon())
		hb := hilbertOfCoordinate(n.vertices[b].GetLat(), n.vertices[b].GetLon())
		if ha < hb {
			return -1
		}
		if ha > hb {
			return 1
		}
		return 0
	})

	oldToNew := make([]Index, numV)
	sorted := make([]Vertex, numV)
	for newId, oldId := range order {
		oldToNew[oldId] = Index(newId)
		sorted[newId] = n.vertices[oldId]
	}
	n.vertices = sorted

	for i := range n.edges {
		n.edges[i].from = oldToNew[n.edges[i].from]
		n.edges[i].to = oldToNew[n.edges[i].to]
	}
	return oldToNew
}
