package osmparser

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/F0rt1s/routing/pkg"
	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type nodeKind uint8

const (
	endNode nodeKind = iota
	betweenNode
	junctionNode
)

// viaNodeRestriction is a turn restriction relation with a node role
// "via": from way -> via node -> to way.
type viaNodeRestriction struct {
	fromWay int64
	viaNode int64
	toWay   int64
}

// ParseResult is everything the builder persists for the engine.
type ParseResult struct {
	Network      *da.Network
	Table        *profiles.EdgeProfileTable
	Restrictions map[string][][]da.Index
	StreetNames  util.IDMap
}

// OsmParser builds the routing network from an OSM pbf extract. Ways
// are split at junctions; non-junction way nodes become edge shape
// points.
type OsmParser struct {
	wayNodeMap   map[int64]nodeKind
	nodeCoord    map[int64]geo.Coordinate
	vertexID     map[int64]da.Index
	wayVertices  map[int64][]da.Index
	restrictions []viaNodeRestriction
	streetNames  util.IDMap
}

func NewOsmParser() *OsmParser {
	return &OsmParser{
		wayNodeMap:   make(map[int64]nodeKind),
		nodeCoord:    make(map[int64]geo.Coordinate),
		vertexID:     make(map[int64]da.Index),
		wayVertices:  make(map[int64][]da.Index),
		restrictions: make([]viaNodeRestriction, 0),
		streetNames:  util.NewIDMap(),
	}
}

func acceptOsmWay(way *osm.Way) bool {
	if len(way.Nodes) < 2 {
		return false
	}
	return pkg.GetRoadClass(way.Tags.Find("highway")) != pkg.UNKNOWN
}

func wayDirection(way *osm.Way) pkg.Direction {
	switch way.Tags.Find("oneway") {
	case "yes", "1", "true":
		return pkg.FORWARD_ONLY
	case "-1", "reverse":
		return pkg.BACKWARD_ONLY
	case "no", "0", "false":
		return pkg.BOTH_DIRECTIONS
	}
	if way.Tags.Find("junction") == "roundabout" {
		return pkg.FORWARD_ONLY
	}
	return pkg.BOTH_DIRECTIONS
}

func wayMaxSpeed(way *osm.Way) float64 {
	raw := strings.TrimSpace(way.Tags.Find("maxspeed"))
	if raw == "" {
		return 0
	}
	mph := false
	if strings.HasSuffix(raw, "mph") {
		mph = true
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "mph"))
	}
	speed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if mph {
		speed *= 1.609344
	}
	return speed
}

// Parse runs the two-pass scan: first classify way nodes and collect
// restriction relations, then build vertices, edges and shapes.
func (p *OsmParser) Parse(mapFile string, log *zap.Logger) (*ParseResult, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 0)
	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()
		switch o.ObjectID().Type() {
		case osm.TypeWay:
			way := o.(*osm.Way)
			if !acceptOsmWay(way) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				log.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
			}
			countWays++
			for i, node := range way.Nodes {
				id := int64(node.ID)
				if _, ok := p.wayNodeMap[id]; !ok {
					if i == 0 || i == len(way.Nodes)-1 {
						p.wayNodeMap[id] = endNode
					} else {
						p.wayNodeMap[id] = betweenNode
					}
				} else {
					p.wayNodeMap[id] = junctionNode
				}
			}
		case osm.TypeRelation:
			relation := o.(*osm.Relation)
			tagVal := relation.Tags.Find("restriction")
			if tagVal == "" || !strings.HasPrefix(tagVal, "no_") {
				continue
			}
			rest := viaNodeRestriction{}
			viaIsNode := false
			for _, member := range relation.Members {
				switch member.Role {
				case "from":
					rest.fromWay = member.Ref
				case "to":
					rest.toWay = member.Ref
				case "via":
					if member.Type == osm.TypeNode {
						rest.viaNode = member.Ref
						viaIsNode = true
					}
				}
			}
			if viaIsNode && rest.fromWay != 0 && rest.toWay != 0 {
				p.restrictions = append(p.restrictions, rest)
			}
		}
	}
	scanner.Close()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	network := da.NewNetwork()
	table := profiles.NewEdgeProfileTable()

	scanner = osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	countWays = 0
	for scanner.Scan() {
		o := scanner.Object()
		switch o.ObjectID().Type() {
		case osm.TypeNode:
			node := o.(*osm.Node)
			if _, ok := p.wayNodeMap[int64(node.ID)]; ok {
				p.nodeCoord[int64(node.ID)] = geo.NewCoordinate(node.Lat, node.Lon)
			}
		case osm.TypeWay:
			way := o.(*osm.Way)
			if !acceptOsmWay(way) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				log.Sugar().Infof("processing openstreetmap ways: %d...", countWays+1)
			}
			countWays++
			p.processWay(way, network, table)
		}
	}

	oldToNew := network.SortHilbert()
	for wayId, verts := range p.wayVertices {
		for i, v := range verts {
			p.wayVertices[wayId][i] = oldToNew[v]
		}
	}
	for osmId, v := range p.vertexID {
		p.vertexID[osmId] = oldToNew[v]
	}
	network.Freeze()

	restrictions := p.buildRestrictions(log)

	log.Info("openstreetmap import done",
		zap.Int("vertices", network.VertexCount()),
		zap.Int("edges", network.EdgeCount()),
		zap.Int("restrictions", len(restrictions["car"])))

	return &ParseResult{
		Network:      network,
		Table:        table,
		Restrictions: restrictions,
		StreetNames:  p.streetNames,
	}, nil
}

func (p *OsmParser) vertexFor(network *da.Network, osmId int64) da.Index {
	if v, ok := p.vertexID[osmId]; ok {
		return v
	}
	coord := p.nodeCoord[osmId]
	v := network.AddVertex(coord.Lat, coord.Lon)
	p.vertexID[osmId] = v
	return v
}

// processWay splits a way at junction nodes and adds one edge per
// segment.
func (p *OsmParser) processWay(way *osm.Way, network *da.Network, table *profiles.EdgeProfileTable) {
	profileID := table.Add(profiles.EdgeProfile{
		RoadClass: pkg.GetRoadClass(way.Tags.Find("highway")),
		Oneway:    wayDirection(way),
		SpeedKmh:  wayMaxSpeed(way),
	})
	metaID := uint32(p.streetNames.GetID(way.Tags.Find("name")))

	segment := make([]int64, 0, 8)
	flush := func() {
		if len(segment) < 2 {
			return
		}
		from := p.vertexFor(network, segment[0])
		to := p.vertexFor(network, segment[len(segment)-1])

		shape := make([]geo.Coordinate, 0, len(segment)-2)
		distance := 0.0
		prev := p.nodeCoord[segment[0]]
		for i := 1; i < len(segment); i++ {
			cur := p.nodeCoord[segment[i]]
			distance += geo.HaversineMeter(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
			if i < len(segment)-1 {
				shape = append(shape, cur)
			}
			prev = cur
		}

		if _, err := network.AddEdge(from, to, distance, profileID, metaID, shape); err == nil {
			p.wayVertices[int64(way.ID)] = append(p.wayVertices[int64(way.ID)], from, to)
		}
	}

	for i, node := range way.Nodes {
		id := int64(node.ID)
		if _, ok := p.nodeCoord[id]; !ok {
			// node missing from the extract, split here
			flush()
			segment = segment[:0]
			continue
		}
		segment = append(segment, id)
		if i > 0 && i < len(way.Nodes)-1 && p.wayNodeMap[id] == junctionNode {
			flush()
			segment = segment[:1]
			segment[0] = id
		}
	}
	flush()
}

// buildRestrictions turns via-node relations into vertex triples.
func (p *OsmParser) buildRestrictions(log *zap.Logger) map[string][][]da.Index {
	seqs := make([][]da.Index, 0, len(p.restrictions))
	for _, r := range p.restrictions {
		via, ok := p.vertexID[r.viaNode]
		if !ok {
			continue
		}
		from, okFrom := adjacentInWay(p.wayVertices[r.fromWay], via)
		to, okTo := adjacentInWay(p.wayVertices[r.toWay], via)
		if !okFrom || !okTo || from == to {
			continue
		}
		seqs = append(seqs, []da.Index{from, via, to})
	}
	if skipped := len(p.restrictions) - len(seqs); skipped > 0 {
		log.Info("skipped unresolvable turn restrictions", zap.Int("count", skipped))
	}
	return map[string][][]da.Index{"car": seqs}
}

// adjacentInWay finds the vertex paired with via in the flat
// (from,to,from,to,...) segment list of one way.
func adjacentInWay(pairs []da.Index, via da.Index) (da.Index, bool) {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i] == via {
			return pairs[i+1], true
		}
		if pairs[i+1] == via {
			return pairs[i], true
		}
	}
	return da.INVALID_ID, false
}
