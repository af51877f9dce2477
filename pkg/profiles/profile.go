package profiles

import (
	"github.com/F0rt1s/routing/pkg"
)

// Factor is the traversal cost of one edge profile for one travel
// mode: cost per meter plus the permitted direction. A zero value means
// the edge cannot be traversed at all.
type Factor struct {
	Value     float64
	Direction pkg.Direction
}

func (f Factor) IsTraversable() bool {
	return f.Value > 0 && f.Direction != pkg.NO_DIRECTION
}

// EdgeProfile is one distinct combination of routing-relevant tags. All
// edges sharing a combination share an edge-profile id.
type EdgeProfile struct {
	RoadClass pkg.RoadClass
	Oneway    pkg.Direction
	SpeedKmh  float64
}

// EdgeProfileTable interns edge profiles into dense ids.
type EdgeProfileTable struct {
	profiles []EdgeProfile
	index    map[EdgeProfile]uint16
}

func NewEdgeProfileTable() *EdgeProfileTable {
	return &EdgeProfileTable{
		profiles: make([]EdgeProfile, 0),
		index:    make(map[EdgeProfile]uint16),
	}
}

// Add interns a profile and returns its id.
func (t *EdgeProfileTable) Add(p EdgeProfile) uint16 {
	if id, ok := t.index[p]; ok {
		return id
	}
	id := uint16(len(t.profiles))
	t.profiles = append(t.profiles, p)
	t.index[p] = id
	return id
}

func (t *EdgeProfileTable) Get(id uint16) EdgeProfile {
	return t.profiles[id]
}

func (t *EdgeProfileTable) Count() int {
	return len(t.profiles)
}

// Profile maps edge profiles to traversal factors for one travel mode.
// Implementations must be pure: the engine caches their results.
type Profile interface {
	Name() string
	Factor(edgeProfile uint16) Factor
	CanStopOn(edgeProfile uint16) bool
}

const (
	kmhToSecPerMeter = 3.6
)

// speedFactor converts km/h into cost seconds per meter.
func speedFactor(speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return kmhToSecPerMeter / speedKmh
}

// Car travel mode: fastest-path weights from the edge speed, oneway
// respected, no stopping on motorways and trunks.
type Car struct {
	table *EdgeProfileTable
}

func NewCar(table *EdgeProfileTable) *Car {
	return &Car{table: table}
}

func (c *Car) Name() string {
	return "car"
}

func (c *Car) Factor(edgeProfile uint16) Factor {
	ep := c.table.Get(edgeProfile)
	switch ep.RoadClass {
	case pkg.PEDESTRIAN_WAY, pkg.CYCLEWAY, pkg.FOOTWAY, pkg.PATH:
		return Factor{}
	}
	speed := ep.SpeedKmh
	if speed <= 0 {
		speed = defaultSpeedKmh(ep.RoadClass)
	}
	return Factor{
		Value:     speedFactor(speed),
		Direction: ep.Oneway,
	}
}

func (c *Car) CanStopOn(edgeProfile uint16) bool {
	switch c.table.Get(edgeProfile).RoadClass {
	case pkg.MOTORWAY, pkg.MOTORWAY_LINK, pkg.TRUNK, pkg.TRUNK_LINK:
		return false
	}
	return true
}

// Bicycle travel mode: capped speed, no motorways or trunks, oneway
// respected.
type Bicycle struct {
	table *EdgeProfileTable
}

func NewBicycle(table *EdgeProfileTable) *Bicycle {
	return &Bicycle{table: table}
}

func (b *Bicycle) Name() string {
	return "bicycle"
}

const bicycleSpeedKmh = 15.0

func (b *Bicycle) Factor(edgeProfile uint16) Factor {
	ep := b.table.Get(edgeProfile)
	switch ep.RoadClass {
	case pkg.MOTORWAY, pkg.MOTORWAY_LINK, pkg.TRUNK, pkg.TRUNK_LINK:
		return Factor{}
	}
	return Factor{
		Value:     speedFactor(bicycleSpeedKmh),
		Direction: ep.Oneway,
	}
}

func (b *Bicycle) CanStopOn(edgeProfile uint16) bool {
	return b.Factor(edgeProfile).IsTraversable()
}

// Pedestrian travel mode: walking speed, oneway ignored.
type Pedestrian struct {
	table *EdgeProfileTable
}

func NewPedestrian(table *EdgeProfileTable) *Pedestrian {
	return &Pedestrian{table: table}
}

func (p *Pedestrian) Name() string {
	return "pedestrian"
}

const pedestrianSpeedKmh = 5.0

func (p *Pedestrian) Factor(edgeProfile uint16) Factor {
	ep := p.table.Get(edgeProfile)
	switch ep.RoadClass {
	case pkg.MOTORWAY, pkg.MOTORWAY_LINK, pkg.TRUNK, pkg.TRUNK_LINK:
		return Factor{}
	}
	return Factor{
		Value:     speedFactor(pedestrianSpeedKmh),
		Direction: pkg.BOTH_DIRECTIONS,
	}
}

func (p *Pedestrian) CanStopOn(edgeProfile uint16) bool {
	return p.Factor(edgeProfile).IsTraversable()
}

// Shortest weighs every traversable meter equally, so weights come out
// in meters. Oneway is still respected.
type Shortest struct {
	table *EdgeProfileTable
}

func NewShortest(table *EdgeProfileTable) *Shortest {
	return &Shortest{table: table}
}

func (s *Shortest) Name() string {
	return "shortest"
}

func (s *Shortest) Factor(edgeProfile uint16) Factor {
	ep := s.table.Get(edgeProfile)
	return Factor{
		Value:     1.0,
		Direction: ep.Oneway,
	}
}

func (s *Shortest) CanStopOn(edgeProfile uint16) bool {
	return true
}

func defaultSpeedKmh(rc pkg.RoadClass) float64 {
	switch rc {
	case pkg.MOTORWAY:
		return 100
	case pkg.MOTORWAY_LINK:
		return 60
	case pkg.TRUNK:
		return 85
	case pkg.TRUNK_LINK:
		return 50
	case pkg.PRIMARY:
		return 65
	case pkg.PRIMARY_LINK:
		return 40
	case pkg.SECONDARY:
		return 55
	case pkg.SECONDARY_LINK:
		return 35
	case pkg.TERTIARY:
		return 45
	case pkg.TERTIARY_LINK:
		return 30
	case pkg.RESIDENTIAL, pkg.UNCLASSIFIED, pkg.ROAD:
		return 30
	case pkg.LIVING_STREET:
		return 10
	case pkg.SERVICE, pkg.TRACK:
		return 20
	default:
		return 15
	}
}
