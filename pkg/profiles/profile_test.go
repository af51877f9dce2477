package profiles

import (
	"path/filepath"
	"testing"

	"github.com/F0rt1s/routing/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *EdgeProfileTable {
	t := NewEdgeProfileTable()
	t.Add(EdgeProfile{RoadClass: pkg.RESIDENTIAL, Oneway: pkg.BOTH_DIRECTIONS, SpeedKmh: 30})
	t.Add(EdgeProfile{RoadClass: pkg.MOTORWAY, Oneway: pkg.FORWARD_ONLY, SpeedKmh: 120})
	t.Add(EdgeProfile{RoadClass: pkg.FOOTWAY, Oneway: pkg.BOTH_DIRECTIONS, SpeedKmh: 0})
	return t
}

func TestEdgeProfileTableInterning(t *testing.T) {
	table := NewEdgeProfileTable()
	p := EdgeProfile{RoadClass: pkg.PRIMARY, Oneway: pkg.BOTH_DIRECTIONS, SpeedKmh: 50}

	id1 := table.Add(p)
	id2 := table.Add(p)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, table.Count())
	assert.Equal(t, p, table.Get(id1))

	other := p
	other.SpeedKmh = 60
	id3 := table.Add(other)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, table.Count())
}

func TestCarFactors(t *testing.T) {
	table := testTable()
	car := NewCar(table)

	residential := car.Factor(0)
	assert.True(t, residential.IsTraversable())
	assert.Equal(t, pkg.BOTH_DIRECTIONS, residential.Direction)
	// 30 km/h -> 0.12 s/m
	assert.InDelta(t, 0.12, residential.Value, 1e-9)

	motorway := car.Factor(1)
	assert.True(t, motorway.IsTraversable())
	assert.Equal(t, pkg.FORWARD_ONLY, motorway.Direction)
	assert.False(t, car.CanStopOn(1))
	assert.True(t, car.CanStopOn(0))

	footway := car.Factor(2)
	assert.False(t, footway.IsTraversable())
}

func TestPedestrianIgnoresOneway(t *testing.T) {
	table := testTable()
	ped := NewPedestrian(table)

	residential := ped.Factor(0)
	assert.Equal(t, pkg.BOTH_DIRECTIONS, residential.Direction)
	assert.False(t, ped.Factor(1).IsTraversable(), "pedestrians never walk on motorways")
	assert.True(t, ped.Factor(2).IsTraversable())
}

func TestFactorCache(t *testing.T) {
	table := testTable()
	car := NewCar(table)
	ped := NewPedestrian(table)

	cache := NewFactorCache(table, car, ped)

	factors, ok := cache.Factors("car")
	require.True(t, ok)
	require.Len(t, factors, table.Count())
	for id := 0; id < table.Count(); id++ {
		assert.Equal(t, car.Factor(uint16(id)), factors[id])
	}

	canStop, ok := cache.CanStop("car")
	require.True(t, ok)
	assert.False(t, canStop[1])

	_, ok = cache.Factors("bicycle")
	assert.False(t, ok)

	// uncached profiles are computed on the fly
	bike := NewBicycle(table)
	onTheFly := cache.FactorsFor(table, bike)
	require.Len(t, onTheFly, table.Count())
	assert.Equal(t, bike.Factor(0), onTheFly[0])
}

func TestEdgeProfileTableRoundTrip(t *testing.T) {
	table := testTable()

	file := filepath.Join(t.TempDir(), "edge_profiles.graph")
	require.NoError(t, table.Write(file))

	loaded, err := ReadEdgeProfileTable(file)
	require.NoError(t, err)
	require.Equal(t, table.Count(), loaded.Count())
	for id := 0; id < table.Count(); id++ {
		assert.Equal(t, table.Get(uint16(id)), loaded.Get(uint16(id)))
	}
}
