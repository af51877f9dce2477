package datastructure

import (
	"path/filepath"
	"testing"

	"github.com/F0rt1s/routing/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkRoundTrip(t *testing.T) {
	n := NewNetwork()
	a := n.AddVertex(52.1, 9.5)
	b := n.AddVertex(52.2, 9.6)
	c := n.AddVertex(52.3, 9.7)

	_, err := n.AddEdge(a, b, 1234.5, 1, 7, []geo.Coordinate{geo.NewCoordinate(52.15, 9.55)})
	require.NoError(t, err)
	_, err = n.AddEdge(b, c, 987.25, 2, 8, nil)
	require.NoError(t, err)
	n.Freeze()

	file := filepath.Join(t.TempDir(), "network.graph")
	require.NoError(t, n.WriteNetwork(file))

	loaded, err := ReadNetwork(file)
	require.NoError(t, err)

	require.Equal(t, n.VertexCount(), loaded.VertexCount())
	require.Equal(t, n.EdgeCount(), loaded.EdgeCount())
	assert.True(t, loaded.IsFrozen())

	for v := Index(0); v < Index(n.VertexCount()); v++ {
		wantLat, wantLon := n.GetVertexCoordinates(v)
		gotLat, gotLon := loaded.GetVertexCoordinates(v)
		assert.InDelta(t, wantLat, gotLat, 1e-6)
		assert.InDelta(t, wantLon, gotLon, 1e-6)
	}
	for e := Index(0); e < Index(n.EdgeCount()); e++ {
		want := n.GetEdge(e)
		got := loaded.GetEdge(e)
		assert.Equal(t, want.From, got.From)
		assert.Equal(t, want.To, got.To)
		assert.InDelta(t, want.Distance, got.Distance, 1e-2)
		assert.Equal(t, want.ProfileID, got.ProfileID)
		assert.Equal(t, want.MetaID, got.MetaID)
	}

	wantShape := n.ShapeOf(0, false)
	gotShape := loaded.ShapeOf(0, false)
	require.Len(t, gotShape, len(wantShape))
	for i := range wantShape {
		assert.InDelta(t, wantShape[i].Lat, gotShape[i].Lat, 1e-6)
		assert.InDelta(t, wantShape[i].Lon, gotShape[i].Lon, 1e-6)
	}
}

func TestRestrictionsRoundTrip(t *testing.T) {
	restrictions := map[string][][]Index{
		"car":     {{1, 2, 3}, {4, 5}},
		"bicycle": {{7, 8, 9, 10}},
	}

	file := filepath.Join(t.TempDir(), "restrictions.graph")
	require.NoError(t, WriteRestrictions(file, restrictions))

	loaded, err := ReadRestrictions(file)
	require.NoError(t, err)
	assert.Equal(t, restrictions, loaded)
}
