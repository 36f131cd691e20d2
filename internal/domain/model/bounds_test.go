package model

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sofiaBox = BoundingBox{West: 23.0, South: 42.5, East: 24.0, North: 43.0}

func TestNewBoundingBoxValidation(t *testing.T) {
	_, err := NewBoundingBox(23.0, 42.5, 24.0, 43.0)
	require.NoError(t, err)

	// East west of west.
	_, err = NewBoundingBox(24.0, 42.5, 23.0, 43.0)
	assert.Error(t, err)

	// North south of south.
	_, err = NewBoundingBox(23.0, 43.0, 24.0, 42.5)
	assert.Error(t, err)

	// Out of WGS84 range.
	_, err = NewBoundingBox(23.0, 42.5, 200.0, 43.0)
	assert.Error(t, err)
}

func TestBoundRoundTrip(t *testing.T) {
	bound := sofiaBox.ToBound()
	assert.Equal(t, orb.Point{23.0, 42.5}, bound.Min)
	assert.Equal(t, orb.Point{24.0, 43.0}, bound.Max)
	assert.Equal(t, sofiaBox, FromBound(bound))
}

func TestContainsEdgesInclusive(t *testing.T) {
	assert.True(t, sofiaBox.Contains(LatLng{Lat: 42.7, Lng: 23.3}))
	assert.True(t, sofiaBox.Contains(LatLng{Lat: 42.5, Lng: 23.0}), "south-west corner is inside")
	assert.True(t, sofiaBox.Contains(LatLng{Lat: 43.0, Lng: 24.0}), "north-east corner is inside")
	assert.False(t, sofiaBox.Contains(LatLng{Lat: 43.0001, Lng: 23.3}))
	assert.False(t, sofiaBox.Contains(LatLng{Lat: 42.7, Lng: 22.9999}))
}

func TestCovers(t *testing.T) {
	contained := BoundingBox{West: 23.1, South: 42.6, East: 23.9, North: 42.9}
	assert.True(t, sofiaBox.Covers(contained))
	assert.False(t, contained.Covers(sofiaBox))

	// Equal bounds cover each other; a same-box request is a hit.
	assert.True(t, sofiaBox.Covers(sofiaBox))

	// One shared edge is still covered.
	flush := BoundingBox{West: 23.0, South: 42.5, East: 23.5, North: 42.8}
	assert.True(t, sofiaBox.Covers(flush))

	overhang := BoundingBox{West: 22.9, South: 42.6, East: 23.9, North: 42.9}
	assert.False(t, sofiaBox.Covers(overhang))
}

func TestIntersects(t *testing.T) {
	overlapping := BoundingBox{West: 23.5, South: 42.8, East: 24.5, North: 43.5}
	assert.True(t, sofiaBox.Intersects(overlapping))
	assert.True(t, overlapping.Intersects(sofiaBox))

	// Touching edges count as overlap.
	adjacent := BoundingBox{West: 24.0, South: 42.5, East: 25.0, North: 43.0}
	assert.True(t, sofiaBox.Intersects(adjacent))

	disjoint := BoundingBox{West: 26.0, South: 42.5, East: 27.0, North: 43.0}
	assert.False(t, sofiaBox.Intersects(disjoint))
}

func TestPad(t *testing.T) {
	padded := sofiaBox.Pad(0.1)
	assert.InDelta(t, 22.9, padded.West, 1e-9)
	assert.InDelta(t, 42.4, padded.South, 1e-9)
	assert.InDelta(t, 24.1, padded.East, 1e-9)
	assert.InDelta(t, 43.1, padded.North, 1e-9)
	assert.True(t, padded.Covers(sofiaBox))
}

func TestPadClampsToWorld(t *testing.T) {
	world := BoundingBox{West: -179.99, South: -89.99, East: 179.99, North: 89.99}
	padded := world.Pad(1.0)
	assert.Equal(t, -180.0, padded.West)
	assert.Equal(t, -90.0, padded.South)
	assert.Equal(t, 180.0, padded.East)
	assert.Equal(t, 90.0, padded.North)
}
