package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toaletna-api/internal/domain/geo"
	"toaletna-api/internal/domain/model"
)

func mkToilet(id string, lat, lng float64) model.Toilet {
	t := model.Toilet{ID: id, Name: "WC " + id, Provenance: model.ProvenanceImported}
	t.SetLatLng(model.LatLng{Lat: lat, Lng: lng})
	return t
}

func TestRadiusToBoundsEnclosesCircle(t *testing.T) {
	const lat, lng = 42.7, 23.3
	const radius = 1000

	box := radiusToBounds(lat, lng, radius)
	require.True(t, box.Valid())
	assert.True(t, box.Contains(model.LatLng{Lat: lat, Lng: lng}))

	// The circle extremes in the four cardinal directions sit strictly
	// inside thanks to the overscan margin.
	dLat := geo.MetersToDegreesLat(radius)
	dLng := geo.MetersToDegreesLng(radius, lat)
	for _, pos := range []model.LatLng{
		{Lat: lat + dLat, Lng: lng},
		{Lat: lat - dLat, Lng: lng},
		{Lat: lat, Lng: lng + dLng},
		{Lat: lat, Lng: lng - dLng},
	} {
		assert.True(t, box.Contains(pos), "circle extreme %v must be inside the prefilter box", pos)
	}
	assert.Less(t, box.West, lng-dLng)
	assert.Greater(t, box.East, lng+dLng)
}

func TestRadiusToBoundsClampsAtPole(t *testing.T) {
	box := radiusToBounds(89.99, 0, 5000)
	assert.True(t, box.Valid())
	assert.LessOrEqual(t, box.North, 90.0)
}

func TestAnnotateByDistance(t *testing.T) {
	toilets := []model.Toilet{
		mkToilet("far", 42.709, 23.3),  // ~1km north
		mkToilet("near", 42.701, 23.3), // ~110m north
		mkToilet("out", 42.75, 23.3),   // ~5.5km north
	}

	got := annotateByDistance(toilets, 42.7, 23.3, 2000)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "far", got[1].ID)
	assert.Less(t, got[0].DistanceMeters, got[1].DistanceMeters)
}

func TestKeepUsable(t *testing.T) {
	deleted := mkToilet("deleted", 42.7, 23.3)
	deleted.Deleted = true
	noLocation := model.Toilet{ID: "nowhere"}

	got := keepUsable([]model.Toilet{mkToilet("ok", 42.7, 23.3), deleted, noLocation})
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestLooksThrottled(t *testing.T) {
	assert.True(t, looksThrottled(fmt.Errorf("unexpected status 429")))
	assert.True(t, looksThrottled(fmt.Errorf("Too Many Requests")))
	assert.True(t, looksThrottled(fmt.Errorf("project quota exceeded")))
	assert.False(t, looksThrottled(fmt.Errorf("connection refused")))
	assert.False(t, looksThrottled(nil))
}
