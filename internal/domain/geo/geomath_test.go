package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"toaletna-api/internal/domain/model"
)

func TestHaversineMeters(t *testing.T) {
	sofia := model.LatLng{Lat: 42.6977, Lng: 23.3219}
	plovdiv := model.LatLng{Lat: 42.1354, Lng: 24.7453}

	// Sofia to Plovdiv is about 133 km as the crow flies.
	d := HaversineMeters(sofia, plovdiv)
	assert.InDelta(t, 133000, d, 3000)

	assert.Zero(t, HaversineMeters(sofia, sofia))

	// Symmetry.
	assert.InDelta(t, d, HaversineMeters(plovdiv, sofia), 0.001)
}

func TestMetersToDegrees(t *testing.T) {
	// One degree of latitude is ~111 km everywhere.
	assert.InDelta(t, 1.0, MetersToDegreesLat(111320), 0.001)

	// Longitude degrees shrink with latitude.
	atEquator := MetersToDegreesLng(1000, 0)
	atSofia := MetersToDegreesLng(1000, 42.7)
	assert.Greater(t, atSofia, atEquator)
}

func TestProjectToPixels(t *testing.T) {
	sofia := model.LatLng{Lat: 42.6977, Lng: 23.3219}
	varna := model.LatLng{Lat: 43.2141, Lng: 27.9147}

	sx, sy := ProjectToPixels(sofia, 10)
	vx, vy := ProjectToPixels(varna, 10)

	// Varna is east and slightly north of Sofia; pixel y grows southward.
	assert.Greater(t, vx, sx)
	assert.Less(t, vy, sy)

	// Doubling the zoom level doubles pixel coordinates.
	sx11, sy11 := ProjectToPixels(sofia, 11)
	assert.InDelta(t, sx*2, sx11, 0.001)
	assert.InDelta(t, sy*2, sy11, 0.001)
}
