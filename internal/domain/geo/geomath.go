package geo

import (
	"math"

	"toaletna-api/internal/domain/model"
)

const (
	earthRadiusMeters = 6371000.0

	// MetersPerDegreeLat is the near-constant length of one degree of
	// latitude. Longitude degrees shrink with cos(lat).
	MetersPerDegreeLat = 111320.0

	tileSize = 256.0
)

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b model.LatLng) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MetersToDegreesLat converts a north-south distance to degrees of latitude.
func MetersToDegreesLat(meters float64) float64 {
	return meters / MetersPerDegreeLat
}

// MetersToDegreesLng converts an east-west distance to degrees of longitude
// at the given latitude.
func MetersToDegreesLng(meters, lat float64) float64 {
	scale := math.Cos(lat * math.Pi / 180)
	if scale < 0.01 {
		scale = 0.01 // avoid blow-up near the poles
	}
	return meters / (MetersPerDegreeLat * scale)
}

// worldSize is the pixel width of the whole world at a zoom level.
func worldSize(zoom int) float64 {
	return tileSize * math.Exp2(float64(zoom))
}

// ProjectToPixels maps a WGS84 position to Web-Mercator pixel coordinates
// at the given zoom level. Used to bucket points into screen-space grid
// cells for clustering.
func ProjectToPixels(pos model.LatLng, zoom int) (x, y float64) {
	size := worldSize(zoom)
	x = (pos.Lng + 180) / 360 * size

	sinLat := math.Sin(pos.Lat * math.Pi / 180)
	// Clamp to the Mercator valid range; poles project to infinity.
	if sinLat > 0.9999 {
		sinLat = 0.9999
	}
	if sinLat < -0.9999 {
		sinLat = -0.9999
	}
	y = (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * size
	return x, y
}
