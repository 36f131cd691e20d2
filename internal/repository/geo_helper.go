package repository

import (
	"sort"
	"strings"

	"toaletna-api/internal/domain/geo"
	"toaletna-api/internal/domain/model"
)

// radiusToBounds converts a point-plus-radius query into the bounding box
// enclosing the full circle, for backends that only filter on ranges.
func radiusToBounds(lat, lng float64, radiusMeters int) model.BoundingBox {
	r := float64(radiusMeters)
	dLat := geo.MetersToDegreesLat(r)
	box := model.BoundingBox{
		West:  lng - geo.MetersToDegreesLng(r, lat),
		South: lat - dLat,
		East:  lng + geo.MetersToDegreesLng(r, lat),
		North: lat + dLat,
	}
	// The lng conversion uses cos at the center latitude, so a point inside
	// the radius near a corner can fall just outside the raw box. Overscan
	// slightly; the haversine filter trims the excess.
	return box.Pad(dLat * 0.05)
}

// annotateByDistance filters records to the radius, annotates each with its
// haversine distance from the origin, and sorts nearest first.
func annotateByDistance(toilets []model.Toilet, lat, lng float64, radiusMeters int) []model.ToiletWithDistance {
	origin := model.LatLng{Lat: lat, Lng: lng}
	result := make([]model.ToiletWithDistance, 0, len(toilets))
	for _, t := range toilets {
		d := geo.HaversineMeters(origin, t.ToLatLng())
		if d > float64(radiusMeters) {
			continue
		}
		result = append(result, model.ToiletWithDistance{Toilet: t, DistanceMeters: d})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	return result
}

// keepUsable drops soft-deleted and malformed rows from a fetched batch.
// A bad row never fails the whole fetch.
func keepUsable(toilets []model.Toilet) []model.Toilet {
	kept := make([]model.Toilet, 0, len(toilets))
	for _, t := range toilets {
		if t.Deleted || !t.HasValidLocation() {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// looksThrottled sniffs backend error text for throttling signals.
// PostgREST does not expose a structured quota error, so string matching is
// the only handle available.
func looksThrottled(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}
