package model

import "time"

// LatLng is the basic latitude/longitude pair used across the map layer.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are inside the WGS84 ranges.
func (l LatLng) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Geometry mirrors the PostGIS GEOMETRY column as GeoJSON.
// Coordinates are [longitude, latitude].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Provenance values for Toilet records.
const (
	ProvenanceImported = "imported"
	ProvenanceUser     = "user"
)

// Toilet is a single public-toilet point record.
type Toilet struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Location    *Geometry `json:"location" db:"location"`
	Category    string    `json:"category" db:"category"`
	Note        string    `json:"note,omitempty" db:"note"`
	Provenance  string    `json:"provenance" db:"provenance"`
	Deleted     bool      `json:"deleted" db:"deleted"`
	RatingMean  float64   `json:"rating_mean" db:"rating_mean"`
	RatingCount int       `json:"rating_count" db:"rating_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ToLatLng extracts the record position from the GeoJSON location.
func (t *Toilet) ToLatLng() LatLng {
	if t.Location != nil && len(t.Location.Coordinates) >= 2 {
		return LatLng{
			Lat: t.Location.Coordinates[1],
			Lng: t.Location.Coordinates[0],
		}
	}
	return LatLng{}
}

// HasValidLocation reports whether the record carries usable coordinates.
// Records failing this check are dropped from region results, never an error.
func (t *Toilet) HasValidLocation() bool {
	if t.Location == nil || len(t.Location.Coordinates) < 2 {
		return false
	}
	return t.ToLatLng().Valid()
}

// SetLatLng replaces the record position.
func (t *Toilet) SetLatLng(pos LatLng) {
	t.Location = &Geometry{
		Type:        "Point",
		Coordinates: []float64{pos.Lng, pos.Lat},
	}
}

// ToiletWithDistance is a Toilet annotated with the distance from a
// FetchNear query origin.
type ToiletWithDistance struct {
	Toilet
	DistanceMeters float64 `json:"distance_meters" db:"distance_meters"`
}

// CreateToiletRequest is the payload for POST /api/toilets.
type CreateToiletRequest struct {
	Name     string  `json:"name" binding:"required"`
	Lat      float64 `json:"lat" binding:"required"`
	Lng      float64 `json:"lng" binding:"required"`
	Category string  `json:"category"`
	Note     string  `json:"note"`
}
