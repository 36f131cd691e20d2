package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// BoundingBox is a map viewport in WGS84 degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// NewBoundingBox builds a box and validates edge ordering and ranges.
func NewBoundingBox(west, south, east, north float64) (BoundingBox, error) {
	b := BoundingBox{West: west, South: south, East: east, North: north}
	if !b.Valid() {
		return BoundingBox{}, fmt.Errorf("invalid bounding box w=%v s=%v e=%v n=%v", west, south, east, north)
	}
	return b, nil
}

// Valid reports whether the box is well-ordered and inside WGS84 ranges.
func (b BoundingBox) Valid() bool {
	if b.South > b.North || b.West > b.East {
		return false
	}
	return LatLng{Lat: b.South, Lng: b.West}.Valid() && LatLng{Lat: b.North, Lng: b.East}.Valid()
}

// ToBound converts to an orb.Bound for geometry operations.
func (b BoundingBox) ToBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// FromBound converts back from an orb.Bound.
func FromBound(bound orb.Bound) BoundingBox {
	return BoundingBox{
		West:  bound.Min.Lon(),
		South: bound.Min.Lat(),
		East:  bound.Max.Lon(),
		North: bound.Max.Lat(),
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(pos LatLng) bool {
	return b.ToBound().Contains(orb.Point{pos.Lng, pos.Lat})
}

// Covers reports whether this box fully contains other, edges included.
// A request whose bounds equal the covered bounds is a cache hit.
func (b BoundingBox) Covers(other BoundingBox) bool {
	outer := b.ToBound()
	inner := other.ToBound()
	return outer.Contains(inner.Min) && outer.Contains(inner.Max)
}

// Intersects reports whether the two boxes overlap at all.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.ToBound().Intersects(other.ToBound())
}

// Pad grows the box by the given margin in degrees on every side,
// clamped to WGS84 ranges.
func (b BoundingBox) Pad(degrees float64) BoundingBox {
	padded := FromBound(b.ToBound().Pad(degrees))
	if padded.South < -90 {
		padded.South = -90
	}
	if padded.North > 90 {
		padded.North = 90
	}
	if padded.West < -180 {
		padded.West = -180
	}
	if padded.East > 180 {
		padded.East = 180
	}
	return padded
}
