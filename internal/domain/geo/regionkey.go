package geo

import (
	"fmt"
	"math"

	"toaletna-api/internal/domain/model"
)

// RegionStepDegrees is the quantization grid step for region keys.
// 0.05 degrees is roughly 4-5 km at Bulgarian latitudes: coarse enough that
// nearby viewports collapse to the same key, fine enough that the snapped
// coverage does not wildly exceed the request.
const RegionStepDegrees = 0.05

// SnapBounds expands a viewport outward to the quantization grid. Every
// viewport that snaps to the same box shares one region key, and fetching
// the snapped box instead of the raw viewport gives the cache entry coverage
// for all of them.
func SnapBounds(b model.BoundingBox) model.BoundingBox {
	snapped := model.BoundingBox{
		West:  math.Floor(b.West/RegionStepDegrees) * RegionStepDegrees,
		South: math.Floor(b.South/RegionStepDegrees) * RegionStepDegrees,
		East:  math.Ceil(b.East/RegionStepDegrees) * RegionStepDegrees,
		North: math.Ceil(b.North/RegionStepDegrees) * RegionStepDegrees,
	}
	if snapped.South < -90 {
		snapped.South = -90
	}
	if snapped.North > 90 {
		snapped.North = 90
	}
	if snapped.West < -180 {
		snapped.West = -180
	}
	if snapped.East > 180 {
		snapped.East = 180
	}
	return snapped
}

// RegionKey quantizes a viewport into a stable cache/dedup key.
// Deterministic, no error conditions.
func RegionKey(b model.BoundingBox) string {
	s := SnapBounds(b)
	return fmt.Sprintf("r:%.2f:%.2f:%.2f:%.2f", s.West, s.South, s.East, s.North)
}
