package repository

import (
	"context"

	"toaletna-api/internal/domain/model"
)

// ToiletsRepository is the narrow contract to the external point store.
// Implementations exclude soft-deleted records from every query and drop
// malformed rows instead of failing the batch. A throttled backend is
// surfaced as model.ErrQuotaExhausted so the retrieval core can fall back
// to stale cache; any other error is a generic I/O failure.
type ToiletsRepository interface {
	// FetchInBounds returns the records inside the box. It may over-return
	// slightly beyond the bounds; callers filter to exact bounds if needed.
	FetchInBounds(ctx context.Context, west, south, east, north float64) ([]model.Toilet, error)

	// FetchNear returns records within radiusMeters of the origin, nearest
	// first, annotated with their distance.
	FetchNear(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error)

	// Insert stores a new record and returns its id.
	Insert(ctx context.Context, toilet *model.Toilet) (string, error)

	// Delete soft-deletes the record where the backend supports it.
	Delete(ctx context.Context, id string) error
}
