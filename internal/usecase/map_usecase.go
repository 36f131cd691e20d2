package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/repository"
	"toaletna-api/internal/domain/service"
)

// MapUseCase is the single entry point the API layer talks to: viewport
// retrieval with caching and clustering, mutations with cache invalidation,
// and the diagnostics snapshot.
type MapUseCase interface {
	// GetRegion returns the points or clusters visible in the viewport.
	GetRegion(ctx context.Context, bounds model.BoundingBox, zoom int) (*model.RegionResult, error)

	// FindNearby returns records around a position, nearest first.
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error)

	// AddToilet validates and stores a user-submitted record, then
	// invalidates the covering cache entries.
	AddToilet(ctx context.Context, req *model.CreateToiletRequest) (*model.Toilet, error)

	// RemoveToilet deletes a record. Its position is not known at this
	// point, so the whole region cache is cleared as the safety fallback.
	RemoveToilet(ctx context.Context, id string) error

	// Stats snapshots cache and in-flight state for diagnosis.
	Stats() service.Stats
}

type mapUseCaseImpl struct {
	coordinator *service.FetchCoordinator
	clusterer   *service.Clusterer
	store       repository.ToiletsRepository
}

// NewMapUseCase wires the usecase.
func NewMapUseCase(coordinator *service.FetchCoordinator, clusterer *service.Clusterer, store repository.ToiletsRepository) MapUseCase {
	return &mapUseCaseImpl{
		coordinator: coordinator,
		clusterer:   clusterer,
		store:       store,
	}
}

func (u *mapUseCaseImpl) GetRegion(ctx context.Context, bounds model.BoundingBox, zoom int) (*model.RegionResult, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("viewport bounds w=%v s=%v e=%v n=%v: %w",
			bounds.West, bounds.South, bounds.East, bounds.North, model.ErrInvalidInput)
	}

	toilets, source, err := u.coordinator.GetRegion(ctx, bounds)
	if err != nil {
		return nil, err
	}

	return &model.RegionResult{
		Items:  u.clusterer.Cluster(toilets, zoom),
		Source: source,
		Zoom:   zoom,
	}, nil
}

func (u *mapUseCaseImpl) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error) {
	if !(model.LatLng{Lat: lat, Lng: lng}).Valid() {
		return nil, fmt.Errorf("coordinates lat=%v lng=%v: %w", lat, lng, model.ErrInvalidInput)
	}
	return u.store.FetchNear(ctx, lat, lng, radiusMeters)
}

func (u *mapUseCaseImpl) AddToilet(ctx context.Context, req *model.CreateToiletRequest) (*model.Toilet, error) {
	pos := model.LatLng{Lat: req.Lat, Lng: req.Lng}
	if !pos.Valid() {
		return nil, fmt.Errorf("coordinates lat=%v lng=%v: %w", req.Lat, req.Lng, model.ErrInvalidInput)
	}

	toilet := &model.Toilet{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Category:   req.Category,
		Note:       req.Note,
		Provenance: model.ProvenanceUser,
	}
	toilet.SetLatLng(pos)

	id, err := u.store.Insert(ctx, toilet)
	if err != nil {
		return nil, fmt.Errorf("failed to add toilet: %w", err)
	}
	toilet.ID = id

	u.coordinator.Invalidate(pos)
	log.Printf("toilet %s added at (%.5f, %.5f), covering cache entries invalidated", id, pos.Lat, pos.Lng)
	return toilet, nil
}

func (u *mapUseCaseImpl) RemoveToilet(ctx context.Context, id string) error {
	if err := u.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove toilet: %w", err)
	}

	// The affected region cannot be bounded without the record position.
	u.coordinator.InvalidateAll()
	log.Printf("toilet %s removed, region cache cleared", id)
	return nil
}

func (u *mapUseCaseImpl) Stats() service.Stats {
	return u.coordinator.Stats()
}
