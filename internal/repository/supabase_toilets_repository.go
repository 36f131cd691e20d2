package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/repository"
	"toaletna-api/internal/infrastructure/database"
)

// toiletRow is the Supabase "toilets" table shape: position is stored as
// plain lat/lng columns so PostgREST range filters can express a bounding
// box without an RPC.
type toiletRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Category    string    `json:"category"`
	Note        string    `json:"note"`
	Provenance  string    `json:"provenance"`
	Deleted     bool      `json:"deleted"`
	RatingMean  float64   `json:"rating_mean"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r toiletRow) toToilet() model.Toilet {
	t := model.Toilet{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Note:        r.Note,
		Provenance:  r.Provenance,
		Deleted:     r.Deleted,
		RatingMean:  r.RatingMean,
		RatingCount: r.RatingCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	t.SetLatLng(model.LatLng{Lat: r.Lat, Lng: r.Lng})
	return t
}

func rowFromToilet(t *model.Toilet) toiletRow {
	pos := t.ToLatLng()
	return toiletRow{
		ID:          t.ID,
		Name:        t.Name,
		Lat:         pos.Lat,
		Lng:         pos.Lng,
		Category:    t.Category,
		Note:        t.Note,
		Provenance:  t.Provenance,
		Deleted:     t.Deleted,
		RatingMean:  t.RatingMean,
		RatingCount: t.RatingCount,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type SupabaseToiletsRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseToiletsRepository(client *database.SupabaseClient) repository.ToiletsRepository {
	return &SupabaseToiletsRepository{
		client: client,
	}
}

func (r *SupabaseToiletsRepository) FetchInBounds(ctx context.Context, west, south, east, north float64) ([]model.Toilet, error) {
	data, count, err := r.client.GetClient().From("toilets").
		Select("*", "exact", false).
		Gte("lat", formatCoord(south)).
		Lte("lat", formatCoord(north)).
		Gte("lng", formatCoord(west)).
		Lte("lng", formatCoord(east)).
		Eq("deleted", "false").
		Execute()
	if err != nil {
		if looksThrottled(err) {
			return nil, fmt.Errorf("toilets bounds query throttled: %w", model.ErrQuotaExhausted)
		}
		return nil, fmt.Errorf("failed to fetch toilets in bounds: %w", err)
	}
	_ = count

	var rows []toiletRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal toilets data: %w", err)
	}

	toilets := make([]model.Toilet, 0, len(rows))
	for _, row := range rows {
		toilets = append(toilets, row.toToilet())
	}
	return keepUsable(toilets), nil
}

func (r *SupabaseToiletsRepository) FetchNear(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error) {
	// PostgREST cannot express ST_DWithin, so fetch the enclosing box and
	// filter to the circle client-side.
	box := radiusToBounds(lat, lng, radiusMeters)
	toilets, err := r.FetchInBounds(ctx, box.West, box.South, box.East, box.North)
	if err != nil {
		return nil, err
	}
	return annotateByDistance(toilets, lat, lng, radiusMeters), nil
}

func (r *SupabaseToiletsRepository) Insert(ctx context.Context, toilet *model.Toilet) (string, error) {
	if toilet.ID == "" {
		toilet.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if toilet.CreatedAt.IsZero() {
		toilet.CreatedAt = now
	}
	toilet.UpdatedAt = now

	data, err := json.Marshal(rowFromToilet(toilet))
	if err != nil {
		return "", fmt.Errorf("failed to marshal toilet data: %w", err)
	}

	_, _, err = r.client.GetClient().From("toilets").Insert(string(data), false, "", "", "").Execute()
	if err != nil {
		if looksThrottled(err) {
			return "", fmt.Errorf("toilet insert throttled: %w", model.ErrQuotaExhausted)
		}
		return "", fmt.Errorf("failed to insert toilet: %w", err)
	}
	return toilet.ID, nil
}

func (r *SupabaseToiletsRepository) Delete(ctx context.Context, id string) error {
	// Soft delete: flip the flag so the record drops out of region results
	// but keeps its history.
	patch := fmt.Sprintf(`{"deleted": true, "updated_at": %s}`, strconv.Quote(time.Now().UTC().Format(time.RFC3339)))
	_, _, err := r.client.GetClient().From("toilets").Update(patch, "", "").Eq("id", id).Execute()
	if err != nil {
		if looksThrottled(err) {
			return fmt.Errorf("toilet delete throttled: %w", model.ErrQuotaExhausted)
		}
		return fmt.Errorf("failed to delete toilet %s: %w", id, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
