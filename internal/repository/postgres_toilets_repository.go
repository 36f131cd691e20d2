package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/repository"
	"toaletna-api/internal/infrastructure/database"
)

type PostgresToiletsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresToiletsRepository(client *database.PostgreSQLClient) repository.ToiletsRepository {
	return &PostgresToiletsRepository{
		client: client,
	}
}

// toiletResult receives rows from the PostGIS queries.
type toiletResult struct {
	ID             string
	Name           string
	Location       string
	Category       string
	Note           sql.NullString
	Provenance     string
	Deleted        bool
	RatingMean     float64
	RatingCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DistanceMeters float64
}

func (tr *toiletResult) toToilet() (*model.Toilet, error) {
	var location model.Geometry
	if err := json.Unmarshal([]byte(tr.Location), &location); err != nil {
		return nil, fmt.Errorf("failed to parse location GeoJSON: %w", err)
	}

	toilet := &model.Toilet{
		ID:          tr.ID,
		Name:        tr.Name,
		Location:    &location,
		Category:    tr.Category,
		Provenance:  tr.Provenance,
		Deleted:     tr.Deleted,
		RatingMean:  tr.RatingMean,
		RatingCount: tr.RatingCount,
		CreatedAt:   tr.CreatedAt,
		UpdatedAt:   tr.UpdatedAt,
	}
	if tr.Note.Valid {
		toilet.Note = tr.Note.String
	}
	return toilet, nil
}

// pgQuotaError maps Postgres resource/limit SQLSTATEs to the distinguished
// quota failure so the coordinator can stale-serve.
func pgQuotaError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "53300", "53400", "57014": // too_many_connections, configuration_limit_exceeded, query_canceled
			return fmt.Errorf("postgres throttled (%s): %w", pqErr.Code, model.ErrQuotaExhausted)
		}
	}
	return nil
}

const toiletColumns = `
	t.id, t.name,
	ST_AsGeoJSON(t.location)::jsonb as location,
	t.category, t.note, t.provenance, t.deleted,
	t.rating_mean, t.rating_count, t.created_at, t.updated_at`

func (r *PostgresToiletsRepository) FetchInBounds(ctx context.Context, west, south, east, north float64) ([]model.Toilet, error) {
	query := `
		SELECT ` + toiletColumns + `
		FROM toilets t
		WHERE t.deleted = FALSE
		  AND t.location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`

	rows, err := r.client.DB.QueryContext(ctx, query, west, south, east, north)
	if err != nil {
		if quotaErr := pgQuotaError(err); quotaErr != nil {
			return nil, quotaErr
		}
		return nil, fmt.Errorf("toilets bounds query failed: %w", err)
	}
	defer rows.Close()

	return r.scanToilets(rows)
}

func (r *PostgresToiletsRepository) FetchNear(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error) {
	query := `
		SELECT ` + toiletColumns + `,
			ST_Distance(
				ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
				t.location::geography
			) as distance_meters
		FROM toilets t
		WHERE t.deleted = FALSE
		  AND ST_DWithin(
			ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
			t.location::geography,
			$3
		)
		ORDER BY distance_meters
		LIMIT 100
	`

	rows, err := r.client.DB.QueryContext(ctx, query, lat, lng, radiusMeters)
	if err != nil {
		if quotaErr := pgQuotaError(err); quotaErr != nil {
			return nil, quotaErr
		}
		return nil, fmt.Errorf("nearby toilets query failed: %w", err)
	}
	defer rows.Close()

	var result []model.ToiletWithDistance
	for rows.Next() {
		var tr toiletResult
		err := rows.Scan(&tr.ID, &tr.Name, &tr.Location, &tr.Category, &tr.Note,
			&tr.Provenance, &tr.Deleted, &tr.RatingMean, &tr.RatingCount,
			&tr.CreatedAt, &tr.UpdatedAt, &tr.DistanceMeters)
		if err != nil {
			return nil, fmt.Errorf("toilet row scan failed: %w", err)
		}

		toilet, err := tr.toToilet()
		if err != nil || !toilet.HasValidLocation() {
			continue // malformed row, drop it
		}
		result = append(result, model.ToiletWithDistance{
			Toilet:         *toilet,
			DistanceMeters: tr.DistanceMeters,
		})
	}
	return result, rows.Err()
}

func (r *PostgresToiletsRepository) scanToilets(rows *sql.Rows) ([]model.Toilet, error) {
	var toilets []model.Toilet
	for rows.Next() {
		var tr toiletResult
		err := rows.Scan(&tr.ID, &tr.Name, &tr.Location, &tr.Category, &tr.Note,
			&tr.Provenance, &tr.Deleted, &tr.RatingMean, &tr.RatingCount,
			&tr.CreatedAt, &tr.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("toilet row scan failed: %w", err)
		}

		toilet, err := tr.toToilet()
		if err != nil || !toilet.HasValidLocation() {
			continue // malformed row, drop it
		}
		toilets = append(toilets, *toilet)
	}
	return toilets, rows.Err()
}

func (r *PostgresToiletsRepository) Insert(ctx context.Context, toilet *model.Toilet) (string, error) {
	if toilet.ID == "" {
		toilet.ID = uuid.New().String()
	}
	pos := toilet.ToLatLng()
	now := time.Now().UTC()
	if toilet.CreatedAt.IsZero() {
		toilet.CreatedAt = now
	}
	toilet.UpdatedAt = now

	query := `
		INSERT INTO toilets (id, name, location, category, note, provenance,
			deleted, rating_mean, rating_count, created_at, updated_at)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326), $5, $6, $7,
			FALSE, $8, $9, $10, $11)
	`
	_, err := r.client.DB.ExecContext(ctx, query,
		toilet.ID, toilet.Name, pos.Lng, pos.Lat, toilet.Category, toilet.Note,
		toilet.Provenance, toilet.RatingMean, toilet.RatingCount,
		toilet.CreatedAt, toilet.UpdatedAt)
	if err != nil {
		if quotaErr := pgQuotaError(err); quotaErr != nil {
			return "", quotaErr
		}
		return "", fmt.Errorf("toilet insert failed: %w", err)
	}
	return toilet.ID, nil
}

func (r *PostgresToiletsRepository) Delete(ctx context.Context, id string) error {
	result, err := r.client.DB.ExecContext(ctx,
		`UPDATE toilets SET deleted = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		if quotaErr := pgQuotaError(err); quotaErr != nil {
			return quotaErr
		}
		return fmt.Errorf("toilet delete failed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("toilet %s: %w", id, model.ErrNotFound)
	}
	return nil
}
