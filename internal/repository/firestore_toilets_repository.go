package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/repository"
)

const toiletsCollection = "toilets"

// firestoreToilet is the document shape in the toilets collection.
type firestoreToilet struct {
	Name        string    `firestore:"name"`
	Lat         float64   `firestore:"lat"`
	Lng         float64   `firestore:"lng"`
	Category    string    `firestore:"category"`
	Note        string    `firestore:"note"`
	Provenance  string    `firestore:"provenance"`
	Deleted     bool      `firestore:"deleted"`
	RatingMean  float64   `firestore:"rating_mean"`
	RatingCount int       `firestore:"rating_count"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func (d firestoreToilet) toToilet(id string) model.Toilet {
	t := model.Toilet{
		ID:          id,
		Name:        d.Name,
		Category:    d.Category,
		Note:        d.Note,
		Provenance:  d.Provenance,
		Deleted:     d.Deleted,
		RatingMean:  d.RatingMean,
		RatingCount: d.RatingCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	t.SetLatLng(model.LatLng{Lat: d.Lat, Lng: d.Lng})
	return t
}

// FirestoreToiletsRepository serves the point store contract from a plain
// Firestore collection, keeping the original Firebase deployment usable as
// a backend.
type FirestoreToiletsRepository struct {
	client *firestore.Client
}

func NewFirestoreToiletsRepository(client *firestore.Client) repository.ToiletsRepository {
	return &FirestoreToiletsRepository{
		client: client,
	}
}

// fsQuotaError maps gRPC ResourceExhausted to the distinguished quota
// failure so the coordinator can stale-serve.
func fsQuotaError(err error) error {
	if status.Code(err) == codes.ResourceExhausted {
		return fmt.Errorf("firestore throttled: %w", model.ErrQuotaExhausted)
	}
	return nil
}

func (r *FirestoreToiletsRepository) FetchInBounds(ctx context.Context, west, south, east, north float64) ([]model.Toilet, error) {
	// Firestore allows range filters on one field only, so query the
	// latitude band and filter longitude (and the deleted flag) client-side.
	iter := r.client.Collection(toiletsCollection).
		Where("lat", ">=", south).
		Where("lat", "<=", north).
		Documents(ctx)
	defer iter.Stop()

	var toilets []model.Toilet
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if quotaErr := fsQuotaError(err); quotaErr != nil {
				return nil, quotaErr
			}
			return nil, fmt.Errorf("toilets bounds query failed: %w", err)
		}

		var d firestoreToilet
		if err := doc.DataTo(&d); err != nil {
			continue // malformed document, drop it
		}
		if d.Deleted || d.Lng < west || d.Lng > east {
			continue
		}
		toilets = append(toilets, d.toToilet(doc.Ref.ID))
	}
	return keepUsable(toilets), nil
}

func (r *FirestoreToiletsRepository) FetchNear(ctx context.Context, lat, lng float64, radiusMeters int) ([]model.ToiletWithDistance, error) {
	box := radiusToBounds(lat, lng, radiusMeters)
	toilets, err := r.FetchInBounds(ctx, box.West, box.South, box.East, box.North)
	if err != nil {
		return nil, err
	}
	return annotateByDistance(toilets, lat, lng, radiusMeters), nil
}

func (r *FirestoreToiletsRepository) Insert(ctx context.Context, toilet *model.Toilet) (string, error) {
	if toilet.ID == "" {
		toilet.ID = uuid.New().String()
	}
	pos := toilet.ToLatLng()
	now := time.Now().UTC()
	if toilet.CreatedAt.IsZero() {
		toilet.CreatedAt = now
	}
	toilet.UpdatedAt = now

	doc := firestoreToilet{
		Name:        toilet.Name,
		Lat:         pos.Lat,
		Lng:         pos.Lng,
		Category:    toilet.Category,
		Note:        toilet.Note,
		Provenance:  toilet.Provenance,
		Deleted:     toilet.Deleted,
		RatingMean:  toilet.RatingMean,
		RatingCount: toilet.RatingCount,
		CreatedAt:   toilet.CreatedAt,
		UpdatedAt:   toilet.UpdatedAt,
	}

	if _, err := r.client.Collection(toiletsCollection).Doc(toilet.ID).Set(ctx, doc); err != nil {
		if quotaErr := fsQuotaError(err); quotaErr != nil {
			return "", quotaErr
		}
		return "", fmt.Errorf("toilet insert failed: %w", err)
	}
	return toilet.ID, nil
}

func (r *FirestoreToiletsRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(toiletsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "deleted", Value: true},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("toilet %s: %w", id, model.ErrNotFound)
		}
		if quotaErr := fsQuotaError(err); quotaErr != nil {
			return quotaErr
		}
		return fmt.Errorf("toilet delete failed: %w", err)
	}
	return nil
}
