package location

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/isquat/isquat/internal/geo"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotPending       = errors.New("not pending")
	ErrDistrictNotFound = errors.New("district not found")
)

// Default limits.
const (
	DefaultTopRatedLimit = 10
	DefaultNearbyLimit   = 3
	DefaultNearestLimit  = 5
	ReviewLimit          = 20
	PendingLimit         = 20
)

// Repository is the read side of the location store. Public reads only ever
// return approved toilets and approved reviews.
type Repository interface {
	Districts(ctx context.Context) ([]string, error)
	Toilets(ctx context.Context, f ToiletFilter) ([]Toilet, error)
	TopRated(ctx context.Context, limit int) ([]Toilet, error)
	// ToiletByID looks a toilet up by id or slug and returns ErrNotFound
	// when there is no approved match.
	ToiletByID(ctx context.Context, idOrSlug string) (*Toilet, error)
	Nearby(ctx context.Context, t Toilet, limit int) ([]Toilet, error)
	ReviewsForToilet(ctx context.Context, toiletID string) ([]Review, error)
	PendingLocations(ctx context.Context) ([]PendingLocation, error)
	PendingReviews(ctx context.Context) ([]PendingReview, error)
}

// DropRecorder is notified whenever a malformed row is discarded.
type DropRecorder interface {
	RowDropped(entity, reason string)
}

// NearestTo returns up to limit approved toilets ordered by great-circle
// distance from p, each labelled with its distance from p.
func NearestTo(ctx context.Context, repo Repository, p geo.Point, limit int) ([]NearestToilet, error) {
	if limit <= 0 {
		limit = DefaultNearestLimit
	}
	toilets, err := repo.Toilets(ctx, ToiletFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing toilets: %w", err)
	}

	out := make([]NearestToilet, len(toilets))
	for i, t := range toilets {
		km := p.DistanceTo(t.Point())
		t.Distance = geo.FormatDistance(km)
		out[i] = NearestToilet{Toilet: t, DistanceKm: km}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
