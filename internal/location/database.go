package location

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool the repository reads through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DatabaseRepository reads locations from Postgres.
type DatabaseRepository struct {
	db    Querier
	parse parser
}

// NewDatabaseRepository creates a repository reading through db. drops may
// be nil.
func NewDatabaseRepository(db Querier, drops DropRecorder) *DatabaseRepository {
	return &DatabaseRepository{db: db, parse: parser{drops: drops, now: time.Now}}
}

const toiletSelect = `
	SELECT
		t.id,
		t.slug,
		t.name,
		d.name AS district,
		t.address,
		t.lat,
		t.lng,
		t.access_notes,
		t.avg_rating AS rating,
		t.review_count,
		string_agg(tg.name, '|' ORDER BY tg.name) AS tags,
		(SELECT p.url FROM toilet_photos p
		 WHERE p.toilet_id = t.id AND p.status = 'approved'
		 ORDER BY p.created_at LIMIT 1) AS photo_url
	FROM toilets t
	JOIN districts d ON d.id = t.district_id
	LEFT JOIN toilet_tags tt ON tt.toilet_id = t.id
	LEFT JOIN tags tg ON tg.id = tt.tag_id
	WHERE t.status = 'approved'`

const toiletGroup = `
	GROUP BY t.id, d.name`

func (r *DatabaseRepository) query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out, nil
}

// Districts returns all district names in alphabetical order.
func (r *DatabaseRepository) Districts(ctx context.Context) ([]string, error) {
	rows, err := r.query(ctx, `SELECT name FROM districts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing districts: %w", err)
	}
	return r.parse.districts(rows), nil
}

// Toilets lists approved toilets, newest first.
func (r *DatabaseRepository) Toilets(ctx context.Context, f ToiletFilter) ([]Toilet, error) {
	var (
		rows []Row
		err  error
	)
	if f.District != "" {
		rows, err = r.query(ctx,
			toiletSelect+` AND (d.name = $1 OR d.slug = $2)`+toiletGroup+`
			ORDER BY t.created_at DESC`,
			f.District, Slugify(f.District))
	} else {
		rows, err = r.query(ctx, toiletSelect+toiletGroup+`
			ORDER BY t.created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing toilets: %w", err)
	}
	return r.parse.toilets(rows), nil
}

// TopRated lists approved toilets by rating, breaking ties on review count.
func (r *DatabaseRepository) TopRated(ctx context.Context, limit int) ([]Toilet, error) {
	if limit <= 0 {
		limit = DefaultTopRatedLimit
	}
	rows, err := r.query(ctx, toiletSelect+toiletGroup+`
		ORDER BY t.avg_rating DESC, t.review_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top rated toilets: %w", err)
	}
	return r.parse.toilets(rows), nil
}

// ToiletByID returns the approved toilet with the given id or slug.
func (r *DatabaseRepository) ToiletByID(ctx context.Context, idOrSlug string) (*Toilet, error) {
	rows, err := r.query(ctx, toiletSelect+` AND (t.id = $1 OR t.slug = $1)`+toiletGroup+`
		LIMIT 1`, idOrSlug)
	if err != nil {
		return nil, fmt.Errorf("getting toilet: %w", err)
	}
	toilets := r.parse.toilets(rows)
	if len(toilets) == 0 {
		return nil, ErrNotFound
	}
	return &toilets[0], nil
}

// Nearby lists other approved toilets closest to t.
func (r *DatabaseRepository) Nearby(ctx context.Context, t Toilet, limit int) ([]Toilet, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	rows, err := r.query(ctx, toiletSelect+` AND t.id <> $1`+toiletGroup+`
		ORDER BY ((t.lat - $2) * (t.lat - $2) + (t.lng - $3) * (t.lng - $3)) ASC
		LIMIT $4`, t.ID, t.Lat, t.Lng, limit)
	if err != nil {
		return nil, fmt.Errorf("listing nearby toilets: %w", err)
	}
	return r.parse.toilets(rows), nil
}

// ReviewsForToilet returns the newest approved reviews of a toilet.
func (r *DatabaseRepository) ReviewsForToilet(ctx context.Context, toiletID string) ([]Review, error) {
	rows, err := r.query(ctx, `
		SELECT
			r.id,
			r.rating,
			r.body,
			r.created_at,
			u.name AS user_name,
			u.email AS user_email
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.toilet_id = $1 AND r.status = 'approved'
		ORDER BY r.created_at DESC
		LIMIT $2`, toiletID, ReviewLimit)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return r.parse.reviews(rows), nil
}

// PendingLocations returns the newest submissions awaiting a decision.
func (r *DatabaseRepository) PendingLocations(ctx context.Context) ([]PendingLocation, error) {
	rows, err := r.query(ctx, `
		SELECT
			s.id,
			s.name,
			d.name AS district,
			s.access_notes AS note,
			COALESCE(NULLIF(u.name, ''), u.email) AS submitted_by,
			(SELECT COUNT(*) FROM toilet_photos p WHERE p.toilet_id = s.resolved_toilet_id) AS photos
		FROM toilet_submissions s
		JOIN districts d ON d.id = s.district_id
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.status = 'pending'
		ORDER BY s.created_at DESC
		LIMIT $1`, PendingLimit)
	if err != nil {
		return nil, fmt.Errorf("listing pending locations: %w", err)
	}
	return r.parse.pendingLocations(rows), nil
}

// PendingReviews returns the newest reviews awaiting a decision.
func (r *DatabaseRepository) PendingReviews(ctx context.Context) ([]PendingReview, error) {
	rows, err := r.query(ctx, `
		SELECT
			r.id,
			t.name AS location,
			r.rating,
			r.body,
			COALESCE(NULLIF(u.name, ''), u.email) AS submitted_by,
			(SELECT COUNT(*) FROM review_photos rp WHERE rp.review_id = r.id) AS photos
		FROM reviews r
		JOIN toilets t ON t.id = r.toilet_id
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.status = 'pending'
		ORDER BY r.created_at DESC
		LIMIT $1`, PendingLimit)
	if err != nil {
		return nil, fmt.Errorf("listing pending reviews: %w", err)
	}
	return r.parse.pendingReviews(rows), nil
}
