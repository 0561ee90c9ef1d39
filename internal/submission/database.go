package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/isquat/isquat/internal/location"
)

// DB is the subset of pgxpool.Pool the writer needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DatabaseWriter persists submissions to Postgres.
type DatabaseWriter struct {
	db DB
}

// NewDatabaseWriter creates a DatabaseWriter.
func NewDatabaseWriter(db DB) *DatabaseWriter {
	return &DatabaseWriter{db: db}
}

// DistrictID resolves a district by exact name or slug.
func (w *DatabaseWriter) DistrictID(ctx context.Context, name, slug string) (string, error) {
	var id string
	err := w.db.QueryRow(ctx,
		`SELECT id FROM districts WHERE name = $1 OR slug = $2 LIMIT 1`,
		name, slug,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", location.ErrDistrictNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// ToiletExists reports whether a toilet exists in any status.
func (w *DatabaseWriter) ToiletExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := w.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM toilets WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateToilet inserts the hidden toilet, its pending submission and photos
// in one transaction.
func (w *DatabaseWriter) CreateToilet(ctx context.Context, t location.NewToilet, s location.NewSubmission, photos []location.NewPhoto) error {
	return pgx.BeginFunc(ctx, w.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO toilets (id, slug, name, district_id, address, lat, lng, access_notes, status, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'hidden', $9, $10)`,
			t.ID, t.Slug, t.Name, t.DistrictID, t.Address, t.Lat, t.Lng, nullable(t.AccessNotes), t.CreatedBy.ID, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting toilet: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO toilet_submissions (id, user_id, name, district_id, address, lat, lng, access_notes, status, resolved_toilet_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $10)`,
			s.ID, s.UserID, s.Name, s.DistrictID, s.Address, s.Lat, s.Lng, nullable(s.AccessNotes), s.ToiletID, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting submission: %w", err)
		}

		for _, p := range photos {
			_, err := tx.Exec(ctx,
				`INSERT INTO toilet_photos (id, toilet_id, uploaded_by, storage_key, url, status, created_at)
				 VALUES ($1, $2, $3, $4, $5, 'pending', $6)`,
				p.ID, p.ToiletID, p.UploadedBy, p.Key, p.URL, p.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting toilet photo: %w", err)
			}
		}
		return nil
	})
}

// CreateReview inserts a pending review and its photos in one transaction.
func (w *DatabaseWriter) CreateReview(ctx context.Context, r location.NewReview, photos []location.NewPhoto) error {
	return pgx.BeginFunc(ctx, w.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO reviews (id, toilet_id, user_id, rating, body, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, 'pending', $6)`,
			r.ID, r.ToiletID, r.Author.ID, r.Rating, nullable(r.Body), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting review: %w", err)
		}

		for _, p := range photos {
			_, err := tx.Exec(ctx,
				`INSERT INTO review_photos (id, review_id, toilet_id, uploaded_by, storage_key, url, status, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)`,
				p.ID, p.ReviewID, p.ToiletID, p.UploadedBy, p.Key, p.URL, p.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting review photo: %w", err)
			}
		}
		return nil
	})
}
