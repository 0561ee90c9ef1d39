package location

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner starts database transactions. pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SeedResult counts rows written by Seed.
type SeedResult struct {
	Districts int64
	Tags      int64
	Toilets   int64
}

// Seed writes the fixture's districts, tags and approved toilets. Existing
// rows are left untouched, so running it twice is harmless.
func Seed(ctx context.Context, db TxBeginner, data FixtureData) (SeedResult, error) {
	var res SeedResult
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, d := range data.Districts {
			tag, err := tx.Exec(ctx,
				`INSERT INTO districts (id, name, slug) VALUES ($1, $2, $3)
				 ON CONFLICT DO NOTHING`,
				d.ID, d.Name, d.Slug)
			if err != nil {
				return fmt.Errorf("inserting district %s: %w", d.Name, err)
			}
			res.Districts += tag.RowsAffected()
		}

		for _, t := range data.Toilets {
			if t.Status != StatusApproved {
				continue
			}
			var notes *string
			if t.AccessNotes != "" {
				notes = &t.AccessNotes
			}
			tag, err := tx.Exec(ctx,
				`INSERT INTO toilets (id, slug, name, district_id, address, lat, lng, access_notes,
				                      status, avg_rating, review_count, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'approved', $9, $10, $11)
				 ON CONFLICT DO NOTHING`,
				t.ID, t.Slug, t.Name, t.DistrictID, t.Address, t.Lat, t.Lng, notes,
				t.Rating, t.ReviewCount, t.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting toilet %s: %w", t.Slug, err)
			}
			res.Toilets += tag.RowsAffected()

			for _, name := range t.Tags {
				tag, err := tx.Exec(ctx,
					`INSERT INTO tags (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					"tag-"+Slugify(name), name)
				if err != nil {
					return fmt.Errorf("inserting tag %s: %w", name, err)
				}
				res.Tags += tag.RowsAffected()

				if _, err := tx.Exec(ctx,
					`INSERT INTO toilet_tags (toilet_id, tag_id)
					 SELECT $1, id FROM tags WHERE name = $2
					 ON CONFLICT DO NOTHING`,
					t.ID, name); err != nil {
					return fmt.Errorf("tagging toilet %s: %w", t.Slug, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}
