package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/isquat/isquat/internal/location"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DatabaseStore applies decisions in Postgres, one transaction per decision.
type DatabaseStore struct {
	db DB
}

// NewDatabaseStore creates a DatabaseStore.
func NewDatabaseStore(db DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func checkPending(status string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != location.StatusPending {
		return ErrNotPending
	}
	return nil
}

// lockSubmission loads a pending submission row for update and returns the
// toilet it created.
func lockSubmission(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	var (
		status   string
		toiletID *string
	)
	err := tx.QueryRow(ctx,
		`SELECT status, resolved_toilet_id FROM toilet_submissions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status, &toiletID)
	if err := checkPending(status, err); err != nil {
		return "", err
	}
	if toiletID == nil {
		return "", nil
	}
	return *toiletID, nil
}

func (s *DatabaseStore) decideLocation(ctx context.Context, submissionID, status string) ([]string, error) {
	var keys []string
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		toiletID, err := lockSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE toilet_submissions SET status = $2, resolved_at = now() WHERE id = $1`,
			submissionID, status,
		); err != nil {
			return fmt.Errorf("updating submission: %w", err)
		}
		if toiletID == "" {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE toilets SET status = $2 WHERE id = $1`, toiletID, status,
		); err != nil {
			return fmt.Errorf("updating toilet: %w", err)
		}

		rows, err := tx.Query(ctx,
			`UPDATE toilet_photos SET status = $2 WHERE toilet_id = $1 AND status = 'pending' RETURNING storage_key`,
			toiletID, status,
		)
		if err != nil {
			return fmt.Errorf("updating toilet photos: %w", err)
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("updating toilet photos: %w", err)
		}
		return nil
	})
	return keys, err
}

func (s *DatabaseStore) ApproveLocation(ctx context.Context, submissionID string) error {
	_, err := s.decideLocation(ctx, submissionID, location.StatusApproved)
	return err
}

func (s *DatabaseStore) RejectLocation(ctx context.Context, submissionID string) ([]string, error) {
	return s.decideLocation(ctx, submissionID, location.StatusRejected)
}

func (s *DatabaseStore) decideReview(ctx context.Context, reviewID, status string) ([]string, error) {
	var keys []string
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var (
			current  string
			toiletID string
			rating   int
		)
		err := tx.QueryRow(ctx,
			`SELECT status, toilet_id, rating FROM reviews WHERE id = $1 FOR UPDATE`, reviewID,
		).Scan(&current, &toiletID, &rating)
		if err := checkPending(current, err); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE reviews SET status = $2 WHERE id = $1`, reviewID, status,
		); err != nil {
			return fmt.Errorf("updating review: %w", err)
		}

		if status == location.StatusApproved {
			if _, err := tx.Exec(ctx,
				`UPDATE toilets
				 SET avg_rating = ROUND(((avg_rating * review_count + $2) / (review_count + 1))::numeric, 2)::float8,
				     review_count = review_count + 1
				 WHERE id = $1`,
				toiletID, rating,
			); err != nil {
				return fmt.Errorf("updating toilet rating: %w", err)
			}
		}

		rows, err := tx.Query(ctx,
			`UPDATE review_photos SET status = $2 WHERE review_id = $1 AND status = 'pending' RETURNING storage_key`,
			reviewID, status,
		)
		if err != nil {
			return fmt.Errorf("updating review photos: %w", err)
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("updating review photos: %w", err)
		}
		return nil
	})
	return keys, err
}

func (s *DatabaseStore) ApproveReview(ctx context.Context, reviewID string) error {
	_, err := s.decideReview(ctx, reviewID, location.StatusApproved)
	return err
}

func (s *DatabaseStore) RejectReview(ctx context.Context, reviewID string) ([]string, error) {
	return s.decideReview(ctx, reviewID, location.StatusRejected)
}
