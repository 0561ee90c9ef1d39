// Package approval moves pending submissions, reviews and their photos to a
// final approved or rejected state.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isquat/isquat/internal/location"
)

var (
	ErrNotFound   = location.ErrNotFound
	ErrNotPending = location.ErrNotPending
)

// Decision kinds and outcomes, as recorded in metrics.
const (
	KindLocation = "location"
	KindReview   = "review"

	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Purge outcomes.
const (
	PurgeDeleted = "deleted"
	PurgeFailed  = "failed"
	PurgeSkipped = "skipped"
)

// Store applies a decision atomically. Reject methods return the storage
// keys of the photos they rejected.
type Store interface {
	ApproveLocation(ctx context.Context, submissionID string) error
	RejectLocation(ctx context.Context, submissionID string) ([]string, error)
	ApproveReview(ctx context.Context, reviewID string) error
	RejectReview(ctx context.Context, reviewID string) ([]string, error)
}

// ObjectDeleter removes an uploaded object from the bucket.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type Recorder interface {
	IncDecision(kind, decision string)
	IncPhotoPurge(status string)
}

// Service applies admin decisions.
type Service struct {
	store   Store
	objects ObjectDeleter
	rec     Recorder
}

// NewService creates a Service. objects and rec may be nil; without an
// ObjectDeleter rejected photos stay in the bucket.
func NewService(store Store, objects ObjectDeleter, rec Recorder) *Service {
	return &Service{store: store, objects: objects, rec: rec}
}

func (s *Service) record(kind, decision string) {
	if s.rec != nil {
		s.rec.IncDecision(kind, decision)
	}
}

func (s *Service) recordPurge(status string) {
	if s.rec != nil {
		s.rec.IncPhotoPurge(status)
	}
}

// ApproveLocation publishes a pending submission's toilet and photos.
func (s *Service) ApproveLocation(ctx context.Context, submissionID string) error {
	if err := s.store.ApproveLocation(ctx, submissionID); err != nil {
		return fmt.Errorf("approving location %s: %w", submissionID, err)
	}
	s.record(KindLocation, DecisionApproved)
	return nil
}

// RejectLocation rejects a pending submission and purges its photos.
func (s *Service) RejectLocation(ctx context.Context, submissionID string) error {
	keys, err := s.store.RejectLocation(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("rejecting location %s: %w", submissionID, err)
	}
	s.record(KindLocation, DecisionRejected)
	s.purge(ctx, keys)
	return nil
}

// ApproveReview publishes a pending review and folds its rating into the
// toilet aggregates.
func (s *Service) ApproveReview(ctx context.Context, reviewID string) error {
	if err := s.store.ApproveReview(ctx, reviewID); err != nil {
		return fmt.Errorf("approving review %s: %w", reviewID, err)
	}
	s.record(KindReview, DecisionApproved)
	return nil
}

// RejectReview rejects a pending review and purges its photos.
func (s *Service) RejectReview(ctx context.Context, reviewID string) error {
	keys, err := s.store.RejectReview(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("rejecting review %s: %w", reviewID, err)
	}
	s.record(KindReview, DecisionRejected)
	s.purge(ctx, keys)
	return nil
}

// purge deletes rejected objects. The decision is already committed, so
// failures are logged and counted only.
func (s *Service) purge(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if s.objects == nil {
			s.recordPurge(PurgeSkipped)
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			slog.Warn("photo purge failed", "key", key, "error", err)
			s.recordPurge(PurgeFailed)
			continue
		}
		s.recordPurge(PurgeDeleted)
	}
}
