package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isquat/isquat/internal/approval"
	"github.com/isquat/isquat/internal/location"
)

// adminHandler serves the moderation console.
type adminHandler struct {
	repo      location.Repository
	approvals *approval.Service
}

func newAdminHandler(repo location.Repository, approvals *approval.Service) *adminHandler {
	return &adminHandler{repo: repo, approvals: approvals}
}

// PendingLocations handles GET /api/admin/pending/locations.
func (h *adminHandler) PendingLocations(w http.ResponseWriter, r *http.Request) {
	pending, err := h.repo.PendingLocations(r.Context())
	if err != nil {
		slog.Error("listing pending locations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list pending locations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"locations": nonNil(pending)})
}

// PendingReviews handles GET /api/admin/pending/reviews.
func (h *adminHandler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	pending, err := h.repo.PendingReviews(r.Context())
	if err != nil {
		slog.Error("listing pending reviews failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list pending reviews")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": nonNil(pending)})
}

// decide wraps one approval operation as a handler.
func (h *adminHandler) decide(resourceType, decision string, apply func(*approval.Service, *http.Request, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := apply(h.approvals, r, id)
		switch {
		case errors.Is(err, approval.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", resourceType+" not found")
			return
		case errors.Is(err, approval.ErrNotPending):
			writeError(w, http.StatusConflict, "not_pending", resourceType+" has already been decided")
			return
		case err != nil:
			slog.Error("admin decision failed", "resource_type", resourceType, "id", id, "decision", decision, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to record decision")
			return
		}

		auditLog(r, decision, resourceType, id)
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": decision})
	}
}

func (h *adminHandler) ApproveLocation() http.HandlerFunc {
	return h.decide("submission", approval.DecisionApproved, func(s *approval.Service, r *http.Request, id string) error {
		return s.ApproveLocation(r.Context(), id)
	})
}

func (h *adminHandler) RejectLocation() http.HandlerFunc {
	return h.decide("submission", approval.DecisionRejected, func(s *approval.Service, r *http.Request, id string) error {
		return s.RejectLocation(r.Context(), id)
	})
}

func (h *adminHandler) ApproveReview() http.HandlerFunc {
	return h.decide("review", approval.DecisionApproved, func(s *approval.Service, r *http.Request, id string) error {
		return s.ApproveReview(r.Context(), id)
	})
}

func (h *adminHandler) RejectReview() http.HandlerFunc {
	return h.decide("review", approval.DecisionRejected, func(s *approval.Service, r *http.Request, id string) error {
		return s.RejectReview(r.Context(), id)
	})
}
