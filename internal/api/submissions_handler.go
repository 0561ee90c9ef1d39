package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/submission"
)

// submissionsHandler accepts new locations and reviews.
type submissionsHandler struct {
	svc *submission.Service
}

func newSubmissionsHandler(svc *submission.Service) *submissionsHandler {
	return &submissionsHandler{svc: svc}
}

// finish translates a submission result into a response.
func (h *submissionsHandler) finish(w http.ResponseWriter, r *http.Request, res submission.Result, err error, action, resourceType, resourceID string) {
	if err != nil {
		slog.Error("submission failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save submission")
		return
	}
	if !res.OK() {
		writeFieldError(w, res.Err.Field, res.Err.Message)
		return
	}
	auditLog(r, action, resourceType, resourceID, "redirect", res.Redirect)
	redirectOrJSON(w, r, http.StatusCreated, res.Redirect)
}

// SubmitToilet handles POST /api/toilets.
func (h *submissionsHandler) SubmitToilet(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	form := submission.ToiletForm{
		Name:     first(fields, "name"),
		Address:  first(fields, "address"),
		District: first(fields, "district"),
		Notes:    first(fields, "notes"),
		Lat:      first(fields, "lat"),
		Lng:      first(fields, "lng"),
		Photos:   fields["photos"],
	}
	res, err := h.svc.SubmitToilet(r.Context(), auth.UserFromContext(r.Context()), form)
	h.finish(w, r, res, err, "submit_toilet", "toilet_submission", form.Name)
}

// SubmitReview handles POST /api/toilets/{id}/reviews.
func (h *submissionsHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	toiletID := chi.URLParam(r, "id")
	form := submission.ReviewForm{
		ToiletID: toiletID,
		Rating:   first(fields, "rating"),
		Body:     first(fields, "body"),
		Photos:   fields["photos"],
	}
	res, err := h.svc.SubmitReview(r.Context(), auth.UserFromContext(r.Context()), form)
	h.finish(w, r, res, err, "submit_review", "toilet", toiletID)
}
