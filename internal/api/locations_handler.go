package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/isquat/isquat/internal/geo"
	"github.com/isquat/isquat/internal/location"
)

const maxListLimit = 50

// locationsHandler serves the public read path.
type locationsHandler struct {
	repo location.Repository
	// suggest turns a missing toilet into a 404 listing the known toilets.
	suggest bool
}

func newLocationsHandler(repo location.Repository, suggest bool) *locationsHandler {
	return &locationsHandler{repo: repo, suggest: suggest}
}

// parseLimit reads the limit query parameter, clamped to [1, maxListLimit].
func parseLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

func (h *locationsHandler) readFailed(w http.ResponseWriter, what string, err error) {
	slog.Error("location read failed", "read", what, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "failed to load "+what)
}

// Districts handles GET /api/districts.
func (h *locationsHandler) Districts(w http.ResponseWriter, r *http.Request) {
	districts, err := h.repo.Districts(r.Context())
	if err != nil {
		h.readFailed(w, "districts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"districts": nonNil(districts)})
}

// Home handles GET /api/home. The three reads are independent and run
// concurrently.
func (h *locationsHandler) Home(w http.ResponseWriter, r *http.Request) {
	var (
		districts []string
		toilets   []location.Toilet
		topRated  []location.Toilet
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		districts, err = h.repo.Districts(ctx)
		return err
	})
	g.Go(func() (err error) {
		toilets, err = h.repo.Toilets(ctx, location.ToiletFilter{District: r.URL.Query().Get("district")})
		return err
	})
	g.Go(func() (err error) {
		topRated, err = h.repo.TopRated(ctx, location.DefaultTopRatedLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		h.readFailed(w, "home", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"districts": nonNil(districts),
		"toilets":   nonNil(toilets),
		"topRated":  nonNil(topRated),
	})
}

// ListToilets handles GET /api/toilets.
func (h *locationsHandler) ListToilets(w http.ResponseWriter, r *http.Request) {
	toilets, err := h.repo.Toilets(r.Context(), location.ToiletFilter{District: r.URL.Query().Get("district")})
	if err != nil {
		h.readFailed(w, "toilets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"toilets": nonNil(toilets)})
}

// TopRated handles GET /api/toilets/top.
func (h *locationsHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, location.DefaultTopRatedLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
		return
	}
	toilets, err := h.repo.TopRated(r.Context(), limit)
	if err != nil {
		h.readFailed(w, "top rated toilets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"toilets": nonNil(toilets)})
}

// Nearest handles GET /api/toilets/nearest.
func (h *locationsHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	p := geo.Point{Lat: lat, Lng: lng}
	if latErr != nil || lngErr != nil || !p.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "lat and lng must be valid coordinates")
		return
	}
	limit, ok := parseLimit(r, location.DefaultNearestLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
		return
	}

	toilets, err := location.NearestTo(r.Context(), h.repo, p, limit)
	if err != nil {
		h.readFailed(w, "nearest toilets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"toilets": nonNil(toilets)})
}

type suggestion struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// notFound answers a missing toilet. With suggestions enabled the body lists
// every approved toilet so a developer can pick a valid id.
func (h *locationsHandler) notFound(w http.ResponseWriter, r *http.Request) {
	if !h.suggest {
		writeError(w, http.StatusNotFound, "not_found", "toilet not found")
		return
	}
	toilets, err := h.repo.Toilets(r.Context(), location.ToiletFilter{})
	if err != nil {
		slog.Warn("loading suggestions failed", "error", err)
	}
	suggestions := make([]suggestion, 0, len(toilets))
	for _, t := range toilets {
		suggestions = append(suggestions, suggestion{ID: t.ID, Slug: t.Slug, Name: t.Name})
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error": errorDetail{
			Code:    "not_found",
			Message: "toilet not found; try one of the suggestions",
		},
		"suggestions": suggestions,
	})
}

// GetToilet handles GET /api/toilets/{id}.
func (h *locationsHandler) GetToilet(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "id")

	toilet, err := h.repo.ToiletByID(r.Context(), idOrSlug)
	if errors.Is(err, location.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.readFailed(w, "toilet", err)
		return
	}

	var (
		nearby  []location.Toilet
		reviews []location.Review
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		nearby, err = h.repo.Nearby(ctx, *toilet, location.DefaultNearbyLimit)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = h.repo.ReviewsForToilet(ctx, toilet.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.readFailed(w, "toilet details", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"toilet":  toilet,
		"nearby":  nonNil(nearby),
		"reviews": nonNil(reviews),
	})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
