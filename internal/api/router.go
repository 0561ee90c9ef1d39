package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isquat/isquat/internal/approval"
	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/location"
	"github.com/isquat/isquat/internal/metrics"
	"github.com/isquat/isquat/internal/ratelimit"
	"github.com/isquat/isquat/internal/storage"
	"github.com/isquat/isquat/internal/submission"
)

// Rate limit scopes.
const (
	ScopeModeration = "moderate-image"
	ScopeUpload     = "oss-policy"
)

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder is the metrics surface the handlers report to.
type Recorder interface {
	HTTPRecorder
	IncAuthFailure(action, reason string)
	IncAuthSuccess(action string)
	IncRateLimitRejection(scope string)
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Locations location.Repository
	// Suggest lists known toilets in toilet 404 responses. Enabled for the
	// fixture data source.
	Suggest     bool
	Sessions    *auth.Manager
	Auth        *auth.Service
	Submissions *submission.Service
	Approvals   *approval.Service
	// Signer is nil when object storage is not configured.
	Signer    *storage.Signer
	Moderator Moderator
	// Limiter guards the moderation and upload endpoints. Nil disables it.
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	// DB is nil in fixture mode.
	DB Pinger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	var rec Recorder = deps.Metrics

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(requestObserver(rec))
	r.Use(auth.LoadUser(deps.Sessions))

	// Handlers.
	locations := newLocationsHandler(deps.Locations, deps.Suggest)
	authH := newAuthHandler(deps.Auth, deps.Sessions, rec)
	submissions := newSubmissionsHandler(deps.Submissions)
	uploads := newUploadsHandler(deps.Moderator, deps.Signer)
	admin := newAdminHandler(deps.Locations, deps.Approvals)

	limit := func(scope string) func(http.Handler) http.Handler {
		if deps.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(deps.Limiter, scope, rec.IncRateLimitRejection)
	}

	r.Get("/health", healthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))

	// Public reads.
	r.Get("/api/districts", locations.Districts)
	r.Get("/api/home", locations.Home)
	r.Get("/api/toilets", locations.ListToilets)
	r.Get("/api/toilets/top", locations.TopRated)
	r.Get("/api/toilets/nearest", locations.Nearest)
	r.Get("/api/toilets/{id}", locations.GetToilet)

	// Accounts.
	r.Post("/api/auth/signup", authH.SignUp)
	r.Post("/api/auth/signin", authH.SignIn)
	r.Post("/api/auth/signout", authH.SignOut)
	r.Get("/api/auth/me", authH.Me)

	// Signed-in writes.
	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireUser)

		ar.Post("/api/toilets", submissions.SubmitToilet)
		ar.Post("/api/toilets/{id}/reviews", submissions.SubmitReview)
		ar.With(limit(ScopeModeration)).Post("/api/moderate-image", uploads.ModerateImage)
		ar.With(limit(ScopeUpload)).Post("/api/oss/policy", uploads.UploadPolicy)
	})

	// Admin console.
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(auth.RequireAdmin)

		ar.Get("/pending/locations", admin.PendingLocations)
		ar.Get("/pending/reviews", admin.PendingReviews)
		ar.Post("/locations/{id}/approve", admin.ApproveLocation())
		ar.Post("/locations/{id}/reject", admin.RejectLocation())
		ar.Post("/reviews/{id}/approve", admin.ApproveReview())
		ar.Post("/reviews/{id}/reject", admin.RejectReview())
	})
	r.With(auth.RequireAdmin).Get("/api/metrics/summary", deps.Metrics.Handler())

	return r
}

// healthHandler reports liveness and, in database mode, reachability.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "fixture"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
	}
}
