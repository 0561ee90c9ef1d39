package api

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/isquat/isquat/internal/auth"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	svc      *auth.Service
	sessions *auth.Manager
	rec      Recorder
}

func newAuthHandler(svc *auth.Service, sessions *auth.Manager, rec Recorder) *authHandler {
	return &authHandler{svc: svc, sessions: sessions, rec: rec}
}

// authErrorStatus maps an auth page code to an HTTP status for JSON clients.
func authErrorStatus(code string) int {
	switch code {
	case "missing", "weak":
		return http.StatusUnprocessableEntity
	case "exists":
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}

// authFailure answers a rejected sign-up or sign-in. Browsers go back to the
// auth page with the code; JSON clients get the error envelope.
func (h *authHandler) authFailure(w http.ResponseWriter, r *http.Request, action string, err error, redirectTo string) {
	code := auth.ErrorCode(err)
	if code == "" {
		slog.Error("auth failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
		return
	}
	h.rec.IncAuthFailure(action, code)

	if wantsJSON(r) {
		writeError(w, authErrorStatus(code), code, err.Error())
		return
	}
	q := url.Values{"error": {code}}
	if auth.AllowedRedirect(redirectTo) {
		q.Set("redirectTo", redirectTo)
	}
	http.Redirect(w, r, "/auth?"+q.Encode(), http.StatusSeeOther)
}

// startSession issues the cookie and answers with the landing page.
func (h *authHandler) startSession(w http.ResponseWriter, r *http.Request, action string, u *auth.User, redirectTo string, status int) {
	if _, err := h.sessions.CreateSession(r.Context(), w, u.ID); err != nil {
		slog.Error("create session failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}
	h.rec.IncAuthSuccess(action)

	r = r.WithContext(auth.ContextWithUser(r.Context(), u))
	auditLog(r, action, "user", u.ID)

	target := auth.LandingPath(u, redirectTo)
	if wantsJSON(r) {
		writeJSON(w, status, map[string]interface{}{
			"user":     u,
			"redirect": target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SignUp handles POST /api/auth/signup.
func (h *authHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	redirectTo := first(fields, "redirectTo")

	u, err := h.svc.SignUp(r.Context(), auth.SignUpInput{
		Email:    first(fields, "email"),
		Password: first(fields, "password"),
		Name:     first(fields, "name"),
	})
	if err != nil {
		h.authFailure(w, r, "signup", err, redirectTo)
		return
	}
	h.startSession(w, r, "signup", u, redirectTo, http.StatusCreated)
}

// SignIn handles POST /api/auth/signin.
func (h *authHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	redirectTo := first(fields, "redirectTo")

	u, err := h.svc.SignIn(r.Context(), first(fields, "email"), first(fields, "password"))
	if err != nil {
		h.authFailure(w, r, "signin", err, redirectTo)
		return
	}
	h.startSession(w, r, "signin", u, redirectTo, http.StatusOK)
}

// SignOut handles POST /api/auth/signout.
func (h *authHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ClearSession(r.Context(), w, r); err != nil {
		slog.Warn("clear session failed", "error", err)
	}
	if u := auth.UserFromContext(r.Context()); u != nil {
		auditLog(r, "signout", "user", u.ID)
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Me handles GET /api/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
