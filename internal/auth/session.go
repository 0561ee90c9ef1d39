package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/isquat/isquat/internal/crypto"
)

// Session defaults.
const (
	DefaultCookieName = "isquat_session"
	DefaultSessionTTL = 7 * 24 * time.Hour
	tokenBytes        = 32
)

// Session is a persisted login. Only the keyed hash of the token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore persists sessions and resolves token hashes to users.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	// SessionUser returns the owner of the unexpired session with the given
	// token hash, or ErrNoSession.
	SessionUser(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
	Now        func() time.Time
}

// Manager issues, resolves and clears cookie-backed sessions.
type Manager struct {
	store      SessionStore
	secret     string
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewManager creates a Manager. An empty secret is rejected; callers resolve
// the development fallback before constructing one.
func NewManager(store SessionStore, opts ManagerOptions) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	m := &Manager{
		store:      store,
		secret:     opts.Secret,
		ttl:        opts.TTL,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		now:        opts.Now,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultSessionTTL
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// HashToken returns the keyed hash stored in place of a plaintext token.
func (m *Manager) HashToken(token string) string {
	return crypto.HMACSHA256Hex(m.secret, token)
}

// CreateSession persists a new session for userID and sets the cookie on w.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter, userID string) (*Session, error) {
	token, err := crypto.RandomHex(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	now := m.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: m.HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &sess, nil
}

// CurrentUser resolves the request's session cookie. It returns nil without
// error when there is no cookie, no live session, or the account is not
// active.
func (m *Manager) CurrentUser(ctx context.Context, r *http.Request) (*User, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	u, err := m.store.SessionUser(ctx, m.HashToken(c.Value), m.now().UTC())
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if !u.IsActive() {
		return nil, nil
	}
	return u, nil
}

// ClearSession deletes the session named by the request cookie, if any, and
// expires the cookie.
func (m *Manager) ClearSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var deleteErr error
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		if err := m.store.DeleteSession(ctx, m.HashToken(c.Value)); err != nil {
			deleteErr = fmt.Errorf("deleting session: %w", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return deleteErr
}
