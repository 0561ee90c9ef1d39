package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// --- mock stores ---

type mockSessionStore struct {
	mu       sync.Mutex
	users    map[string]*User
	sessions map[string]Session
	lookupFn func() error
}

func newMockSessionStore(users ...*User) *mockSessionStore {
	m := &mockSessionStore{users: make(map[string]*User), sessions: make(map[string]Session)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockSessionStore) CreateSession(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *mockSessionStore) SessionUser(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	if m.lookupFn != nil {
		if err := m.lookupFn(); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, ErrNoSession
	}
	u, ok := m.users[s.UserID]
	if !ok {
		return nil, ErrNoSession
	}
	cp := *u
	return &cp, nil
}

func (m *mockSessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

type mockUserStore struct {
	accounts map[string]*Account
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{accounts: make(map[string]*Account)}
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	a, ok := m.accounts[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockUserStore) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if _, ok := m.accounts[in.Email]; ok {
		return nil, ErrEmailExists
	}
	a := &Account{
		User: User{
			ID:     "u-" + in.Email,
			Email:  in.Email,
			Name:   in.Name,
			Role:   in.Role,
			Status: StatusActive,
		},
		PasswordHash: in.PasswordHash,
	}
	m.accounts[in.Email] = a
	u := a.User
	return &u, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T, store SessionStore, c *clock) *Manager {
	t.Helper()
	m, err := NewManager(store, ManagerOptions{Secret: "test-secret", Now: c.now})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// --- password and email helpers ---

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash should differ from password")
	}
	if !VerifyPassword("correct horse", hash) {
		t.Error("expected password to verify")
	}
	if VerifyPassword("wrong horse", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPassword_DefaultCost(t *testing.T) {
	hash, err := HashPassword("password123", 0)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != DefaultBcryptCost {
		t.Errorf("expected cost %d, got %d", DefaultBcryptCost, cost)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ava@Example.COM "); got != "ava@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestLandingPath(t *testing.T) {
	admin := &User{ID: "a", Role: RoleAdmin}
	member := &User{ID: "m", Role: RoleUser}

	tests := []struct {
		name       string
		user       *User
		redirectTo string
		want       string
	}{
		{"admin ignores redirect", admin, "/dashboard/add", "/admin"},
		{"member add page", member, "/dashboard/add", "/dashboard/add"},
		{"member review page", member, "/toilet/t1/review", "/toilet/t1/review"},
		{"member slug review page", member, "/toilet/wynyard-wharf_2/review", "/toilet/wynyard-wharf_2/review"},
		{"member external redirect", member, "https://evil.example/", "/dashboard"},
		{"member nested path", member, "/toilet/t1/review/extra", "/dashboard"},
		{"member empty", member, "", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LandingPath(tt.user, tt.redirectTo); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// --- session manager ---

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager(newMockSessionStore(), ManagerOptions{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestManager_SessionLifecycle(t *testing.T) {
	u := &User{ID: "u1", Email: "ava@example.com", Role: RoleUser, Status: StatusActive}
	store := newMockSessionStore(u)
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, store, c)

	rr := httptest.NewRecorder()
	sess, err := m.CreateSession(context.Background(), rr, u.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !sess.ExpiresAt.Equal(c.t.Add(DefaultSessionTTL)) {
		t.Errorf("expected expiry %v, got %v", c.t.Add(DefaultSessionTTL), sess.ExpiresAt)
	}

	cookie := sessionCookie(t, rr)
	if !cookie.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("expected path /, got %q", cookie.Path)
	}
	if len(cookie.Value) != 64 {
		t.Errorf("expected 64 hex char token, got %d chars", len(cookie.Value))
	}
	if sess.TokenHash == cookie.Value {
		t.Error("stored hash must not equal the plaintext token")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	got, err := m.CurrentUser(context.Background(), req)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("expected user %q, got %+v", u.ID, got)
	}

	// Expired.
	c.t = c.t.Add(DefaultSessionTTL + time.Second)
	got, err = m.CurrentUser(context.Background(), req)
	if err != nil {
		t.Fatalf("CurrentUser after expiry: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil user after expiry, got %+v", got)
	}
}

func TestManager_DisabledUser(t *testing.T) {
	u := &User{ID: "u1", Email: "ava@example.com", Role: RoleUser, Status: StatusActive}
	store := newMockSessionStore(u)
	m := newTestManager(t, store, &clock{t: time.Now()})

	rr := httptest.NewRecorder()
	if _, err := m.CreateSession(context.Background(), rr, u.ID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	u.Status = StatusDisabled

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rr))
	got, err := m.CurrentUser(context.Background(), req)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got != nil {
		t.Errorf("disabled user should not resolve, got %+v", got)
	}
}

func TestManager_UnknownToken(t *testing.T) {
	m := newTestManager(t, newMockSessionStore(), &clock{t: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "deadbeef"})
	got, err := m.CurrentUser(context.Background(), req)
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil), got (%+v, %v)", got, err)
	}

	got, err = m.CurrentUser(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil) without cookie, got (%+v, %v)", got, err)
	}
}

func TestManager_SecretBindsTokens(t *testing.T) {
	u := &User{ID: "u1", Role: RoleUser, Status: StatusActive}
	store := newMockSessionStore(u)
	c := &clock{t: time.Now()}
	m1 := newTestManager(t, store, c)
	m2, err := NewManager(store, ManagerOptions{Secret: "rotated", Now: c.now})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	rr := httptest.NewRecorder()
	if _, err := m1.CreateSession(context.Background(), rr, u.ID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rr))
	got, _ := m2.CurrentUser(context.Background(), req)
	if got != nil {
		t.Error("token issued under one secret must not resolve under another")
	}
}

func TestManager_ClearSession(t *testing.T) {
	u := &User{ID: "u1", Role: RoleUser, Status: StatusActive}
	store := newMockSessionStore(u)
	m := newTestManager(t, store, &clock{t: time.Now()})

	rr := httptest.NewRecorder()
	if _, err := m.CreateSession(context.Background(), rr, u.ID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cookie := sessionCookie(t, rr)

	req := httptest.NewRequest(http.MethodPost, "/signout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	if err := m.ClearSession(context.Background(), out, req); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("expected session row deleted, %d remain", len(store.sessions))
	}
	cleared := sessionCookie(t, out)
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("expected expired empty cookie, got %+v", cleared)
	}

	got, _ := m.CurrentUser(context.Background(), req)
	if got != nil {
		t.Error("cleared session should not resolve")
	}
}

// --- sign-up / sign-in ---

func TestService_SignUp(t *testing.T) {
	users := newMockUserStore()
	svc := NewService(users, []string{" Boss@Example.com "}, bcrypt.MinCost)

	tests := []struct {
		name     string
		in       SignUpInput
		wantErr  error
		wantRole string
	}{
		{"missing email", SignUpInput{Password: "longenough"}, ErrMissingCredentials, ""},
		{"missing password", SignUpInput{Email: "a@example.com"}, ErrMissingCredentials, ""},
		{"weak password", SignUpInput{Email: "a@example.com", Password: "short"}, ErrWeakPassword, ""},
		{"member", SignUpInput{Email: " Ava@Example.com", Password: "longenough", Name: " Ava "}, nil, RoleUser},
		{"duplicate", SignUpInput{Email: "ava@example.com", Password: "longenough"}, ErrEmailExists, ""},
		{"admin allow-list", SignUpInput{Email: "boss@example.com", Password: "longenough"}, nil, RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.SignUp(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignUp: %v", err)
			}
			if u.Role != tt.wantRole {
				t.Errorf("expected role %q, got %q", tt.wantRole, u.Role)
			}
			if u.Email != NormalizeEmail(tt.in.Email) {
				t.Errorf("expected normalized email, got %q", u.Email)
			}
		})
	}

	if got := users.accounts["ava@example.com"].Name; got != "Ava" {
		t.Errorf("expected trimmed name, got %q", got)
	}
}

func TestService_SignIn(t *testing.T) {
	users := newMockUserStore()
	svc := NewService(users, nil, bcrypt.MinCost)
	if _, err := svc.SignUp(context.Background(), SignUpInput{Email: "ava@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignUp(context.Background(), SignUpInput{Email: "off@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	users.accounts["off@example.com"].Status = StatusDisabled

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"ok", "AVA@example.com", "longenough", nil},
		{"missing", "", "longenough", ErrMissingCredentials},
		{"wrong password", "ava@example.com", "nope-nope", ErrInvalidCredentials},
		{"unknown", "nobody@example.com", "longenough", ErrInvalidCredentials},
		{"disabled", "off@example.com", "longenough", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.SignIn(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignIn: %v", err)
			}
			if u.Email != "ava@example.com" {
				t.Errorf("unexpected user %+v", u)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingCredentials, "missing"},
		{ErrWeakPassword, "weak"},
		{ErrEmailExists, "exists"},
		{ErrInvalidCredentials, "invalid"},
		{errors.New("boom"), ""},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// --- middleware ---

func TestUserContext_RoundTrip(t *testing.T) {
	u := &User{ID: "u1"}
	got := UserFromContext(ContextWithUser(context.Background(), u))
	if got == nil || got.ID != "u1" {
		t.Fatalf("expected user from context, got %+v", got)
	}
	if UserFromContext(context.Background()) != nil {
		t.Error("expected nil from empty context")
	}
}

func TestLoadUser_StoreFailureIsAnonymous(t *testing.T) {
	store := newMockSessionStore()
	store.lookupFn = func() error { return errors.New("db down") }
	m := newTestManager(t, store, &clock{t: time.Now()})

	var sawUser bool
	h := LoadUser(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = UserFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "abc"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || sawUser {
		t.Errorf("expected anonymous pass-through, got status %d user=%v", rr.Code, sawUser)
	}
}

func TestRequireGates(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		mw         func(http.Handler) http.Handler
		user       *User
		wantStatus int
		wantCode   string
	}{
		{"user gate anonymous", RequireUser, nil, http.StatusUnauthorized, "unauthorized"},
		{"user gate member", RequireUser, &User{ID: "m", Role: RoleUser}, http.StatusOK, ""},
		{"admin gate anonymous", RequireAdmin, nil, http.StatusUnauthorized, "unauthorized"},
		{"admin gate member", RequireAdmin, &User{ID: "m", Role: RoleUser}, http.StatusForbidden, "forbidden"},
		{"admin gate admin", RequireAdmin, &User{ID: "a", Role: RoleAdmin}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = req.WithContext(ContextWithUser(req.Context(), tt.user))
			}
			rr := httptest.NewRecorder()
			tt.mw(ok).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantCode != "" {
				assertJSONError(t, rr, tt.wantCode)
			}
		})
	}
}

// assertJSONError checks that the response body contains the expected error JSON structure.
func assertJSONError(t *testing.T, rr *httptest.ResponseRecorder, code string) {
	t.Helper()

	ct := rr.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error.Code != code {
		t.Errorf("expected error code %q, got %q", code, resp.Error.Code)
	}
	if resp.Error.Message == "" {
		t.Error("expected non-empty error message")
	}
}
