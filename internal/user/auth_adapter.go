package user

import (
	"context"
	"errors"
	"time"

	"github.com/isquat/isquat/internal/auth"
)

// AuthAdapter adapts a user Repository to the auth.UserStore and
// auth.SessionStore interfaces.
type AuthAdapter struct {
	store Repository
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given repository.
func NewAuthAdapter(store Repository) *AuthAdapter {
	return &AuthAdapter{store: store}
}

func toAuthUser(u *User) *auth.User {
	return &auth.User{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Status: u.Status,
	}
}

// FindByEmail implements auth.UserStore.
func (a *AuthAdapter) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	u, err := a.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auth.Account{User: *toAuthUser(u), PasswordHash: u.PasswordHash}, nil
}

// CreateUser implements auth.UserStore.
func (a *AuthAdapter) CreateUser(ctx context.Context, in auth.NewUser) (*auth.User, error) {
	u, err := a.store.Create(ctx, CreateUserInput{
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Name:         in.Name,
		Role:         in.Role,
	})
	if errors.Is(err, ErrEmailExists) {
		return nil, auth.ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	return toAuthUser(u), nil
}

// CreateSession implements auth.SessionStore.
func (a *AuthAdapter) CreateSession(ctx context.Context, s auth.Session) error {
	return a.store.CreateSession(ctx, Session{
		ID:        s.ID,
		TokenHash: s.TokenHash,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	})
}

// SessionUser implements auth.SessionStore.
func (a *AuthAdapter) SessionUser(ctx context.Context, tokenHash string, now time.Time) (*auth.User, error) {
	u, err := a.store.GetSessionUser(ctx, tokenHash, now)
	if errors.Is(err, ErrNoSession) {
		return nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return toAuthUser(u), nil
}

// DeleteSession implements auth.SessionStore.
func (a *AuthAdapter) DeleteSession(ctx context.Context, tokenHash string) error {
	return a.store.DeleteSession(ctx, tokenHash)
}
