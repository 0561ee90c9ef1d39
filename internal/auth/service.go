package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sign-up and sign-in failures. ErrorCode maps them to the short codes the
// auth page understands.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Account is a user together with the stored password hash.
type Account struct {
	User
	PasswordHash string
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

// UserStore is the account persistence the Service needs.
type UserStore interface {
	// FindByEmail returns ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// CreateUser returns ErrEmailExists on a duplicate email.
	CreateUser(ctx context.Context, in NewUser) (*User, error)
}

// SignUpInput carries the sign-up form.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Service implements sign-up and sign-in against a UserStore.
type Service struct {
	users       UserStore
	adminEmails map[string]bool
	cost        int
}

// NewService creates a Service. Emails in adminEmails receive the admin role
// when they sign up.
func NewService(users UserStore, adminEmails []string, cost int) *Service {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = NormalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &Service{users: users, adminEmails: admins, cost: cost}
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking existing account: %w", err)
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	role := RoleUser
	if s.adminEmails[email] {
		role = RoleAdmin
	}

	u, err := s.users.CreateUser(ctx, NewUser{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return u, nil
}

// SignIn verifies credentials. Unknown, disabled and wrong-password accounts
// all yield ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	acct, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if acct.Status != StatusActive {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, acct.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	u := acct.User
	return &u, nil
}

// ErrorCode returns the short auth-page code for a sign-up or sign-in error,
// or "" for errors that are not credential problems.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing"
	case errors.Is(err, ErrWeakPassword):
		return "weak"
	case errors.Is(err, ErrEmailExists):
		return "exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid"
	default:
		return ""
	}
}
