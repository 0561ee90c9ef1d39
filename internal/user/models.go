package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("email already registered")
	ErrNoSession   = errors.New("session not found")
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`   // "user" or "admin"
	Status       string    `json:"status"` // "active" or "disabled"
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserInput holds the fields required to create a new user. The
// password arrives already hashed.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// Session represents a stored login.
type Session struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
