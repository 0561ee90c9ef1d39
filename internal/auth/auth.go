package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// DefaultBcryptCost is the work factor used for new password hashes.
const DefaultBcryptCost = 12

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

// User represents an authenticated site user.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsActive returns true unless the account has been disabled.
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// ValidStatus reports whether status is one of the known account statuses.
func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusDisabled
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns a bcrypt hash of password at the given cost. A cost of
// zero selects DefaultBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var reviewRedirect = regexp.MustCompile(`^/toilet/[\w-]+/review$`)

// AllowedRedirect reports whether path may be used as a post sign-in target.
func AllowedRedirect(path string) bool {
	if path == "/dashboard/add" {
		return true
	}
	return reviewRedirect.MatchString(path)
}

// LandingPath returns where a freshly authenticated user is sent. Admins
// always land on the console; other users honour an allowed redirectTo.
func LandingPath(u *User, redirectTo string) string {
	if u.IsAdmin() {
		return "/admin"
	}
	if AllowedRedirect(redirectTo) {
		return redirectTo
	}
	return "/dashboard"
}

// ErrNoSession is returned by session stores when no live session matches.
var ErrNoSession = errors.New("session not found")
