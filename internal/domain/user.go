package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderLinkConflict is reserved for a stricter linking policy.
	// Linking currently always proceeds, so nothing returns it yet.
	ErrProviderLinkConflict = errors.New("provider link conflict")
)

// AuthProvider identifies the path a user last authenticated through.
type AuthProvider string

const (
	ProviderLocal     AuthProvider = "local"
	ProviderGoogle    AuthProvider = "google"
	ProviderMagicLink AuthProvider = "magic_link"
)

// User is the canonical identity. Exactly one row exists per email,
// regardless of how many providers have authenticated it.
type User struct {
	ID              int64
	Email           string
	Username        *string
	DisplayName     string
	PasswordHash    *string
	ExternalID      *string
	ProfileImageURL *string
	AuthProvider    AuthProvider
	EmailVerified   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasLocalCredential reports whether a password login is even possible.
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Principal is the minimal projection of a User carried in a session.
// It is re-resolved against storage on every request, never trusted
// beyond the user ID it names.
type Principal struct {
	UserID int64 `json:"user_id"`
}
