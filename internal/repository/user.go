package repository

import (
	"context"

	"github.com/sonoralabs/sonora/internal/domain"
)

// NewUser carries the fields supplied at identity creation. ID and
// timestamps are assigned by storage.
type NewUser struct {
	Email           string
	DisplayName     string
	PasswordHash    *string
	ExternalID      *string
	ProfileImageURL *string
	AuthProvider    domain.AuthProvider
	EmailVerified   bool
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByProviderIdentity(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error)

	// Create returns domain.ErrEmailTaken when the unique-email
	// constraint rejects the insert.
	Create(ctx context.Context, u NewUser) (*domain.User, error)

	// LinkProvider overwrites auth_provider and external_id and forces
	// email_verified = true on an existing row.
	LinkProvider(ctx context.Context, id int64, provider domain.AuthProvider, externalID string) error

	MarkEmailVerified(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
