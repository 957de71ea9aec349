package repository

import (
	"context"
	"time"

	"github.com/sonoralabs/sonora/internal/domain"
)

// TokenRepository is the redemption ledger. Redeem must serialize
// concurrent attempts on one token value so that exactly one succeeds.
type TokenRepository interface {
	Create(ctx context.Context, t *domain.SecurityToken) error

	// Redeem atomically flips used to true and returns the row, or
	// returns the first failing condition as one of
	// domain.ErrTokenNotFound, ErrTokenAlreadyUsed, ErrTokenExpired,
	// ErrTokenPurposeMismatch without mutating state.
	Redeem(ctx context.Context, value string, purpose domain.TokenPurpose) (*domain.SecurityToken, error)

	// DeleteExpired removes rows whose expiry passed before cutoff and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
