package domain

import (
	"errors"
	"time"
)

var (
	ErrTokenInvalid         = errors.New("token is malformed or its signature does not verify")
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenAlreadyUsed     = errors.New("token already used")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenPurposeMismatch = errors.New("token purpose mismatch")
)

// TokenPurpose scopes a token to the single flow it was minted for.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposeMagicLink         TokenPurpose = "magic_link"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// SecurityToken is a ledger row tracking the redemption state of one
// signed token value. The value itself is self-describing (signed, with
// subject/purpose/expiry baked in); the row exists to enforce single use.
type SecurityToken struct {
	ID        int64
	UserID    int64
	Token     string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
