// Package token implements the signed token values used by the email
// verification, magic-link and password-reset flows.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sonoralabs/sonora/internal/domain"
)

// Decoded is the payload recovered from a token value. Expiry is
// reported, not enforced — single use and expiry are the ledger's job.
type Decoded struct {
	UserID    int64
	Purpose   domain.TokenPurpose
	ExpiresAt time.Time
}

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Codec issues and decodes HMAC-signed token values binding a user ID,
// a purpose and an absolute expiry. Tampering with any of the three
// invalidates the signature.
type Codec struct {
	key []byte
}

func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// Issue signs a token for userID scoped to purpose, expiring after ttl.
func (c *Codec) Issue(userID int64, purpose domain.TokenPurpose, ttl time.Duration) (string, error) {
	now := time.Now()
	cl := claims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and structure of value and returns its
// payload. It is a pure check: an expired but authentic token still
// decodes, so the ledger can report Expired rather than Invalid.
func (c *Codec) Decode(value string) (*Decoded, error) {
	var cl claims
	t, err := jwt.ParseWithClaims(value, &cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !t.Valid {
		return nil, domain.ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	purpose := domain.TokenPurpose(cl.Purpose)
	switch purpose {
	case domain.PurposeEmailVerification, domain.PurposeMagicLink, domain.PurposePasswordReset:
	default:
		return nil, domain.ErrTokenInvalid
	}

	if cl.ExpiresAt == nil {
		return nil, domain.ErrTokenInvalid
	}

	return &Decoded{
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}
