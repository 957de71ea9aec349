package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/repository"
)

const defaultSessionTTL = 24 * time.Hour

// SessionBridge converts a resolved identity into a session-portable
// Principal and back. Sessions are signed JWTs carrying only the user
// ID; the full identity is reloaded from storage on every request.
type SessionBridge struct {
	users  repository.UserRepository
	jwtKey []byte
	ttl    time.Duration
}

func NewSessionBridge(users repository.UserRepository, jwtKey []byte) *SessionBridge {
	return &SessionBridge{users: users, jwtKey: jwtKey, ttl: defaultSessionTTL}
}

func (b *SessionBridge) ToPrincipal(user *domain.User) domain.Principal {
	return domain.Principal{UserID: user.ID}
}

// IssueSession signs a session token for user.
func (b *SessionBridge) IssueSession(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(b.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// ParseSession recovers the Principal from a session token.
func (b *SessionBridge) ParseSession(raw string) (domain.Principal, error) {
	// Sessions always carry an expiry; a signed token without one is
	// rejected rather than treated as immortal.
	t, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return b.jwtKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !t.Valid {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	return domain.Principal{UserID: userID}, nil
}

// FromPrincipal re-resolves the full identity. ErrUserNotFound means
// "no longer authenticated", not a retryable fault.
func (b *SessionBridge) FromPrincipal(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := b.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return user, nil
}
