package usecase

import (
	"context"
	"log/slog"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/password"
	"github.com/sonoralabs/sonora/internal/repository"
)

// CredentialVerifier checks local email/password pairs. Every failure
// mode collapses to domain.ErrInvalidCredentials at the API boundary so
// callers cannot enumerate accounts; the precise reason goes to the log.
type CredentialVerifier struct {
	users  repository.UserRepository
	hasher password.Hasher
	logger *slog.Logger
}

func NewCredentialVerifier(users repository.UserRepository, hasher password.Hasher, logger *slog.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		logger: logger.With("component", "credential_verifier"),
	}
}

func (v *CredentialVerifier) Verify(ctx context.Context, email, plaintext string) (*domain.User, error) {
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		v.logger.InfoContext(ctx, "login rejected", "reason", "no_such_user")
		return nil, domain.ErrInvalidCredentials
	}

	// Unverified accounts never authenticate, even with the right
	// password, so check before the hash comparison.
	if !user.EmailVerified {
		v.logger.InfoContext(ctx, "login rejected", "reason", "email_not_verified", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.HasLocalCredential() {
		v.logger.InfoContext(ctx, "login rejected", "reason", "no_local_credential", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	if !v.hasher.Compare(plaintext, *user.PasswordHash) {
		v.logger.InfoContext(ctx, "login rejected", "reason", "wrong_password", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}
