package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/email"
	"github.com/sonoralabs/sonora/internal/metrics"
	"github.com/sonoralabs/sonora/internal/password"
	"github.com/sonoralabs/sonora/internal/repository"
	"github.com/sonoralabs/sonora/internal/token"
)

const (
	verificationTTL  = 24 * time.Hour
	magicLinkTTL     = 15 * time.Minute
	passwordResetTTL = 1 * time.Hour
)

// OAuthProfile is what a federated provider vouches for after its
// token has been verified.
type OAuthProfile struct {
	Provider    domain.AuthProvider
	ExternalID  string
	Email       string
	DisplayName string
	PictureURL  *string
}

// AuthUsecase reconciles every inbound authentication event — signup,
// login, OAuth callback, magic link, password reset — onto exactly one
// canonical user row per email.
type AuthUsecase struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	codec    *token.Codec
	hasher   password.Hasher
	verifier *CredentialVerifier
	mailer   *email.Mailer
	logger   *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	codec *token.Codec,
	hasher password.Hasher,
	mailer *email.Mailer,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		tokens:   tokens,
		codec:    codec,
		hasher:   hasher,
		verifier: NewCredentialVerifier(users, hasher, logger),
		mailer:   mailer,
		logger:   logger.With("component", "auth_usecase"),
	}
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

// SignUp creates a local, unverified identity and issues an email
// verification token. The account cannot log in until the token is
// redeemed.
func (u *AuthUsecase) SignUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	if _, err := u.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("look up email: %w", err)
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, repository.NewUser{
		Email:         input.Email,
		DisplayName:   input.DisplayName,
		PasswordHash:  &hash,
		AuthProvider:  domain.ProviderLocal,
		EmailVerified: false,
	})
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.UsersCreatedTotal.WithLabelValues(string(domain.ProviderLocal)).Inc()

	value, err := u.issueToken(ctx, user.ID, domain.PurposeEmailVerification, verificationTTL)
	if err != nil {
		return nil, err
	}

	// Delivery is fire-and-forget: the token stays valid until expiry,
	// so a failed send is logged and the signup still succeeds.
	if err := u.mailer.SendVerification(ctx, user.Email, value); err != nil {
		u.logger.ErrorContext(ctx, "send verification email", "error", err, "user_id", user.ID)
	}

	return user, nil
}

// VerifyEmail redeems an email verification token and marks the
// referenced user verified.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error) {
	st, err := u.redeem(ctx, rawToken, domain.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}

	if err := u.users.MarkEmailVerified(ctx, st.UserID); err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	user, err := u.users.FindByID(ctx, st.UserID)
	if err != nil {
		return nil, fmt.Errorf("load verified user: %w", err)
	}
	return user, nil
}

// Login validates a local email/password pair.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, plaintext string) (*domain.User, error) {
	user, err := u.verifier.Verify(ctx, emailAddr, plaintext)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ProviderLocal), "failure").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(string(domain.ProviderLocal), "success").Inc()
	return user, nil
}

// RequestMagicLink resolves or creates the identity for emailAddr and
// issues a short-lived login token. An existing identity is left
// untouched: magic link is a login path for any email, whatever
// provider created it.
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = u.createForEmail(ctx, repository.NewUser{
			Email:         emailAddr,
			AuthProvider:  domain.ProviderMagicLink,
			EmailVerified: true,
		})
	}
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	value, err := u.issueToken(ctx, user.ID, domain.PurposeMagicLink, magicLinkTTL)
	if err != nil {
		return err
	}

	if err := u.mailer.SendMagicLink(ctx, emailAddr, value); err != nil {
		u.logger.ErrorContext(ctx, "send magic link email", "error", err, "user_id", user.ID)
	}
	return nil
}

// RedeemMagicLink exchanges a valid magic-link token for the identity
// it was issued to.
func (u *AuthUsecase) RedeemMagicLink(ctx context.Context, rawToken string) (*domain.User, error) {
	st, err := u.redeem(ctx, rawToken, domain.PurposeMagicLink)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ProviderMagicLink), "failure").Inc()
		return nil, err
	}

	user, err := u.users.FindByID(ctx, st.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues(string(domain.ProviderMagicLink), "success").Inc()
	return user, nil
}

// OAuthCallback reconciles a verified federated profile onto the
// canonical identity for its email: returning users match on
// (provider, external id); a known email gets the provider linked onto
// its existing row; an unknown one gets a fresh row. Linking never
// produces a second row for an email.
func (u *AuthUsecase) OAuthCallback(ctx context.Context, profile OAuthProfile) (*domain.User, error) {
	user, err := u.users.FindByProviderIdentity(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		metrics.LoginsTotal.WithLabelValues(string(profile.Provider), "success").Inc()
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("look up provider identity: %w", err)
	}

	if profile.Email != "" {
		user, err = u.users.FindByEmail(ctx, profile.Email)
		if err == nil {
			// Account linking: the provider vouches for the email, so
			// the existing row is taken over without re-proving the
			// local password.
			if err := u.users.LinkProvider(ctx, user.ID, profile.Provider, profile.ExternalID); err != nil {
				return nil, fmt.Errorf("link provider: %w", err)
			}
			linked, err := u.users.FindByID(ctx, user.ID)
			if err != nil {
				return nil, fmt.Errorf("load linked user: %w", err)
			}
			metrics.LoginsTotal.WithLabelValues(string(profile.Provider), "success").Inc()
			return linked, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("look up email: %w", err)
		}
	}

	// Some providers withhold the email; synthesize a unique stand-in
	// so the email column stays non-null and unique.
	emailAddr := profile.Email
	if emailAddr == "" {
		emailAddr = fmt.Sprintf("%s@%s.oauth", profile.ExternalID, profile.Provider)
	}

	externalID := profile.ExternalID
	created, err := u.createForEmail(ctx, repository.NewUser{
		Email:           emailAddr,
		DisplayName:     profile.DisplayName,
		ExternalID:      &externalID,
		ProfileImageURL: profile.PictureURL,
		AuthProvider:    profile.Provider,
		EmailVerified:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues(string(profile.Provider), "success").Inc()
	return created, nil
}

// RequestPasswordReset issues a reset token for a local account. A
// missing or non-local account is reported as success to the caller
// with no token issued, so the response leaks nothing.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			u.logger.InfoContext(ctx, "password reset for unknown email", "reason", "no_such_user")
			return nil
		}
		return fmt.Errorf("look up email: %w", err)
	}
	if user.AuthProvider != domain.ProviderLocal {
		u.logger.InfoContext(ctx, "password reset for non-local account", "user_id", user.ID)
		return nil
	}

	value, err := u.issueToken(ctx, user.ID, domain.PurposePasswordReset, passwordResetTTL)
	if err != nil {
		return err
	}

	if err := u.mailer.SendPasswordReset(ctx, emailAddr, value); err != nil {
		u.logger.ErrorContext(ctx, "send password reset email", "error", err, "user_id", user.ID)
	}
	return nil
}

// ResetPassword redeems a reset token and replaces the stored hash.
func (u *AuthUsecase) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	st, err := u.redeem(ctx, rawToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := u.users.UpdatePasswordHash(ctx, st.UserID, hash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// createForEmail inserts a row and, when the unique-email constraint
// says someone else got there first, retries as a lookup.
func (u *AuthUsecase) createForEmail(ctx context.Context, nu repository.NewUser) (*domain.User, error) {
	created, err := u.users.Create(ctx, nu)
	if err == nil {
		metrics.UsersCreatedTotal.WithLabelValues(string(nu.AuthProvider)).Inc()
		return created, nil
	}
	if !errors.Is(err, domain.ErrEmailTaken) {
		return nil, err
	}
	return u.users.FindByEmail(ctx, nu.Email)
}

// issueToken signs a value, records it in the ledger and returns it for
// out-of-band delivery.
func (u *AuthUsecase) issueToken(ctx context.Context, userID int64, purpose domain.TokenPurpose, ttl time.Duration) (string, error) {
	expiresAt := time.Now().Add(ttl)
	value, err := u.codec.Issue(userID, purpose, ttl)
	if err != nil {
		return "", err
	}

	st := &domain.SecurityToken{
		UserID:    userID,
		Token:     value,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}
	if err := u.tokens.Create(ctx, st); err != nil {
		return "", fmt.Errorf("record token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(purpose)).Inc()
	return value, nil
}

// redeem runs the stateless signature check, then the atomic ledger
// claim. Both must pass: the signature guards against forgery, the
// ledger against replay.
func (u *AuthUsecase) redeem(ctx context.Context, rawToken string, purpose domain.TokenPurpose) (*domain.SecurityToken, error) {
	decoded, err := u.codec.Decode(rawToken)
	if err != nil {
		metrics.TokenRedemptionsTotal.WithLabelValues(string(purpose), "invalid").Inc()
		return nil, err
	}
	if decoded.Purpose != purpose {
		metrics.TokenRedemptionsTotal.WithLabelValues(string(purpose), "purpose_mismatch").Inc()
		return nil, domain.ErrTokenPurposeMismatch
	}

	st, err := u.tokens.Redeem(ctx, rawToken, purpose)
	if err != nil {
		metrics.TokenRedemptionsTotal.WithLabelValues(string(purpose), redemptionOutcome(err)).Inc()
		return nil, err
	}
	metrics.TokenRedemptionsTotal.WithLabelValues(string(purpose), "ok").Inc()
	return st, nil
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTokenPurposeMismatch):
		return "purpose_mismatch"
	default:
		return "error"
	}
}
