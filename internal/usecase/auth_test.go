package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/email"
	"github.com/sonoralabs/sonora/internal/password"
	"github.com/sonoralabs/sonora/internal/repository"
	"github.com/sonoralabs/sonora/internal/token"
	"github.com/sonoralabs/sonora/internal/usecase"
)

// ---- fakes ----

type fakeUserRepo struct {
	findByID               func(ctx context.Context, id int64) (*domain.User, error)
	findByEmail            func(ctx context.Context, email string) (*domain.User, error)
	findByProviderIdentity func(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error)
	create                 func(ctx context.Context, u repository.NewUser) (*domain.User, error)
	linkProvider           func(ctx context.Context, id int64, provider domain.AuthProvider, externalID string) error
	markEmailVerified      func(ctx context.Context, id int64) error
	updatePasswordHash     func(ctx context.Context, id int64, hash string) error
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByProviderIdentity(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
	return r.findByProviderIdentity(ctx, provider, externalID)
}

func (r *fakeUserRepo) Create(ctx context.Context, u repository.NewUser) (*domain.User, error) {
	return r.create(ctx, u)
}

func (r *fakeUserRepo) LinkProvider(ctx context.Context, id int64, provider domain.AuthProvider, externalID string) error {
	return r.linkProvider(ctx, id, provider, externalID)
}

func (r *fakeUserRepo) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.markEmailVerified(ctx, id)
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.updatePasswordHash(ctx, id, hash)
}

// memLedger is an in-memory TokenRepository with the same single-use
// guarantee as the postgres implementation.
type memLedger struct {
	mu   sync.Mutex
	rows map[string]*domain.SecurityToken
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*domain.SecurityToken)}
}

func (l *memLedger) Create(_ context.Context, t *domain.SecurityToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *t
	l.rows[t.Token] = &cp
	return nil
}

func (l *memLedger) Redeem(_ context.Context, value string, purpose domain.TokenPurpose) (*domain.SecurityToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[value]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if row.Used {
		return nil, domain.ErrTokenAlreadyUsed
	}
	if !row.ExpiresAt.After(time.Now()) {
		return nil, domain.ErrTokenExpired
	}
	if row.Purpose != purpose {
		return nil, domain.ErrTokenPurposeMismatch
	}

	row.Used = true
	cp := *row
	return &cp, nil
}

func (l *memLedger) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int64
	for k, row := range l.rows {
		if row.ExpiresAt.Before(cutoff) {
			delete(l.rows, k)
			removed++
		}
	}
	return removed, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return s.err
}

func (s *fakeSender) last(t *testing.T) sentMail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no email was sent")
	}
	return s.sent[len(s.sent)-1]
}

// fakeHasher marks hashes with a prefix so tests can assert on them
// without paying for bcrypt.
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (fakeHasher) Compare(plaintext, hash string) bool { return hash == "hashed:"+plaintext }

var _ password.Hasher = fakeHasher{}

// ---- helpers ----

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newAuth(users repository.UserRepository, tokens repository.TokenRepository, sender *fakeSender) *usecase.AuthUsecase {
	codec := token.NewCodec([]byte(testJWTKey))
	mailer := email.NewMailer(sender, "http://localhost:8080")
	return usecase.NewAuthUsecase(users, tokens, codec, fakeHasher{}, mailer, testLogger())
}

// tokenFromEmail extracts the raw token embedded in the emailed link.
func tokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "?token=")
	if idx == -1 {
		t.Fatal("email body does not contain ?token=")
	}
	return strings.SplitN(body[idx+len("?token="):], `"`, 2)[0]
}

func strPtr(s string) *string { return &s }

var testUser = &domain.User{
	ID:            1,
	Email:         "test@example.com",
	DisplayName:   "Test",
	AuthProvider:  domain.ProviderLocal,
	EmailVerified: true,
}

// ---- SignUp ----

func TestSignUp_EmailTaken_NoRowCreated(t *testing.T) {
	created := false
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return testUser, nil
		},
		create: func(_ context.Context, _ repository.NewUser) (*domain.User, error) {
			created = true
			return nil, nil
		},
	}

	_, err := newAuth(users, newMemLedger(), &fakeSender{}).SignUp(context.Background(), usecase.SignUpInput{
		Email: testUser.Email, Password: "p1", DisplayName: "X",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
	if created {
		t.Error("a row was created for a taken email")
	}
}

func TestSignUp_CreatesUnverifiedLocalUser(t *testing.T) {
	var captured repository.NewUser
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			captured = u
			return &domain.User{ID: 9, Email: u.Email, AuthProvider: u.AuthProvider}, nil
		},
	}

	user, err := newAuth(users, newMemLedger(), &fakeSender{}).SignUp(context.Background(), usecase.SignUpInput{
		Email: "a@x.com", Password: "p1", DisplayName: "A",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 9 {
		t.Errorf("user id %d != 9", user.ID)
	}
	if captured.AuthProvider != domain.ProviderLocal {
		t.Errorf("provider %q != local", captured.AuthProvider)
	}
	if captured.EmailVerified {
		t.Error("signup must start unverified")
	}
	if captured.PasswordHash == nil || *captured.PasswordHash != "hashed:p1" {
		t.Errorf("password hash not stored, got %v", captured.PasswordHash)
	}
}

func TestSignUp_IssuesVerificationToken(t *testing.T) {
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			return &domain.User{ID: 9, Email: u.Email}, nil
		},
	}
	ledger := newMemLedger()
	sender := &fakeSender{}

	if _, err := newAuth(users, ledger, sender).SignUp(context.Background(), usecase.SignUpInput{
		Email: "a@x.com", Password: "p1", DisplayName: "A",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := tokenFromEmail(t, sender.last(t).body)
	decoded, err := token.NewCodec([]byte(testJWTKey)).Decode(raw)
	if err != nil {
		t.Fatalf("emailed token does not decode: %v", err)
	}
	if decoded.Purpose != domain.PurposeEmailVerification {
		t.Errorf("purpose %q != email_verification", decoded.Purpose)
	}
	if decoded.UserID != 9 {
		t.Errorf("subject %d != 9", decoded.UserID)
	}
	if ttl := time.Until(decoded.ExpiresAt); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("verification TTL %v not ~24h", ttl)
	}
	if ledger.count() != 1 {
		t.Errorf("ledger rows = %d, want 1", ledger.count())
	}
}

func TestSignUp_MailFailure_StillSucceeds(t *testing.T) {
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			return &domain.User{ID: 9, Email: u.Email}, nil
		},
	}

	_, err := newAuth(users, newMemLedger(), &fakeSender{err: errors.New("smtp unavailable")}).
		SignUp(context.Background(), usecase.SignUpInput{Email: "a@x.com", Password: "p1", DisplayName: "A"})
	if err != nil {
		t.Fatalf("delivery failure must not fail signup: %v", err)
	}
}

// ---- VerifyEmail ----

// signedUpUser runs a signup against a shared ledger and returns the
// raw verification token from the captured email.
func signedUpUser(t *testing.T, ledger *memLedger, verified *bool) (*usecase.AuthUsecase, string) {
	t.Helper()
	sender := &fakeSender{}
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			return &domain.User{ID: 9, Email: u.Email}, nil
		},
		markEmailVerified: func(_ context.Context, id int64) error {
			if id != 9 {
				t.Errorf("verified wrong user %d", id)
			}
			*verified = true
			return nil
		},
		findByID: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id, Email: "a@x.com", EmailVerified: *verified}, nil
		},
	}

	auth := newAuth(users, ledger, sender)
	if _, err := auth.SignUp(context.Background(), usecase.SignUpInput{
		Email: "a@x.com", Password: "p1", DisplayName: "A",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	return auth, tokenFromEmail(t, sender.last(t).body)
}

func TestVerifyEmail_MarksVerified_ThenRejectsReplay(t *testing.T) {
	verified := false
	auth, raw := signedUpUser(t, newMemLedger(), &verified)

	user, err := auth.VerifyEmail(context.Background(), raw)
	if err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if !verified || !user.EmailVerified {
		t.Error("user not marked verified")
	}

	if _, err := auth.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Fatalf("replay: want ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestVerifyEmail_ConcurrentRedemption_ExactlyOneOk(t *testing.T) {
	verified := false
	auth, raw := signedUpUser(t, newMemLedger(), &verified)

	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		oks     int
		replays int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.VerifyEmail(context.Background(), raw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, domain.ErrTokenAlreadyUsed):
				replays++
			default:
				t.Errorf("unexpected outcome: %v", err)
			}
		}()
	}
	wg.Wait()

	if oks != 1 {
		t.Errorf("%d redemptions succeeded, want exactly 1", oks)
	}
	if replays != n-1 {
		t.Errorf("%d replays observed, want %d", replays, n-1)
	}
}

func TestVerifyEmail_ForgedToken_Invalid(t *testing.T) {
	verified := false
	auth, _ := signedUpUser(t, newMemLedger(), &verified)

	forged, err := token.NewCodec([]byte("attacker-key-also-32-characters!!!!!")).
		Issue(9, domain.PurposeEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}

	if _, err := auth.VerifyEmail(context.Background(), forged); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyEmail_WrongPurpose_Mismatch(t *testing.T) {
	ledger := newMemLedger()
	sender := &fakeSender{}
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return testUser, nil
		},
	}

	auth := newAuth(users, ledger, sender)
	if err := auth.RequestMagicLink(context.Background(), testUser.Email); err != nil {
		t.Fatalf("request magic link: %v", err)
	}
	raw := tokenFromEmail(t, sender.last(t).body)

	if _, err := auth.VerifyEmail(context.Background(), raw); !errors.Is(err, domain.ErrTokenPurposeMismatch) {
		t.Fatalf("want ErrTokenPurposeMismatch, got %v", err)
	}
}

// ---- Magic link ----

func TestRequestMagicLink_NewEmail_CreatesVerifiedUser(t *testing.T) {
	var captured repository.NewUser
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			captured = u
			return &domain.User{ID: 3, Email: u.Email, AuthProvider: u.AuthProvider, EmailVerified: u.EmailVerified}, nil
		},
	}
	sender := &fakeSender{}

	if err := newAuth(users, newMemLedger(), sender).RequestMagicLink(context.Background(), "new@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.AuthProvider != domain.ProviderMagicLink {
		t.Errorf("provider %q != magic_link", captured.AuthProvider)
	}
	if !captured.EmailVerified {
		t.Error("magic-link user must start verified")
	}
	if captured.PasswordHash != nil {
		t.Error("magic-link user must have no password")
	}

	raw := tokenFromEmail(t, sender.last(t).body)
	decoded, err := token.NewCodec([]byte(testJWTKey)).Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ttl := time.Until(decoded.ExpiresAt); ttl > 15*time.Minute || ttl < 14*time.Minute {
		t.Errorf("magic link TTL %v not ~15m", ttl)
	}
}

func TestRequestMagicLink_ExistingUser_Unmodified(t *testing.T) {
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return testUser, nil
		},
		create: func(_ context.Context, _ repository.NewUser) (*domain.User, error) {
			t.Error("existing identity must not be re-created")
			return nil, nil
		},
		linkProvider: func(_ context.Context, _ int64, _ domain.AuthProvider, _ string) error {
			t.Error("existing identity must not be relinked")
			return nil
		},
	}

	if err := newAuth(users, newMemLedger(), &fakeSender{}).RequestMagicLink(context.Background(), testUser.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedeemMagicLink_WithinTTL_ReturnsUser(t *testing.T) {
	ledger := newMemLedger()
	sender := &fakeSender{}
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return testUser, nil
		},
		findByID: func(_ context.Context, id int64) (*domain.User, error) {
			if id != testUser.ID {
				return nil, domain.ErrUserNotFound
			}
			return testUser, nil
		},
	}

	auth := newAuth(users, ledger, sender)
	if err := auth.RequestMagicLink(context.Background(), testUser.Email); err != nil {
		t.Fatalf("request: %v", err)
	}
	raw := tokenFromEmail(t, sender.last(t).body)

	user, err := auth.RedeemMagicLink(context.Background(), raw)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if user.ID != testUser.ID {
		t.Errorf("resolved user %d != %d", user.ID, testUser.ID)
	}
}

func TestRedeemMagicLink_AfterExpiry_Expired(t *testing.T) {
	ledger := newMemLedger()
	codec := token.NewCodec([]byte(testJWTKey))

	raw, err := codec.Issue(testUser.ID, domain.PurposeMagicLink, -time.Second)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ledger.Create(context.Background(), &domain.SecurityToken{
		UserID: testUser.ID, Token: raw,
		Purpose: domain.PurposeMagicLink, ExpiresAt: time.Now().Add(-time.Second),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	auth := newAuth(&fakeUserRepo{}, ledger, &fakeSender{})
	if _, err := auth.RedeemMagicLink(context.Background(), raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

// ---- OAuth callback ----

func TestOAuthCallback_ReturningUser_FastPath(t *testing.T) {
	existing := &domain.User{ID: 5, Email: "g@x.com", AuthProvider: domain.ProviderGoogle, ExternalID: strPtr("sub-1")}
	users := &fakeUserRepo{
		findByProviderIdentity: func(_ context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
			if provider == domain.ProviderGoogle && externalID == "sub-1" {
				return existing, nil
			}
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, _ repository.NewUser) (*domain.User, error) {
			t.Error("fast path must not create")
			return nil, nil
		},
		linkProvider: func(_ context.Context, _ int64, _ domain.AuthProvider, _ string) error {
			t.Error("fast path must not relink")
			return nil
		},
	}

	user, err := newAuth(users, newMemLedger(), &fakeSender{}).OAuthCallback(context.Background(), usecase.OAuthProfile{
		Provider: domain.ProviderGoogle, ExternalID: "sub-1", Email: "g@x.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 5 {
		t.Errorf("user %d != 5", user.ID)
	}
}

func TestOAuthCallback_ExistingEmail_LinksWithoutDuplicate(t *testing.T) {
	local := &domain.User{ID: 7, Email: "a@x.com", AuthProvider: domain.ProviderLocal, EmailVerified: false}
	var linkedProvider domain.AuthProvider
	var linkedExternal string
	users := &fakeUserRepo{
		findByProviderIdentity: func(_ context.Context, _ domain.AuthProvider, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		findByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email == local.Email {
				return local, nil
			}
			return nil, domain.ErrUserNotFound
		},
		linkProvider: func(_ context.Context, id int64, provider domain.AuthProvider, externalID string) error {
			if id != local.ID {
				t.Errorf("linked wrong user %d", id)
			}
			linkedProvider, linkedExternal = provider, externalID
			return nil
		},
		findByID: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{
				ID: id, Email: local.Email,
				AuthProvider: linkedProvider, ExternalID: &linkedExternal, EmailVerified: true,
			}, nil
		},
		create: func(_ context.Context, _ repository.NewUser) (*domain.User, error) {
			t.Error("linking must not create a second row")
			return nil, nil
		},
	}

	user, err := newAuth(users, newMemLedger(), &fakeSender{}).OAuthCallback(context.Background(), usecase.OAuthProfile{
		Provider: domain.ProviderGoogle, ExternalID: "sub-9", Email: "a@x.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if linkedProvider != domain.ProviderGoogle || linkedExternal != "sub-9" {
		t.Errorf("linked (%q, %q), want (google, sub-9)", linkedProvider, linkedExternal)
	}
	if !user.EmailVerified {
		t.Error("linking must force email_verified")
	}
}

func TestOAuthCallback_UnknownEmail_CreatesVerifiedUser(t *testing.T) {
	var captured repository.NewUser
	users := &fakeUserRepo{
		findByProviderIdentity: func(_ context.Context, _ domain.AuthProvider, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			captured = u
			return &domain.User{ID: 11, Email: u.Email, AuthProvider: u.AuthProvider, EmailVerified: u.EmailVerified}, nil
		},
	}

	user, err := newAuth(users, newMemLedger(), &fakeSender{}).OAuthCallback(context.Background(), usecase.OAuthProfile{
		Provider: domain.ProviderGoogle, ExternalID: "sub-2", Email: "new@x.com",
		DisplayName: "New", PictureURL: strPtr("https://lh3.example/p.jpg"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.AuthProvider != domain.ProviderGoogle {
		t.Errorf("provider %q != google", captured.AuthProvider)
	}
	if captured.DisplayName != "New" {
		t.Errorf("display name %q not carried from the provider profile", captured.DisplayName)
	}
	if captured.ProfileImageURL == nil || *captured.ProfileImageURL != "https://lh3.example/p.jpg" {
		t.Errorf("profile image %v not carried from the provider profile", captured.ProfileImageURL)
	}
	if captured.ExternalID == nil || *captured.ExternalID != "sub-2" {
		t.Errorf("external id %v != sub-2", captured.ExternalID)
	}
	if !captured.EmailVerified {
		t.Error("oauth-created user must start verified")
	}
	if captured.PasswordHash != nil {
		t.Error("oauth-created user must have no password")
	}
	if user.ID != 11 {
		t.Errorf("user %d != 11", user.ID)
	}
}

func TestOAuthCallback_CreateRace_FallsBackToLookup(t *testing.T) {
	winner := &domain.User{ID: 13, Email: "race@x.com", AuthProvider: domain.ProviderGoogle, EmailVerified: true}
	lookups := 0
	users := &fakeUserRepo{
		findByProviderIdentity: func(_ context.Context, _ domain.AuthProvider, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			lookups++
			if lookups == 1 {
				// First lookup loses the race with a concurrent create.
				return nil, domain.ErrUserNotFound
			}
			return winner, nil
		},
		create: func(_ context.Context, _ repository.NewUser) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}

	user, err := newAuth(users, newMemLedger(), &fakeSender{}).OAuthCallback(context.Background(), usecase.OAuthProfile{
		Provider: domain.ProviderGoogle, ExternalID: "sub-3", Email: "race@x.com",
	})
	if err != nil {
		t.Fatalf("racing create must resolve, got %v", err)
	}
	if user.ID != winner.ID {
		t.Errorf("resolved user %d != %d", user.ID, winner.ID)
	}
}

func TestOAuthCallback_NoEmail_SynthesizesAddress(t *testing.T) {
	var captured repository.NewUser
	users := &fakeUserRepo{
		findByProviderIdentity: func(_ context.Context, _ domain.AuthProvider, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
		create: func(_ context.Context, u repository.NewUser) (*domain.User, error) {
			captured = u
			return &domain.User{ID: 14, Email: u.Email}, nil
		},
	}

	if _, err := newAuth(users, newMemLedger(), &fakeSender{}).OAuthCallback(context.Background(), usecase.OAuthProfile{
		Provider: domain.ProviderGoogle, ExternalID: "sub-4",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Email != "sub-4@google.oauth" {
		t.Errorf("synthesized email %q", captured.Email)
	}
}

// ---- Password reset ----

func TestRequestPasswordReset_UnknownEmail_SilentNoToken(t *testing.T) {
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	ledger := newMemLedger()
	sender := &fakeSender{}

	if err := newAuth(users, ledger, sender).RequestPasswordReset(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("must report success for unknown email, got %v", err)
	}
	if ledger.count() != 0 {
		t.Error("no token row may be created for an unknown email")
	}
	if len(sender.sent) != 0 {
		t.Error("no email may be sent for an unknown email")
	}
}

func TestRequestPasswordReset_NonLocalAccount_SilentNoToken(t *testing.T) {
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: 2, Email: "g@x.com", AuthProvider: domain.ProviderGoogle, EmailVerified: true}, nil
		},
	}
	ledger := newMemLedger()

	if err := newAuth(users, ledger, &fakeSender{}).RequestPasswordReset(context.Background(), "g@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.count() != 0 {
		t.Error("no token row may be created for a non-local account")
	}
}

func TestResetPassword_OverwritesHash(t *testing.T) {
	var newHash string
	users := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return testUser, nil
		},
		updatePasswordHash: func(_ context.Context, id int64, hash string) error {
			if id != testUser.ID {
				t.Errorf("updated wrong user %d", id)
			}
			newHash = hash
			return nil
		},
	}
	ledger := newMemLedger()
	sender := &fakeSender{}

	auth := newAuth(users, ledger, sender)
	if err := auth.RequestPasswordReset(context.Background(), testUser.Email); err != nil {
		t.Fatalf("request: %v", err)
	}

	raw := tokenFromEmail(t, sender.last(t).body)
	decoded, err := token.NewCodec([]byte(testJWTKey)).Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ttl := time.Until(decoded.ExpiresAt); ttl > time.Hour || ttl < 59*time.Minute {
		t.Errorf("reset TTL %v not ~1h", ttl)
	}

	if err := auth.ResetPassword(context.Background(), raw, "brand-new-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if newHash != "hashed:brand-new-pass" {
		t.Errorf("stored hash %q", newHash)
	}

	if err := auth.ResetPassword(context.Background(), raw, "again"); !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Fatalf("replay: want ErrTokenAlreadyUsed, got %v", err)
	}
}
