package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonoralabs/sonora/internal/domain"
)

const tokenColumns = `id, user_id, token, purpose, expires_at, used, created_at`

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.SecurityToken) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO security_tokens (user_id, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.UserID, t.Token, t.Purpose, t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// Redeem claims the token in a single compare-and-set UPDATE. Under
// concurrent redemption of the same value exactly one caller gets the
// row back; everyone else falls through to classification, which never
// mutates state.
func (r *TokenRepository) Redeem(ctx context.Context, value string, purpose domain.TokenPurpose) (*domain.SecurityToken, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE security_tokens
		SET used = TRUE
		WHERE token = $1
		  AND purpose = $2
		  AND used = FALSE
		  AND expires_at > NOW()
		RETURNING `+tokenColumns,
		value, purpose,
	)

	var t domain.SecurityToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.Purpose, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redeem token: %w", err)
	}

	return nil, r.classify(ctx, value, purpose)
}

// classify explains a failed claim: missing row, already used, expired,
// or minted for a different purpose, checked in that order.
func (r *TokenRepository) classify(ctx context.Context, value string, purpose domain.TokenPurpose) error {
	var (
		gotPurpose domain.TokenPurpose
		used       bool
		expiresAt  time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT purpose, used, expires_at FROM security_tokens WHERE token = $1`,
		value,
	).Scan(&gotPurpose, &used, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTokenNotFound
		}
		return fmt.Errorf("classify token: %w", err)
	}

	switch {
	case used:
		return domain.ErrTokenAlreadyUsed
	case !expiresAt.After(time.Now()):
		return domain.ErrTokenExpired
	case gotPurpose != purpose:
		return domain.ErrTokenPurposeMismatch
	default:
		// The CAS should have succeeded; treat as a lost race.
		return domain.ErrTokenAlreadyUsed
	}
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM security_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
