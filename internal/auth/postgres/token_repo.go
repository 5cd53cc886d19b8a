// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool poolIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool poolIface) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Upsert stores the token, replacing the user's previous token atomically
// via the user_id unique constraint.
func (r *TokenRepository) Upsert(ctx context.Context, token *auth.AccessToken) (*auth.AccessToken, error) {
	var stored auth.AccessToken
	err := r.pool.QueryRow(ctx, `
		INSERT INTO access_tokens (access_token, user_id, expiration_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    expiration_date = EXCLUDED.expiration_date
		RETURNING access_token, user_id, expiration_date
	`, token.Token, token.UserID, token.ExpiresAt).Scan(
		&stored.Token,
		&stored.UserID,
		&stored.ExpiresAt,
	)
	if err != nil {
		return nil, oops.Code("TOKEN_UPSERT_FAILED").
			With("operation", "upsert access token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return &stored, nil
}

// GetOwner retrieves a token joined with the user that owns it.
func (r *TokenRepository) GetOwner(ctx context.Context, token string) (*auth.TokenOwner, error) {
	var owner auth.TokenOwner
	err := r.pool.QueryRow(ctx, `
		SELECT t.access_token, t.user_id, t.expiration_date, u.email, u.username
		FROM access_tokens t
		JOIN users u ON t.user_id = u.id
		WHERE t.access_token = $1
	`, token).Scan(
		&owner.Token.Token,
		&owner.Token.UserID,
		&owner.Token.ExpiresAt,
		&owner.User.Email,
		&owner.User.Username,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get token owner").
			Wrap(err)
	}
	owner.User.ID = owner.Token.UserID
	return &owner, nil
}

// DeleteByUser removes the user's token if present.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID); err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete token by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes tokens whose expiration is before the given time.
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE expiration_date < $1`, before)
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
