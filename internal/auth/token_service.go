// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// TokenService mints, validates and revokes access tokens.
type TokenService struct {
	tokens TokenRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenTTL sets the lifetime of issued tokens. Non-positive values are ignored.
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenLogger sets the logger. A nil logger is ignored.
func WithTokenLogger(logger *slog.Logger) TokenServiceOption {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens TokenRepository, opts ...TokenServiceOption) (*TokenService, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	s := &TokenService{
		tokens: tokens,
		ttl:    AccessTokenExpiry,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime applied to newly issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue mints a fresh token for the user and stores it, replacing any
// token the user already had.
func (s *TokenService) Issue(ctx context.Context, userID int64) (*AccessToken, error) {
	raw, err := GenerateAccessToken()
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.Upsert(ctx, &AccessToken{
		Token:     raw,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	})
	if err != nil {
		return nil, oops.Code(CodeTokenIssueFailed).
			With("operation", "upsert token").
			With("user_id", userID).
			Wrap(err)
	}
	return stored, nil
}

// Validate authenticates an Authorization header value and returns the
// identity of the token owner. Expired tokens are rejected but left in
// place.
func (s *TokenService) Validate(ctx context.Context, header string) (Identity, error) {
	raw, err := StripBearer(header)
	if err != nil {
		return Identity{}, err
	}

	owner, err := s.tokens.GetOwner(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code(CodeTokenInvalid).Errorf("invalid access token")
		}
		return Identity{}, oops.Code(CodeTokenValidateFailed).
			With("operation", "get token owner").
			Wrap(err)
	}

	if owner.Token.IsExpiredAt(s.now()) {
		return Identity{}, oops.Code(CodeTokenExpired).
			With("user_id", owner.User.ID).
			With("expired_at", owner.Token.ExpiresAt).
			Errorf("access token has expired")
	}

	return owner.User, nil
}

// Revoke deletes the user's token. Revoking when no token exists succeeds.
func (s *TokenService) Revoke(ctx context.Context, userID int64) error {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		return oops.Code(CodeTokenRevokeFailed).
			With("operation", "delete token").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// Prune deletes every token already expired and returns how many were removed.
func (s *TokenService) Prune(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code(CodeTokenPruneFailed).
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "pruned expired access tokens", "count", n)
	}
	return n, nil
}
