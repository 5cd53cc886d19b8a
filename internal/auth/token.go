// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/samber/oops"
)

// Access token configuration.
const (
	AccessTokenBytes  = 32             // 32 bytes = 43 URL-safe base64 chars
	AccessTokenExpiry = 24 * time.Hour // default lifetime
)

// BearerPrefix is stripped positionally from the Authorization header.
// The scheme is not case- or format-checked.
const BearerPrefix = "Bearer "

// TokenType is reported to clients alongside a newly issued token.
const TokenType = "Bearer"

// AccessToken is the single active bearer credential of a user.
type AccessToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// IsExpiredAt returns true if the token is past its expiration at t.
func (a *AccessToken) IsExpiredAt(t time.Time) bool {
	return a.ExpiresAt.Before(t)
}

// TokenOwner is a token row joined with the user that owns it.
type TokenOwner struct {
	Token AccessToken
	User  Identity
}

// GenerateAccessToken returns AccessTokenBytes of crypto/rand entropy,
// URL-safe base64 encoded without padding.
func GenerateAccessToken() (string, error) {
	b := make([]byte, AccessTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code(CodeTokenIssueFailed).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", AccessTokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StripBearer removes BearerPrefix from an Authorization header value.
// Values no longer than the prefix are rejected.
func StripBearer(header string) (string, error) {
	if len(header) <= len(BearerPrefix) {
		return "", oops.Code(CodeTokenMissing).Errorf("missing bearer token")
	}
	return header[len(BearerPrefix):], nil
}

// TokenRepository manages access token persistence.
type TokenRepository interface {
	// Upsert inserts the token, replacing any existing token of the same
	// user in a single statement. Returns the stored row.
	Upsert(ctx context.Context, token *AccessToken) (*AccessToken, error)

	// GetOwner retrieves a token joined with its user.
	// Returns ErrNotFound if no row matches.
	GetOwner(ctx context.Context, token string) (*TokenOwner, error)

	// DeleteByUser removes the user's token. Deleting an absent token
	// is not an error.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes tokens that expired before the given time and
	// returns the count of deleted rows.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
