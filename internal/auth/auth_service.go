// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides authentication operations.
type Service struct {
	users  UserRepository
	tokens *TokenService
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAuthService creates a new Service using the default logger.
func NewAuthService(users UserRepository, tokens *TokenService, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, tokens, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(users UserRepository, tokens *TokenService, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
	}, nil
}

// dummyPasswordHash is verified against when the email is unknown so the
// response takes as long as a real mismatch.
//
//nolint:gosec // G101: not a credential.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Login authenticates a user by email and password and issues a new access
// token, replacing any token the user already held.
//
// Unknown emails and wrong passwords return the same CodeInvalidCredentials
// error. Unverified accounts return CodeUnverified whatever the password.
func (s *Service) Login(ctx context.Context, email, password string) (*AccessToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Authenticate checks credentials without issuing a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(password, dummyPasswordHash)
			s.logger.InfoContext(ctx, "login rejected", "reason", "user_not_found")
			return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
		}
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "get user by email").
			Wrap(err)
	}

	if !user.Verified {
		s.logger.InfoContext(ctx, "login rejected", "reason", "unverified", "user_id", user.ID)
		return nil, oops.Code(CodeUnverified).
			With("user_id", user.ID).
			Public("Unverified account.").
			Errorf("unverified account")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.InfoContext(ctx, "login rejected", "reason", "bad_password", "user_id", user.ID)
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash rehashes the password at the current cost. Failures are
// logged and the login proceeds.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"user_id", user.ID, "operation", "hash", "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"user_id", user.ID, "operation", "update_password", "error", err)
		return
	}
	user.PasswordHash = hash
}

// Logout revokes the caller's access token.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.tokens.Revoke(ctx, userID)
}
