// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AccountService manages account lifecycle: registration, confirmation,
// profile changes, password reset and email change.
type AccountService struct {
	users    UserRepository
	tokens   *TokenService
	hasher   PasswordHasher
	notifier Notifier
	codes    CodeSource
	logger   *slog.Logger
}

// AccountServiceOption configures an AccountService.
type AccountServiceOption func(*AccountService)

// WithCodeSource overrides how verification codes are drawn.
func WithCodeSource(codes CodeSource) AccountServiceOption {
	return func(s *AccountService) {
		if codes != nil {
			s.codes = codes
		}
	}
}

// WithAccountLogger sets the logger. A nil logger is ignored.
func WithAccountLogger(logger *slog.Logger) AccountServiceOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	users UserRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	notifier Notifier,
	opts ...AccountServiceOption,
) (*AccountService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	s := &AccountService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		codes:    RandomCode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an unverified account and sends its verification code.
// If delivery fails the account stays registered; a password reset issues
// a fresh code.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(CodeAccountFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	code, err := s.codes()
	if err != nil {
		return nil, oops.Code(CodeAccountFailed).
			With("operation", "draw verification code").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash, code)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, emailTaken(email)
		}
		return nil, oops.Code(CodeAccountFailed).
			With("operation", "create user").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "account registered", "user_id", user.ID)

	if err := s.send(ctx, user.ID, email, code); err != nil {
		return nil, err
	}
	return user, nil
}

// Confirm marks the account verified when code matches the stored code.
// A second confirmation fails even with the right code.
func (s *AccountService) Confirm(ctx context.Context, email string, code int) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeConfirmUnknownEmail).
				Public("Can't find email.").
				Errorf("no account for email")
		}
		return oops.Code(CodeAccountFailed).
			With("operation", "get user by email").
			Wrap(err)
	}

	if user.Verified {
		return alreadyVerified(user.ID)
	}
	if !CodeMatches(user.VerificationCode, code) {
		return oops.Code(CodeCodeMismatch).
			With("user_id", user.ID).
			Public("Wrong email or verification code.").
			Errorf("verification code mismatch")
	}

	flipped, err := s.users.MarkVerified(ctx, user.ID)
	if err != nil {
		return oops.Code(CodeAccountFailed).
			With("operation", "mark verified").
			With("user_id", user.ID).
			Wrap(err)
	}
	if !flipped {
		return alreadyVerified(user.ID)
	}
	s.logger.InfoContext(ctx, "account verified", "user_id", user.ID)
	return nil
}

// Get returns the account with the given ID.
func (s *AccountService) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupErr(err, id)
	}
	return user, nil
}

// GetAsAdmin returns the account with the given ID if the caller is an
// administrator.
func (s *AccountService) GetAsAdmin(ctx context.Context, callerID, id int64) (*User, error) {
	caller, err := s.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin {
		return nil, oops.Code(CodeForbidden).
			With("user_id", callerID).
			Public("Not enough permissions.").
			Errorf("caller is not an administrator")
	}
	return s.Get(ctx, id)
}

// List returns every account.
func (s *AccountService) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code(CodeAccountFailed).
			With("operation", "list users").
			Wrap(err)
	}
	return users, nil
}

// UpdateUsername changes the display name and returns the updated account.
func (s *AccountService) UpdateUsername(ctx context.Context, id int64, username string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUsername(ctx, id, username); err != nil {
		return nil, s.lookupErr(err, id)
	}
	return s.Get(ctx, id)
}

// Delete revokes the account's token and removes the account.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return s.lookupErr(err, id)
	}
	s.logger.InfoContext(ctx, "account deleted", "user_id", id)
	return nil
}

// RequestPasswordReset stores a new code for the account and mails it.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.reissueCode(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.send(ctx, user.ID, user.Email, code)
}

// ConfirmPasswordReset replaces the password when code matches. The code
// stays valid until the next request overwrites it.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, email string, code int, password string) error {
	user, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	if !CodeMatches(user.VerificationCode, code) {
		return oops.Code(CodeCodeMismatch).
			With("user_id", user.ID).
			Public("Wrong verification code.").
			Errorf("verification code mismatch")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code(CodeAccountFailed).
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return s.lookupErr(err, user.ID)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

// RequestEmailChange stores a new code for the account and mails it to
// the new address.
func (s *AccountService) RequestEmailChange(ctx context.Context, id int64, newEmail string) error {
	if err := ValidateEmail(newEmail); err != nil {
		return err
	}
	code, err := s.reissueCode(ctx, id)
	if err != nil {
		return err
	}
	return s.send(ctx, id, newEmail, code)
}

// ConfirmEmailChange switches the account to newEmail when code matches.
func (s *AccountService) ConfirmEmailChange(ctx context.Context, id int64, newEmail string, code int) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CodeMatches(user.VerificationCode, code) {
		return oops.Code(CodeCodeMismatch).
			With("user_id", id).
			Public("Wrong code.").
			Errorf("verification code mismatch")
	}
	if err := ValidateEmail(newEmail); err != nil {
		return err
	}

	if err := s.users.UpdateEmail(ctx, id, newEmail); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return emailTaken(newEmail)
		}
		return s.lookupErr(err, id)
	}
	s.logger.InfoContext(ctx, "email changed", "user_id", id)
	return nil
}

func (s *AccountService) byEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAccountNotFound).
				Public("Can't find the email").
				Errorf("no account for email")
		}
		return nil, oops.Code(CodeAccountFailed).
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

func (s *AccountService) reissueCode(ctx context.Context, id int64) (int, error) {
	code, err := s.codes()
	if err != nil {
		return 0, oops.Code(CodeAccountFailed).
			With("operation", "draw verification code").
			Wrap(err)
	}
	if err := s.users.SetVerificationCode(ctx, id, code); err != nil {
		return 0, s.lookupErr(err, id)
	}
	return code, nil
}

func (s *AccountService) send(ctx context.Context, id int64, email string, code int) error {
	if err := s.notifier.SendVerificationCode(ctx, email, code); err != nil {
		return oops.Code(CodeNotificationFailed).
			With("operation", "send verification code").
			With("user_id", id).
			Wrap(err)
	}
	return nil
}

func (s *AccountService) lookupErr(err error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeAccountNotFound).
			With("user_id", id).
			Public("User not found").
			Errorf("account does not exist")
	}
	return oops.Code(CodeAccountFailed).
		With("user_id", id).
		Wrap(err)
}

func emailTaken(email string) error {
	return oops.Code(CodeEmailTaken).
		With("email", email).
		Public("Email already exists.").
		Errorf("email already registered")
}

func alreadyVerified(id int64) error {
	return oops.Code(CodeAlreadyVerified).
		With("user_id", id).
		Public("Wrong email or verification code.").
		Errorf("account already verified")
}
