// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"

	"github.com/samber/oops"
)

// MaxUsernameLength bounds the display name.
const MaxUsernameLength = 64

// User represents an account.
type User struct {
	ID               int64
	Username         string
	Email            string
	PasswordHash     string
	Verified         bool
	VerificationCode *int
	IsAdmin          bool
}

// Identity is the subset of a user handed to request handlers once a token
// has been validated.
type Identity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Identity returns the user's public identity.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Username: u.Username}
}

// NewUser creates a validated, unverified User with the given verification
// code. The ID is assigned by the repository on Create.
func NewUser(username, email, passwordHash string, code int) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}
	if !ValidCode(code) {
		return nil, oops.Code(CodeInvalidInput).With("code", code).Errorf("verification code out of range")
	}

	return &User{
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
		Verified:         false,
		VerificationCode: &code,
		IsAdmin:          false,
	}, nil
}

// ValidateUsername rejects empty or oversized display names.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return oops.Code(CodeInvalidInput).Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidInput).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// ValidateEmail checks that email is a bare RFC 5322 address. The address is
// stored exactly as given; lookups are case-sensitive.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code(CodeInvalidInput).With("email", email).Errorf("email is not a valid address")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and sets its ID. Returns ErrDuplicateEmail if
	// the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by exact email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]*User, error)

	// UpdateUsername changes the display name.
	UpdateUsername(ctx context.Context, id int64, username string) error

	// UpdatePassword updates only the password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateEmail changes the login email. Returns ErrDuplicateEmail if
	// another user holds it.
	UpdateEmail(ctx context.Context, id int64, email string) error

	// SetVerificationCode overwrites the stored verification code.
	SetVerificationCode(ctx context.Context, id int64, code int) error

	// MarkVerified flips verified from false to true. Returns false if the
	// user was already verified.
	MarkVerified(ctx context.Context, id int64) (bool, error)

	// Delete removes a user. The user's access token goes with it.
	Delete(ctx context.Context, id int64) error
}
