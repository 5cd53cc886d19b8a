// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

const userColumns = `id, username, email, password, verified, verification_code, is_admin`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user and assigns its ID.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password, verified, verification_code, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Verified,
		user.VerificationCode,
		user.IsAdmin,
	).Scan(&user.ID)
	if isUniqueViolation(err) {
		return oops.Code("USER_EMAIL_TAKEN").
			With("email", user.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// List returns all users ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "query users").
			Wrap(err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").
				With("operation", "scan user").
				Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// UpdateUsername changes the display name.
func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	return r.update(ctx, "update username", id, `UPDATE users SET username = $2 WHERE id = $1`, username)
}

// UpdatePassword updates only the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.update(ctx, "update password", id, `UPDATE users SET password = $2 WHERE id = $1`, passwordHash)
}

// UpdateEmail changes the login email.
func (r *UserRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	err := r.update(ctx, "update email", id, `UPDATE users SET email = $2 WHERE id = $1`, email)
	if isUniqueViolation(err) {
		return oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Wrap(auth.ErrDuplicateEmail)
	}
	return err
}

// SetVerificationCode overwrites the stored verification code.
func (r *UserRepository) SetVerificationCode(ctx context.Context, id int64, code int) error {
	return r.update(ctx, "set verification code", id, `UPDATE users SET verification_code = $2 WHERE id = $1`, code)
}

// MarkVerified flips verified from false to true in one statement so that
// concurrent confirmations succeed at most once.
func (r *UserRepository) MarkVerified(ctx context.Context, id int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET verified = TRUE
		WHERE id = $1 AND verified = FALSE
	`, id)
	if err != nil {
		return false, oops.Code("USER_UPDATE_FAILED").
			With("operation", "mark verified").
			With("id", id).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// Delete removes a user. The access token row is removed by cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, op string, id int64, sql string, value any) error {
	result, err := r.pool.Exec(ctx, sql, id, value)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", op).
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.VerificationCode,
		&user.IsAdmin,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
