// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
)

func createUser(t *testing.T, email string) *auth.User {
	t.Helper()
	ctx := context.Background()
	user, err := auth.NewUser("user", email, "hash", 1234)
	require.NoError(t, err)
	require.NoError(t, postgres.NewUserRepository(testPool).Create(ctx, user))
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	t.Run("create and read back", func(t *testing.T) {
		user := createUser(t, "roundtrip@example.com")
		assert.NotZero(t, user.ID)

		stored, err := repo.GetByEmail(ctx, "roundtrip@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, stored.ID)
		assert.False(t, stored.Verified)
		require.NotNil(t, stored.VerificationCode)
		assert.Equal(t, 1234, *stored.VerificationCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		createUser(t, "dup@example.com")
		second, err := auth.NewUser("other", "dup@example.com", "hash", 1111)
		require.NoError(t, err)

		err = repo.Create(ctx, second)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("concurrent duplicate registration yields one row", func(t *testing.T) {
		t.Cleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE email = 'race@example.com'`)
		})

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u, _ := auth.NewUser("racer", "race@example.com", "hash", 2222)
				errs[i] = repo.Create(ctx, u)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("mark verified once", func(t *testing.T) {
		user := createUser(t, "verify@example.com")

		flipped, err := repo.MarkVerified(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = repo.MarkVerified(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("update email onto taken address", func(t *testing.T) {
		createUser(t, "taken@example.com")
		user := createUser(t, "mover@example.com")

		err := repo.UpdateEmail(ctx, user.ID, "taken@example.com")
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("delete cascades to token", func(t *testing.T) {
		user := createUser(t, "cascade@example.com")
		tokens := postgres.NewTokenRepository(testPool)
		_, err := tokens.Upsert(ctx, &auth.AccessToken{Token: "cascade-token", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, user.ID))

		_, err = tokens.GetOwner(ctx, "cascade-token")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestTokenRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewTokenRepository(testPool)

	t.Run("upsert replaces previous token", func(t *testing.T) {
		user := createUser(t, "upsert@example.com")
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

		_, err := repo.Upsert(ctx, &auth.AccessToken{Token: "first", UserID: user.ID, ExpiresAt: expires})
		require.NoError(t, err)
		stored, err := repo.Upsert(ctx, &auth.AccessToken{Token: "second", UserID: user.ID, ExpiresAt: expires})
		require.NoError(t, err)
		assert.Equal(t, "second", stored.Token)

		_, err = repo.GetOwner(ctx, "first")
		assert.ErrorIs(t, err, auth.ErrNotFound)

		owner, err := repo.GetOwner(ctx, "second")
		require.NoError(t, err)
		assert.Equal(t, user.ID, owner.User.ID)
		assert.Equal(t, "upsert@example.com", owner.User.Email)
		assert.True(t, expires.Equal(owner.Token.ExpiresAt))
	})

	t.Run("delete expired leaves live tokens", func(t *testing.T) {
		live := createUser(t, "live@example.com")
		dead := createUser(t, "dead@example.com")
		now := time.Now()

		_, err := repo.Upsert(ctx, &auth.AccessToken{Token: "live", UserID: live.ID, ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)
		_, err = repo.Upsert(ctx, &auth.AccessToken{Token: "dead", UserID: dead.ID, ExpiresAt: now.Add(-time.Hour)})
		require.NoError(t, err)

		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = repo.GetOwner(ctx, "live")
		require.NoError(t, err)
		_, err = repo.GetOwner(ctx, "dead")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete by user is idempotent", func(t *testing.T) {
		user := createUser(t, "idem@example.com")
		require.NoError(t, repo.DeleteByUser(ctx, user.ID))
		require.NoError(t, repo.DeleteByUser(ctx, user.ID))
	})
}
