// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/accounts/internal/auth"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, username, email, password string) (*auth.User, error) {
	args := m.Called(ctx, username, email, password)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockAccounts) Confirm(ctx context.Context, email string, code int) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockAccounts) Get(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockAccounts) GetAsAdmin(ctx context.Context, callerID, id int64) (*auth.User, error) {
	args := m.Called(ctx, callerID, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockAccounts) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

func (m *mockAccounts) UpdateUsername(ctx context.Context, id int64, username string) (*auth.User, error) {
	args := m.Called(ctx, id, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *mockAccounts) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAccounts) ConfirmPasswordReset(ctx context.Context, email string, code int, password string) error {
	return m.Called(ctx, email, code, password).Error(0)
}

func (m *mockAccounts) RequestEmailChange(ctx context.Context, id int64, newEmail string) error {
	return m.Called(ctx, id, newEmail).Error(0)
}

func (m *mockAccounts) ConfirmEmailChange(ctx context.Context, id int64, newEmail string, code int) error {
	return m.Called(ctx, id, newEmail, code).Error(0)
}

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (*auth.AccessToken, error) {
	args := m.Called(ctx, email, password)
	token, _ := args.Get(0).(*auth.AccessToken)
	return token, args.Error(1)
}

func (m *mockAuthenticator) Logout(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Validate(ctx context.Context, header string) (auth.Identity, error) {
	args := m.Called(ctx, header)
	id, _ := args.Get(0).(auth.Identity)
	return id, args.Error(1)
}

var (
	_ Accounts       = (*mockAccounts)(nil)
	_ Authenticator  = (*mockAuthenticator)(nil)
	_ TokenValidator = (*mockTokens)(nil)
)
