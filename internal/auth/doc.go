// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the account and authentication core.
//
// # Domain Types
//
// User is the durable account record; AccessToken is the single bearer
// token a user may hold at any time. New users should be built with NewUser,
// which validates the username and email and leaves the account unverified.
//
// # Services
//
// Service types coordinate domain operations:
//   - TokenService - issue, validate, revoke and prune access tokens
//   - Service - credential checks and login
//   - AccountService - registration, confirmation, profile changes,
//     password reset and email change flows
//
// Services are created with New*Service constructors that validate dependencies.
// Durable state lives behind UserRepository and TokenRepository; nothing in
// this package caches tokens between calls.
package auth
