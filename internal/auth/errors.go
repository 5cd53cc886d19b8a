// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when a write would violate
// the unique email constraint.
var ErrDuplicateEmail = errors.New("email already exists")

// Error codes attached to oops errors returned by this package. The HTTP
// layer maps them to status codes.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUnverified         = "AUTH_UNVERIFIED"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"

	CodeTokenMissing        = "TOKEN_MISSING"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenIssueFailed    = "TOKEN_ISSUE_FAILED"
	CodeTokenValidateFailed = "TOKEN_VALIDATE_FAILED"
	CodeTokenRevokeFailed   = "TOKEN_REVOKE_FAILED"
	CodeTokenPruneFailed    = "TOKEN_PRUNE_FAILED"

	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeConfirmUnknownEmail = "ACCOUNT_CONFIRM_UNKNOWN_EMAIL"
	CodeEmailTaken          = "ACCOUNT_EMAIL_TAKEN"
	CodeCodeMismatch        = "ACCOUNT_CODE_MISMATCH"
	CodeAlreadyVerified     = "ACCOUNT_ALREADY_VERIFIED"
	CodeInvalidInput        = "ACCOUNT_INVALID_INPUT"
	CodeAccountFailed       = "ACCOUNT_OPERATION_FAILED"
	CodeNotificationFailed  = "ACCOUNT_NOTIFICATION_FAILED"
)
