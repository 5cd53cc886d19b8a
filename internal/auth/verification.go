// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// Verification code range. Codes are four decimal digits.
const (
	MinVerificationCode = 1000
	MaxVerificationCode = 9999
)

// CodeSource draws a verification code. Implementations must return values
// uniformly distributed over [MinVerificationCode, MaxVerificationCode].
type CodeSource func() (int, error)

// RandomCode draws a verification code from crypto/rand.
func RandomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxVerificationCode-MinVerificationCode+1))
	if err != nil {
		return 0, oops.Code("CODE_GENERATE_FAILED").
			With("operation", "crypto/rand.Int").
			Wrap(err)
	}
	return int(n.Int64()) + MinVerificationCode, nil
}

// ValidCode reports whether code is in the four-digit range.
func ValidCode(code int) bool {
	return code >= MinVerificationCode && code <= MaxVerificationCode
}

// CodeMatches compares a presented code with the stored one. A missing
// stored code never matches. Codes are not consumed on use and do not
// expire; a new request overwrites the previous code.
func CodeMatches(stored *int, presented int) bool {
	return stored != nil && *stored == presented
}

// Notifier delivers verification codes out of band.
type Notifier interface {
	// SendVerificationCode delivers code to the given address.
	SendVerificationCode(ctx context.Context, email string, code int) error
}
