// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

// CodeMalformedBody marks a request body that is not the expected JSON.
const CodeMalformedBody = "HTTP_MALFORMED_BODY"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var statusByCode = map[string]int{
	auth.CodeAccountNotFound: http.StatusNotFound,

	auth.CodeEmailTaken:          http.StatusConflict,
	auth.CodeCodeMismatch:        http.StatusConflict,
	auth.CodeAlreadyVerified:     http.StatusConflict,
	auth.CodeConfirmUnknownEmail: http.StatusConflict,
	auth.CodeUnverified:          http.StatusConflict,

	auth.CodeInvalidCredentials: http.StatusUnauthorized,
	auth.CodeTokenMissing:       http.StatusUnauthorized,
	auth.CodeTokenInvalid:       http.StatusUnauthorized,
	auth.CodeTokenExpired:       http.StatusUnauthorized,

	auth.CodeForbidden: http.StatusForbidden,

	auth.CodeInvalidInput:  http.StatusUnprocessableEntity,
	auth.CodeEmptyPassword: http.StatusUnprocessableEntity,
	CodeMalformedBody:      http.StatusUnprocessableEntity,
}

// StatusFor maps an error to its HTTP status. Unknown codes are 500.
func StatusFor(err error) int {
	if status, ok := statusByCode[errutil.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// detailFor picks the message shown to the client. Client errors expose
// the public message when one is set, then the error text for validation
// failures, then the status text. Server errors never expose internals.
func detailFor(err error, status int) string {
	fallback := http.StatusText(status)
	if status >= http.StatusInternalServerError {
		return fallback
	}
	if public := oops.GetPublic(err, ""); public != "" {
		return public
	}
	if status == http.StatusUnprocessableEntity {
		if oopsErr, ok := oops.AsOops(err); ok {
			return oopsErr.Error()
		}
	}
	return fallback
}

// writeError renders err as {"detail": ...}. 5xx errors are logged with
// their full context.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(logger.With("path", r.URL.Path, "request_id", RequestIDFrom(r.Context())), "request failed", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, logger, status, errorBody{Detail: detailFor(err, status)})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode JSON response", "status", status, "error", err)
	}
}

// writeText writes a plain-text response.
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	io.WriteString(w, text)
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return oops.Code(CodeMalformedBody).
			Public("Malformed request body.").
			Wrap(err)
	}
	return nil
}
