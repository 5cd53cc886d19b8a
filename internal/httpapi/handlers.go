// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// verificationCode accepts a code sent as a JSON number or a numeric string.
type verificationCode int

func (c *verificationCode) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return oops.Wrap(err)
		}
		raw = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return oops.With("value", string(data)).Errorf("code must be an integer")
	}
	*c = verificationCode(n)
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	Email string           `json:"email"`
	Code  verificationCode `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Username string `json:"username"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordConfirmRequest struct {
	Email    string           `json:"email"`
	Code     verificationCode `json:"code"`
	Password string           `json:"password"`
}

type emailResetRequest struct {
	NewEmail string `json:"new_email"`
}

type emailConfirmRequest struct {
	NewEmail string           `json:"new_email"`
	Code     verificationCode `json:"code"`
}

// userView is a user as returned by registration, listing and lookup.
type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// profileView is the caller's own profile.
type profileView struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type confirmResponse struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type passwordResponse struct {
	Password string `json:"password"`
}

type emailConfirmResponse struct {
	NewEmail string `json:"new_email"`
}

func viewOf(u *auth.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	user, err := a.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusCreated, viewOf(user))
}

func (a *API) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	if err := a.accounts.Confirm(r.Context(), req.Email, int(req.Code)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, confirmResponse{Email: req.Email, Status: "verified"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	a.metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, tokenResponse{AccessToken: token.Token, TokenType: auth.TokenType})
}

func (a *API) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	writeJSON(w, a.logger, http.StatusOK, profileView{Email: caller.Email, Username: caller.Username})
}

func (a *API) handleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	user, err := a.accounts.UpdateUsername(r.Context(), caller.ID, req.Username)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, profileView{Email: user.Email, Username: user.Username})
}

func (a *API) handleDeleteSelf(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	if err := a.accounts.Delete(r.Context(), caller.ID); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, deleteResponse{Deleted: caller.ID})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, a.logger, oops.Code(auth.CodeAccountNotFound).
			Public("User not found").
			Wrap(err))
		return
	}

	user, err := a.accounts.GetAsAdmin(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, viewOf(user))
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	if err := a.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeText(w, http.StatusOK, "Confirmation code was sent to "+req.Email)
}

func (a *API) handlePasswordConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	if err := a.accounts.ConfirmPasswordReset(r.Context(), req.Email, int(req.Code), req.Password); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, passwordResponse{Password: "updated"})
}

func (a *API) handleEmailReset(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req emailResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	if err := a.accounts.RequestEmailChange(r.Context(), caller.ID, req.NewEmail); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeText(w, http.StatusOK, "Verification code was sent to "+req.NewEmail)
}

func (a *API) handleEmailConfirm(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req emailConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	if err := a.accounts.ConfirmEmailChange(r.Context(), caller.ID, req.NewEmail, int(req.Code)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, emailConfirmResponse{NewEmail: req.NewEmail})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	if err := a.auth.Logout(r.Context(), caller.ID); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, map[string]string{caller.Email: "logout"})
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := a.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, viewOf(u))
	}
	writeJSON(w, a.logger, http.StatusOK, out)
}

func (a *API) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	writeJSON(w, a.logger, http.StatusOK, caller)
}
