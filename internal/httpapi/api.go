// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account service over HTTP/JSON.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/observability"
)

// Accounts is the account lifecycle used by the handlers.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	Confirm(ctx context.Context, email string, code int) error
	Get(ctx context.Context, id int64) (*auth.User, error)
	GetAsAdmin(ctx context.Context, callerID, id int64) (*auth.User, error)
	List(ctx context.Context) ([]*auth.User, error)
	UpdateUsername(ctx context.Context, id int64, username string) (*auth.User, error)
	Delete(ctx context.Context, id int64) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email string, code int, password string) error
	RequestEmailChange(ctx context.Context, id int64, newEmail string) error
	ConfirmEmailChange(ctx context.Context, id int64, newEmail string, code int) error
}

// Authenticator logs users in and out.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.AccessToken, error)
	Logout(ctx context.Context, userID int64) error
}

// TokenValidator resolves an Authorization header to the token owner.
type TokenValidator interface {
	Validate(ctx context.Context, header string) (auth.Identity, error)
}

// API holds the HTTP handlers and their dependencies.
type API struct {
	accounts Accounts
	auth     Authenticator
	tokens   TokenValidator
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithMetrics records request, login and token metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *API) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an API. Without WithMetrics, metrics go to a private registry.
func New(accounts Accounts, authn Authenticator, tokens TokenValidator, opts ...Option) (*API, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts service is required")
	}
	if authn == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token validator is required")
	}

	a := &API{
		accounts: accounts,
		auth:     authn,
		tokens:   tokens,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return a, nil
}

// Handler returns the router with every route mounted under prefix.
func (a *API) Handler(prefix string) http.Handler {
	root := mux.NewRouter()
	a.setFallbacks(root)
	root.Use(a.requestID, a.observe)

	r := root
	if prefix != "" && prefix != "/" {
		r = root.PathPrefix(prefix).Subrouter()
		// Misses inside a subrouter never reach the root's handlers.
		a.setFallbacks(r)
	}
	a.registerRoutes(r)
	return root
}

// setFallbacks installs the JSON 404 and 405 handlers on r.
func (a *API) setFallbacks(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, a.logger, http.StatusNotFound, errorBody{Detail: http.StatusText(http.StatusNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, a.logger, http.StatusMethodNotAllowed, errorBody{Detail: http.StatusText(http.StatusMethodNotAllowed)})
	})
}

func (a *API) registerRoutes(r *mux.Router) {
	r.HandleFunc("/registration", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/confirm", a.handleConfirm).Methods(http.MethodPost)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/password-reset", a.handlePasswordReset).Methods(http.MethodPost)
	r.HandleFunc("/password-confirm", a.handlePasswordConfirm).Methods(http.MethodPost)

	r.Handle("/user", a.requireToken(a.handleGetSelf)).Methods(http.MethodGet)
	r.Handle("/user", a.requireToken(a.handleUpdateSelf)).Methods(http.MethodPatch)
	r.Handle("/user", a.requireToken(a.handleDeleteSelf)).Methods(http.MethodDelete)
	r.Handle("/user/{id:[0-9]+}", a.requireToken(a.handleGetUser)).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/email-reset", a.requireToken(a.handleEmailReset)).Methods(http.MethodPost)
	r.Handle("/email-confirm", a.requireToken(a.handleEmailConfirm)).Methods(http.MethodPost)
	r.Handle("/logout", a.requireToken(a.handleLogout)).Methods(http.MethodPost)
	r.Handle("/list", a.requireToken(a.handleList)).Methods(http.MethodGet)
	r.Handle("/check-token", a.requireToken(a.handleCheckToken)).Methods(http.MethodPost)
}
