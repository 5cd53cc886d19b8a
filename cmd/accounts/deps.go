// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/httpapi"
	"github.com/holomush/accounts/internal/notify"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, opts store.ConnectOptions) (Database, error)

	// MigratorFactory opens a migrator for --migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// NotifierFactory creates the verification code sender.
	// Default: SMTP when smtp.host is set, otherwise the log notifier
	NotifierFactory func(cfg config.SMTPConfig, logger *slog.Logger) (auth.Notifier, error)

	// APIServerFactory creates the public API server.
	// Default: httpapi.NewServer
	APIServerFactory func(cfg httpapi.ServerConfig, handler http.Handler, logger *slog.Logger) APIServer

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer
}

// PruneDeps contains injectable dependencies for the prune-tokens command.
type PruneDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, opts store.ConnectOptions) (Database, error)
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory opens a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// Database wraps the pool methods used by the repositories and the
// readiness probe.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// APIServer wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func defaultDatabaseFactory(ctx context.Context, url string, opts store.ConnectOptions) (Database, error) {
	pool, err := store.Connect(ctx, url, opts)
	if err != nil {
		return nil, err //nolint:wrapcheck // store errors carry their own codes
	}
	return pool, nil
}

func defaultMigratorFactory(url string) (Migrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err //nolint:wrapcheck // store errors carry their own codes
	}
	return m, nil
}

// defaultNotifierFactory mails codes when a relay is configured and logs
// them otherwise.
func defaultNotifierFactory(cfg config.SMTPConfig, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.Host == "" {
		logger.Warn("smtp.host not set, verification codes will be logged at debug level; do not use in production")
		return notify.NewLogNotifier(logger), nil
	}
	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Subject:  cfg.Subject,
	}, notify.WithSMTPLogger(logger))
	if err != nil {
		return nil, err //nolint:wrapcheck // notify errors carry their own codes
	}
	return n, nil
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = defaultDatabaseFactory
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = defaultMigratorFactory
	}
	if out.NotifierFactory == nil {
		out.NotifierFactory = defaultNotifierFactory
	}
	if out.APIServerFactory == nil {
		out.APIServerFactory = func(cfg httpapi.ServerConfig, handler http.Handler, logger *slog.Logger) APIServer {
			return httpapi.NewServer(cfg, handler, logger)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness, logger)
		}
	}
	return &out
}
