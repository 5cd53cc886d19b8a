// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	authpg "github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/httpapi"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/store"
)

const serviceName = "accounts"

// serveOptions holds serve flags that are not configuration keys.
type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the accounts HTTP API",
		Long: `Start the accounts HTTP API together with the metrics and health
endpoints. Runs until SIGINT or SIGTERM, then drains in-flight requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, nil)
		},
	}

	cmd.Flags().String("http-addr", ":8000", "API listen address")
	cmd.Flags().String("http-prefix", "/users", "path prefix for every API route")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	cmd.Flags().Duration("token-ttl", auth.AccessTokenExpiry, "access token lifetime")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, opts *serveOptions, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.With("operation", "configure logging").Wrap(err)
	}
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting accounts service",
		"http_addr", cfg.HTTP.Addr,
		"prefix", cfg.HTTP.Prefix,
		"token_ttl", cfg.Token.TTL,
	)

	if opts != nil && opts.migrate {
		if err := applyMigrations(deps.MigratorFactory, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		Retries:   cfg.Database.ConnectRetries,
		RetryBase: cfg.Database.RetryBase,
		Logger:    logger,
	})
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	notifier, err := deps.NotifierFactory(cfg.SMTP, logger)
	if err != nil {
		return oops.With("operation", "create notifier").Wrap(err)
	}

	tokens, err := auth.NewTokenService(authpg.NewTokenRepository(db),
		auth.WithTokenTTL(cfg.Token.TTL),
		auth.WithTokenLogger(logger),
	)
	if err != nil {
		return oops.With("operation", "create token service").Wrap(err)
	}
	users := authpg.NewUserRepository(db)
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)

	authService, err := auth.NewAuthServiceWithLogger(users, tokens, hasher, logger)
	if err != nil {
		return oops.With("operation", "create auth service").Wrap(err)
	}
	accounts, err := auth.NewAccountService(users, tokens, hasher, notifier, auth.WithAccountLogger(logger))
	if err != nil {
		return oops.With("operation", "create account service").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, db.Ping, logger)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	api, err := httpapi.New(accounts, authService, tokens,
		httpapi.WithMetrics(metrics),
		httpapi.WithLogger(logger),
	)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "create api").Wrap(err)
	}

	apiServer := deps.APIServerFactory(httpapi.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}, api.Handler(cfg.HTTP.Prefix), logger)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Accounts service started")
	logger.Info("accounts service ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(obsServer ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// applyMigrations runs every pending migration and closes the migrator.
func applyMigrations(factory func(string) (Migrator, error), url string, logger *slog.Logger) error {
	m, err := factory(url)
	if err != nil {
		return oops.With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	version, _, err := m.Version()
	if err != nil {
		return oops.With("operation", "read migration version").Wrap(err)
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
