// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	authpg "github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/store"
)

// NewPruneTokensCmd creates the prune-tokens subcommand.
func NewPruneTokensCmd() *cobra.Command {
	return newPruneTokensCmdWithDeps(nil)
}

func newPruneTokensCmdWithDeps(deps *PruneDeps) *cobra.Command {
	if deps == nil {
		deps = &PruneDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = defaultDatabaseFactory
	}

	cmd := &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete expired access tokens",
		Long: `Delete access token rows whose expiration date has passed. Expired
tokens are already rejected on use; pruning only reclaims storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPruneTokens(cmd, deps)
		},
	}
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	return cmd
}

func runPruneTokens(cmd *cobra.Command, deps *PruneDeps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (set DATABASE_URL or --database-url)")
	}

	ctx := cmd.Context()
	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		Retries:   cfg.Database.ConnectRetries,
		RetryBase: cfg.Database.RetryBase,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(authpg.NewTokenRepository(db))
	if err != nil {
		return oops.With("operation", "create token service").Wrap(err)
	}

	n, err := tokens.Prune(ctx)
	if err != nil {
		return oops.With("operation", "prune tokens").Wrap(err)
	}
	cmd.Printf("Pruned %d expired access tokens\n", n)
	return nil
}
