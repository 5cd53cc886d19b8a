// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Accounts - user registration and bearer-token service",
		Long: `Accounts registers users, verifies their email with one-time codes,
and issues the bearer tokens other services use to authenticate them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default $XDG_CONFIG_HOME/accounts/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPruneTokensCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig builds the configuration from the --config file, the
// environment and the flags the user set on cmd. Without --config the XDG
// config file is used when it exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err //nolint:wrapcheck // already coded
		}
	}
	//nolint:wrapcheck // config errors carry their own codes
	return config.Load(path, cmd.Flags())
}
