// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/accounts", ConfigDir())
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	assert.Equal(t, "/home/testuser/.config/accounts", ConfigDir())
}

func TestDefaultConfigFile(t *testing.T) {
	t.Run("returns empty when no file exists", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		path, err := DefaultConfigFile()
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("returns the file when present", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		dir := filepath.Join(base, "accounts")
		require.NoError(t, os.MkdirAll(dir, 0o700))
		want := filepath.Join(dir, ConfigFileName)
		require.NoError(t, os.WriteFile(want, []byte("log:\n  level: debug\n"), 0o600))

		path, err := DefaultConfigFile()
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("ignores a directory with the file name", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		require.NoError(t, os.MkdirAll(filepath.Join(base, "accounts", ConfigFileName), 0o700))

		path, err := DefaultConfigFile()
		require.NoError(t, err)
		assert.Empty(t, path)
	})
}
