// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override, e.g. ACCOUNTS_HTTP_ADDR.
const EnvPrefix = "ACCOUNTS_"

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	Token    TokenConfig    `koanf:"token"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`

	k *koanf.Koanf
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	Prefix            string        `koanf:"prefix"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	RetryBase      time.Duration `koanf:"retry_base"`
}

// TokenConfig configures access tokens.
type TokenConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// SMTPConfig configures verification code delivery. An empty Host logs
// codes instead of mailing them.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	Subject  string `koanf:"subject"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":8000",
		"http.prefix":              "/users",
		"http.read_header_timeout": 10 * time.Second,
		"http.shutdown_timeout":    5 * time.Second,
		"database.url":             "",
		"database.connect_retries": 5,
		"database.retry_base":      500 * time.Millisecond,
		"token.ttl":                24 * time.Hour,
		"smtp.host":                "",
		"smtp.port":                587,
		"smtp.username":            "",
		"smtp.password":            "",
		"smtp.from":                "",
		"smtp.subject":             "Verification code",
		"log.format":               "json",
		"log.level":                "info",
		"metrics.addr":             "127.0.0.1:9100",
	}
}

// Load builds the configuration. path may be empty; flags may be nil.
// Only flags the user set override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider("DATABASE_URL", ".", databaseURLKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "DATABASE_URL").Wrap(err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{k: k}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	return cfg, nil
}

// databaseURLKey maps the conventional DATABASE_URL variable. Other
// variables sharing the prefix are ignored.
func databaseURLKey(s string) string {
	if s == "DATABASE_URL" {
		return "database.url"
	}
	return ""
}

// envKey maps ACCOUNTS_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return ""
	}
	return section + "." + key
}

// flagKey maps --section-some-key to section.some_key. Flags that do not
// name a known key are skipped.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	known := Defaults()
	return func(f *pflag.Flag) (string, any) {
		section, key, ok := strings.Cut(f.Name, "-")
		if !ok {
			return "", nil
		}
		name := section + "." + strings.ReplaceAll(key, "-", "_")
		if _, ok := known[name]; !ok {
			return "", nil
		}
		return name, posflag.FlagVal(fs, f)
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (set DATABASE_URL or %sDATABASE_URL)", EnvPrefix)
	}
	if c.Token.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("token.ttl", c.Token.TTL).Errorf("token.ttl must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.HTTP.Prefix != "" && !strings.HasPrefix(c.HTTP.Prefix, "/") {
		return oops.Code("CONFIG_INVALID").Errorf("http.prefix must start with '/', got %q", c.HTTP.Prefix)
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return oops.Code("CONFIG_INVALID").Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}

// Redacted renders the effective configuration as YAML with secrets masked.
func (c *Config) Redacted() ([]byte, error) {
	k := koanf.New(".")
	if c.k != nil {
		k = c.k.Copy()
	}
	if k.String("smtp.password") != "" {
		_ = k.Set("smtp.password", "xxxxx") //nolint:errcheck // in-memory map
	}
	if raw := k.String("database.url"); raw != "" {
		if u, err := url.Parse(raw); err == nil {
			_ = k.Set("database.url", u.Redacted()) //nolint:errcheck // in-memory map
		}
	}

	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, oops.Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return out, nil
}
