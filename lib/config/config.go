// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "DISCORD_MCP_CONFIG"

// Transport selects the front door the server listens on.
type Transport string

const (
	// Stdio reads newline-delimited JSON-RPC from stdin.
	Stdio Transport = "stdio"
	// HTTP serves stateless JSON-RPC on POST /mcp.
	HTTP Transport = "http"
)

// Config is the complete server configuration.
type Config struct {
	// Transport is stdio or http. Default: stdio.
	Transport Transport `yaml:"transport" toml:"transport"`

	HTTP HTTPConfig `yaml:"http" toml:"http"`

	Session SessionConfig `yaml:"session" toml:"session"`

	Discord DiscordConfig `yaml:"discord" toml:"discord"`

	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Address is the listen address. Default: 0.0.0.0:8080
	Address string `yaml:"address" toml:"address"`

	// ShutdownTimeout bounds the drain of in-flight requests after a
	// termination signal. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// SessionConfig configures the upstream session.
type SessionConfig struct {
	// ReadyTimeout bounds each login attempt. Default: 30s
	ReadyTimeout time.Duration `yaml:"ready_timeout" toml:"ready_timeout"`

	// EagerLogin logs in at startup when a credential is configured,
	// instead of on the first request that needs the session. A failed
	// eager login is logged and the server still starts.
	EagerLogin bool `yaml:"eager_login" toml:"eager_login"`
}

// DiscordConfig holds the upstream-specific settings.
type DiscordConfig struct {
	// ApplicationID fills the client_id of invite links in
	// remediation text.
	ApplicationID string `yaml:"application_id" toml:"application_id"`

	// InvitePermissions overrides the permissions value of invite
	// links.
	InvitePermissions string `yaml:"invite_permissions" toml:"invite_permissions"`

	// TokenFile holds the bot token. "-" reads it from stdin, which
	// is only valid with the http transport. ${HOME} and ${VAR:-default}
	// are expanded.
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level" toml:"level"`

	// Notifications forwards log records to a stdio client as "log"
	// notifications. Ignored on the http transport. Default: false
	Notifications bool `yaml:"notifications" toml:"notifications"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Transport: Stdio,
		HTTP: HTTPConfig{
			Address:         "0.0.0.0:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			ReadyTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Resolve returns the configuration for path. An empty path falls back
// to DISCORD_MCP_CONFIG, and when that is unset too the defaults are
// returned unchanged.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a YAML (.yaml, .yml) or TOML
// (.toml) file on top of the defaults. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		metadata, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for index, key := range undecoded {
				keys[index] = key.String()
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	}
	return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

func (c *Config) expandVariables() {
	c.Discord.TokenFile = expandVars(c.Discord.TokenFile)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case Stdio, HTTP:
	default:
		errs = append(errs, fmt.Errorf("transport must be %q or %q, got %q", Stdio, HTTP, c.Transport))
	}

	if c.Transport == HTTP {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			errs = append(errs, fmt.Errorf("http.address: %w", err))
		}
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.shutdown_timeout must be positive"))
	}
	if c.Session.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session.ready_timeout must be positive"))
	}
	if c.Transport == Stdio && c.Discord.TokenFile == "-" {
		errs = append(errs, fmt.Errorf("discord.token_file cannot be stdin with the stdio transport"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}
