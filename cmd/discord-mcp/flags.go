// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/discord-mcp/lib/config"
	"github.com/bureau-foundation/discord-mcp/lib/secret"
)

// TokenEnvironmentVariable is the last credential source consulted.
const TokenEnvironmentVariable = "DISCORD_TOKEN"

// commandFlags holds the parsed command line. Only flags the user set
// override the config file.
type commandFlags struct {
	configPath    string
	transport     string
	address       string
	port          int
	credentials   string
	tokenFile     string
	logLevel      string
	notifications bool
	eagerLogin    bool
	showVersion   bool
}

func (f *commandFlags) register(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "path to a YAML or TOML config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.transport, "transport", "", "transport to serve: stdio or http")
	flagSet.StringVar(&f.address, "address", "", "HTTP listen address (host:port)")
	flagSet.IntVar(&f.port, "port", 0, "HTTP listen port on all interfaces; shorthand for --address 0.0.0.0:PORT")
	flagSet.StringVar(&f.credentials, "credentials", "", `bot token, or a JSON object {"DISCORD_TOKEN": "..."}`)
	flagSet.StringVar(&f.tokenFile, "token-file", "", `file holding the bot token ("-" reads stdin; http transport only)`)
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&f.notifications, "log-notifications", false, "forward logs to the stdio client as log notifications")
	flagSet.BoolVar(&f.eagerLogin, "eager-login", false, "log in at startup instead of on first use")
	flagSet.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	flagSet.SetOutput(os.Stderr)
	return flagSet
}

// apply overlays the flags the user set onto cfg.
func (f *commandFlags) apply(flagSet *pflag.FlagSet, cfg *config.Config) error {
	if flagSet.Changed("transport") {
		cfg.Transport = config.Transport(f.transport)
	}
	if flagSet.Changed("address") && flagSet.Changed("port") {
		return fmt.Errorf("--address and --port are mutually exclusive")
	}
	if flagSet.Changed("address") {
		cfg.HTTP.Address = f.address
	}
	if flagSet.Changed("port") {
		if f.port <= 0 || f.port > 65535 {
			return fmt.Errorf("--port must be between 1 and 65535, got %d", f.port)
		}
		cfg.HTTP.Address = net.JoinHostPort("0.0.0.0", strconv.Itoa(f.port))
	}
	if flagSet.Changed("token-file") {
		cfg.Discord.TokenFile = f.tokenFile
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if flagSet.Changed("log-notifications") {
		cfg.Logging.Notifications = f.notifications
	}
	if flagSet.Changed("eager-login") {
		cfg.Session.EagerLogin = f.eagerLogin
	}
	if flagSet.Changed("token-file") && flagSet.Changed("credentials") {
		return fmt.Errorf("--token-file and --credentials are mutually exclusive")
	}
	return nil
}

// resolveCredential returns the bot token from the first configured
// source, or nil when none is. --token-file has already been folded
// into cfg.Discord.TokenFile, so an explicit --credentials outranks a
// token file named only in the config file.
func resolveCredential(f commandFlags, cfg *config.Config, lookupEnv func(string) (string, bool)) ([]byte, error) {
	if f.credentials != "" {
		return config.ParseCredentials([]byte(f.credentials))
	}
	if cfg.Discord.TokenFile != "" {
		return readToken(cfg.Discord.TokenFile)
	}
	if value, ok := lookupEnv(TokenEnvironmentVariable); ok && value != "" {
		return []byte(value), nil
	}
	return nil, nil
}

// readToken loads a token file into a plain slice for the session
// manager, which copies it into its own locked buffer and zeroes the
// slice.
func readToken(path string) ([]byte, error) {
	buffer, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	defer buffer.Close()
	token := make([]byte, buffer.Len())
	copy(token, buffer.Bytes())
	return token, nil
}
