// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// discord-mcp exposes Discord bot operations as MCP tools.
//
// The server speaks JSON-RPC 2.0 over one of two transports:
//
//   - stdio (default): newline-delimited requests on stdin, responses
//     on stdout. Logs go to stderr, and optionally to the client as
//     "log" notifications.
//   - http: stateless POST /mcp, one request per HTTP call.
//
// The bot token comes from --token-file, --credentials, the config
// file's discord.token_file, or DISCORD_TOKEN, in that order. The
// upstream session is opened on the first request that needs it, or
// at startup with session.eager_login. Without a token, clients must
// call discord_login first.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/discord-mcp/lib/config"
	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/logging"
	"github.com/bureau-foundation/discord-mcp/lib/mcp"
	"github.com/bureau-foundation/discord-mcp/lib/process"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
	"github.com/bureau-foundation/discord-mcp/lib/service"
	"github.com/bureau-foundation/discord-mcp/lib/session"
	"github.com/bureau-foundation/discord-mcp/lib/tools"
	"github.com/bureau-foundation/discord-mcp/lib/version"
)

const binaryName = "discord-mcp"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var flags commandFlags
	flagSet := flags.register(binaryName)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flags.showVersion {
		version.Print(binaryName)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := config.Resolve(flags.configPath)
	if err != nil {
		return err
	}
	if err := flags.apply(flagSet, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The stdio server exists before the logger so that log records
	// can be forwarded to the client on the same stream.
	handlers := []slog.Handler{logging.NewHandler(os.Stderr, level)}
	var stdio *mcp.StdioServer
	if cfg.Transport == config.Stdio {
		stdio = mcp.NewStdioServer(os.Stdout)
		if cfg.Logging.Notifications {
			handlers = append(handlers, stdio.LogHandler(level))
		}
	}
	logger := slog.New(logging.Tee(handlers...))

	token, err := resolveCredential(flags, cfg, os.LookupEnv)
	if err != nil {
		return err
	}

	connector := discord.NewGatewayConnector(discord.GatewayConfig{
		Logger: logger.With("component", "discord"),
	})
	manager, err := session.NewManager(session.Config{
		Connector:    connector,
		ReadyTimeout: cfg.Session.ReadyTimeout,
		Logger:       logger.With("component", "session"),
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	if token != nil {
		if err := manager.SetCredential(token); err != nil {
			return err
		}
	} else {
		logger.Info("no Discord token configured; clients must call discord_login")
	}

	registry, err := tools.NewRegistry(tools.Options{Sessions: manager})
	if err != nil {
		return err
	}
	dispatcher, err := mcp.NewDispatcher(mcp.DispatcherConfig{
		Registry: registry,
		Sessions: manager,
		Hints: rpcerror.Hints{
			ApplicationID:     cfg.Discord.ApplicationID,
			InvitePermissions: cfg.Discord.InvitePermissions,
			PrivilegedIntents: discord.PrivilegedIntentNames(connector.Intents()),
		},
		Logger: logger.With("component", "dispatcher"),
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Session.EagerLogin && manager.HasCredential() {
		group.Go(func() error {
			// A failed eager login is not fatal: the next request
			// that needs the session reports it with remediation.
			if _, err := manager.Authenticate(groupCtx); err != nil {
				logger.Warn("login at startup failed", "error", err)
			}
			return nil
		})
	}

	switch cfg.Transport {
	case config.Stdio:
		group.Go(func() error {
			// End of input ends the process.
			defer stop()
			return stdio.Serve(groupCtx, os.Stdin, dispatcher)
		})
		logger.Info("serving MCP on stdio", "version", version.Short())

	case config.HTTP:
		server := service.NewHTTPServer(service.HTTPServerConfig{
			Address:         cfg.HTTP.Address,
			Handler:         mcp.NewHTTPHandler(dispatcher, logger.With("component", "http")).Mux(),
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
			Logger:          logger,
		})
		group.Go(func() error {
			return server.Serve(groupCtx)
		})
		group.Go(func() error {
			select {
			case <-server.Ready():
				logger.Info("serving MCP over HTTP",
					"url", "http://"+server.Addr().String()+mcp.Endpoint,
					"version", version.Short(),
				)
			case <-groupCtx.Done():
			}
			return nil
		})
	}

	err = group.Wait()
	logger.Info("shutting down")
	return err
}
