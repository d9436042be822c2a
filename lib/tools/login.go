// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
	"github.com/bureau-foundation/discord-mcp/lib/session"
)

type loginParams struct {
	// RandomString is accepted for clients that cannot send an empty
	// arguments object. It is ignored.
	RandomString string `json:"random_string" desc:"Ignored placeholder for clients that require an argument"`
	Token        string `json:"token" desc:"Bot token to log in with; replaces the current session when it differs"`
}

func loginOperation(sessions Sessions) *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:        "discord_login",
		Title:       "Log in to Discord",
		Description: "Logs in to Discord using the configured token, or the token given, replacing any session that uses a different one",
		Annotations: operation.Idempotent(),
	}, func(ctx context.Context, _ discord.Platform, params *loginParams) (operation.Result, error) {
		if params.Token != "" {
			identity, err := sessions.Login(ctx, []byte(params.Token))
			if err != nil {
				return operation.Result{}, loginFailure(err)
			}
			return operation.Text("Successfully logged in to Discord: %s", identity.Tag), nil
		}

		if identity, ok := sessions.Identity(); ok {
			return operation.Text("Already logged in as: %s", identity.Tag), nil
		}
		identity, err := sessions.Authenticate(ctx)
		if err != nil {
			return operation.Result{}, loginFailure(err)
		}
		return operation.Text("Successfully logged in to Discord: %s", identity.Tag), nil
	})
}

func loginFailure(err error) error {
	var authErr *session.AuthError
	var timeout *session.TimeoutError
	switch {
	case errors.Is(err, session.ErrNoCredential):
		return rpcerror.NotReady(rpcerror.CategoryValidation, "Discord token not configured. Cannot log in.").
			WithRemediation("Start the server with DISCORD_TOKEN set or --token-file, or pass a token argument to discord_login.")
	case errors.As(err, &authErr):
		return rpcerror.NotReady(rpcerror.CategoryForbidden, "Login failed: %v", authErr.Err).
			WithRemediation("Check that the bot token is current; reset it in the Discord Developer Portal under Bot if it was regenerated.")
	case errors.As(err, &timeout):
		return rpcerror.NotReady(rpcerror.CategoryUnavailable, "Login failed: %v", err).
			WithRemediation("Discord did not confirm the session in time. Try again shortly.")
	}
	return fmt.Errorf("login failed: %w", err)
}
