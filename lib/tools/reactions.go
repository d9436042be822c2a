// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

type addReactionParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel holding the message" required:"true"`
	MessageID string `json:"messageId" desc:"ID of the message" required:"true"`
	Emoji     string `json:"emoji" desc:"Unicode emoji, or a custom emoji as <:name:id> or name:id" required:"true"`
}

func addReactionOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_add_reaction",
		Title:           "Add reaction",
		Description:     "Adds an emoji reaction to a specific Discord message",
		RequiresSession: true,
		Annotations:     operation.Idempotent(),
	}, func(ctx context.Context, platform discord.Platform, params *addReactionParams) (operation.Result, error) {
		if _, err := message(ctx, platform, params.ChannelID, params.MessageID); err != nil {
			return operation.Result{}, err
		}
		if err := platform.AddReaction(ctx, params.ChannelID, params.MessageID, discord.ParseEmoji(params.Emoji)); err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully added reaction %s to message ID: %s", params.Emoji, params.MessageID), nil
	})
}

type addReactionsParams struct {
	ChannelID string   `json:"channelId" desc:"ID of the channel holding the message" required:"true"`
	MessageID string   `json:"messageId" desc:"ID of the message" required:"true"`
	Emojis    []string `json:"emojis" desc:"Emojis to add, in order" required:"true" minItems:"1"`
}

func addReactionsOperation(interval time.Duration) *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_add_multiple_reactions",
		Title:           "Add multiple reactions",
		Description:     "Adds multiple emoji reactions to a Discord message at once",
		RequiresSession: true,
		Annotations:     operation.Idempotent(),
	}, func(ctx context.Context, platform discord.Platform, params *addReactionsParams) (operation.Result, error) {
		if _, err := message(ctx, platform, params.ChannelID, params.MessageID); err != nil {
			return operation.Result{}, err
		}

		// Discord's reaction bucket is small; space the writes rather
		// than let the client library queue into a 429.
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		for index, emoji := range params.Emojis {
			if err := limiter.Wait(ctx); err != nil {
				return operation.Result{}, fmt.Errorf("added %d of %d reactions: %w", index, len(params.Emojis), err)
			}
			if err := platform.AddReaction(ctx, params.ChannelID, params.MessageID, discord.ParseEmoji(emoji)); err != nil {
				return operation.Result{}, err
			}
		}
		return operation.Text("Successfully added %d reactions to message ID: %s", len(params.Emojis), params.MessageID), nil
	})
}

type removeReactionParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel holding the message" required:"true"`
	MessageID string `json:"messageId" desc:"ID of the message" required:"true"`
	Emoji     string `json:"emoji" desc:"Emoji to remove" required:"true"`
	UserID    string `json:"userId" desc:"User whose reaction to remove; defaults to the bot"`
}

func removeReactionOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_remove_reaction",
		Title:           "Remove reaction",
		Description:     "Removes a specific emoji reaction from a Discord message",
		RequiresSession: true,
		Annotations:     operation.Idempotent(),
	}, func(ctx context.Context, platform discord.Platform, params *removeReactionParams) (operation.Result, error) {
		target, err := message(ctx, platform, params.ChannelID, params.MessageID)
		if err != nil {
			return operation.Result{}, err
		}
		emoji := discord.ParseEmoji(params.Emoji)
		if !target.HasReaction(emoji) {
			return operation.Result{}, rpcerror.Upstream(rpcerror.CategoryNotFound,
				"Reaction %s not found on message ID: %s", params.Emoji, params.MessageID)
		}
		if err := platform.RemoveReaction(ctx, params.ChannelID, params.MessageID, emoji, params.UserID); err != nil {
			return operation.Result{}, err
		}
		if params.UserID != "" {
			return operation.Text("Successfully removed reaction %s from user ID: %s on message ID: %s",
				params.Emoji, params.UserID, params.MessageID), nil
		}
		return operation.Text("Successfully removed bot's reaction %s from message ID: %s", params.Emoji, params.MessageID), nil
	})
}
