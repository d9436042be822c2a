// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

// notFound reports a missing Discord object the way the caller named
// it. Other errors pass through for the dispatcher to normalize.
func notFound(err error, format string, args ...any) error {
	if apiErr, ok := discord.AsAPIError(err); ok && apiErr.IsNotFound() {
		return rpcerror.Upstream(rpcerror.CategoryNotFound, format, args...)
	}
	return err
}

// channelWhere fetches a channel and requires its kind to satisfy
// capable. A missing channel and an incapable one both produce
// missing; unsupported, when set, replaces the message for a channel
// that exists but has the wrong kind.
func channelWhere(ctx context.Context, platform discord.Platform, channelID string, capable func(discord.ChannelKind) bool, missing, unsupported string) (*discord.Channel, error) {
	channel, err := platform.Channel(ctx, channelID)
	if err != nil {
		return nil, notFound(err, "%s", missing)
	}
	if !capable(channel.Kind) {
		if unsupported != "" {
			return nil, rpcerror.Invalid("%s", unsupported)
		}
		return nil, rpcerror.Invalid("%s", missing)
	}
	return channel, nil
}

// textChannel fetches a channel that holds messages.
func textChannel(ctx context.Context, platform discord.Platform, channelID string) (*discord.Channel, error) {
	return channelWhere(ctx, platform, channelID, discord.ChannelKind.CanReadMessages,
		"Cannot find text channel with ID: "+channelID, "")
}

// thread fetches a thread, including forum posts.
func thread(ctx context.Context, platform discord.Platform, threadID, missing string) (*discord.Channel, error) {
	return channelWhere(ctx, platform, threadID, discord.ChannelKind.IsThread, missing, "")
}

// message fetches a message from a channel that holds messages.
func message(ctx context.Context, platform discord.Platform, channelID, messageID string) (*discord.Message, error) {
	if _, err := textChannel(ctx, platform, channelID); err != nil {
		return nil, err
	}
	found, err := platform.Message(ctx, channelID, messageID)
	if err != nil {
		return nil, notFound(err, "Cannot find message with ID: %s", messageID)
	}
	return found, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
