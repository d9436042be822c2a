// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
)

// DefaultReactionInterval spaces successive reactions in
// discord_add_multiple_reactions.
const DefaultReactionInterval = 300 * time.Millisecond

// Sessions is the part of the session manager the login operation
// drives.
type Sessions interface {
	Login(ctx context.Context, token []byte) (discord.Identity, error)
	Authenticate(ctx context.Context) (discord.Identity, error)
	Identity() (discord.Identity, bool)
}

// Options configures the catalog.
type Options struct {
	// Sessions backs discord_login. Required.
	Sessions Sessions

	// ReactionInterval paces multi-reaction writes. Zero uses
	// DefaultReactionInterval.
	ReactionInterval time.Duration
}

// Catalog returns every operation in discovery order.
func Catalog(options Options) []*operation.Descriptor {
	if options.ReactionInterval <= 0 {
		options.ReactionInterval = DefaultReactionInterval
	}
	return []*operation.Descriptor{
		loginOperation(options.Sessions),
		sendOperation(),
		forumChannelsOperation(),
		createForumPostOperation(),
		forumPostOperation(),
		replyToForumOperation(),
		deleteForumPostOperation(),
		createTextChannelOperation(),
		deleteChannelOperation(),
		readMessagesOperation(),
		serverInfoOperation(),
		addReactionOperation(),
		addReactionsOperation(options.ReactionInterval),
		removeReactionOperation(),
		deleteMessageOperation(),
		createWebhookOperation(),
		sendWebhookMessageOperation(),
		editWebhookOperation(),
		deleteWebhookOperation(),
	}
}

// NewRegistry builds the immutable registry of the full catalog.
func NewRegistry(options Options) (*operation.Registry, error) {
	return operation.NewRegistry(Catalog(options)...)
}
