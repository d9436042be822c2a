// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import "context"

// Platform is every upstream call an operation can make. All calls
// act as the authenticated bot.
type Platform interface {
	Channel(ctx context.Context, channelID string) (*Channel, error)
	GuildChannels(ctx context.Context, guildID string) ([]*Channel, error)
	Guild(ctx context.Context, guildID string) (*Guild, error)

	CreateTextChannel(ctx context.Context, guildID string, spec TextChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) (*Channel, error)
	StartForumThread(ctx context.Context, forumID string, post ForumPost) (*Channel, error)

	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	Messages(ctx context.Context, channelID string, limit int) ([]*Message, error)
	Message(ctx context.Context, channelID, messageID string) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID, reason string) error

	AddReaction(ctx context.Context, channelID, messageID string, emoji Emoji) error
	// RemoveReaction removes userID's reaction, or the bot's own when
	// userID is empty.
	RemoveReaction(ctx context.Context, channelID, messageID string, emoji Emoji, userID string) error

	CreateWebhook(ctx context.Context, channelID string, spec WebhookSpec) (*Webhook, error)
	ExecuteWebhook(ctx context.Context, webhookID, token string, message WebhookMessage) (*Message, error)
	EditWebhook(ctx context.Context, webhookID string, edit WebhookEdit) (*Webhook, error)
	// DeleteWebhook authenticates with token when non-empty, otherwise
	// with the bot's credential.
	DeleteWebhook(ctx context.Context, webhookID, token, reason string) error
}

// Conn is an open upstream session.
type Conn interface {
	Platform

	// Identity is the bot account the session authenticated as.
	Identity() Identity

	// Alive reports whether the gateway connection is still usable.
	// A false result makes the session stale.
	Alive() bool

	// Close disconnects. It is safe to call more than once.
	Close() error
}

// Connector opens upstream sessions. Connect blocks until the session
// is ready or ctx ends.
type Connector interface {
	Connect(ctx context.Context, token string) (Conn, error)
}

// TextChannelSpec describes a channel to create.
type TextChannelSpec struct {
	Name   string
	Topic  string
	Reason string
}

// ForumPost is the opening post of a new forum thread.
type ForumPost struct {
	Title   string
	Content string
	TagIDs  []string
}

// WebhookSpec describes a webhook to create.
type WebhookSpec struct {
	Name   string
	Avatar string
	Reason string
}

// WebhookMessage is a message posted through a webhook. ThreadID
// targets a thread inside the webhook's channel.
type WebhookMessage struct {
	Content   string
	Username  string
	AvatarURL string
	ThreadID  string
}

// WebhookEdit changes a webhook. Empty fields are left unchanged.
// With Token set the edit authenticates as the webhook itself, which
// cannot move it to another channel.
type WebhookEdit struct {
	Token     string
	Name      string
	Avatar    string
	ChannelID string
	Reason    string
}
