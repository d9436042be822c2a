// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package discord is the server's view of the Discord platform.
//
// It defines the domain types the operations work with ([Channel],
// [Message], [Guild], [Webhook]), the [Platform] interface those
// operations call, and the [Connector]/[Conn] pair the session
// manager uses to open and close the single upstream session.
//
// [GatewayConnector] implements Connector on top of
// github.com/bwmarrin/discordgo: it opens the gateway websocket,
// captures the bot identity from the READY payload, and translates
// REST and gateway failures into [APIError] values and the
// [ErrAuthenticationFailed] / [ErrDisallowedIntents] sentinels so
// callers can classify failures with errors.As and errors.Is instead
// of matching message text.
//
// Channels carry a [ChannelKind] resolved once at fetch time.
// Operations ask the kind what it supports (CanSendMessages,
// SupportsWebhooks, IsForum) rather than probing the object.
//
// The discordtest subpackage provides an in-memory Connector for
// tests.
package discord
