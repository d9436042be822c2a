// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools is the catalog of Discord operations.
//
// Each operation is a params struct and a handler that makes the
// upstream calls and shapes the result. Session checks, argument
// validation and error normalization happen in the dispatcher, not
// here. Handlers check channel capabilities through
// [discord.ChannelKind] and report a missing object with a message
// naming what the caller asked for.
package tools
