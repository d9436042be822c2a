// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger: a stderr handler chosen
// by whether stderr is a terminal, optionally teed with the stdio
// transport's log-notification handler.
package logging
