// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp serves the Discord operation catalog over JSON-RPC 2.0
// using the Model Context Protocol conventions.
//
// The [Dispatcher] is the transport-agnostic core. It resolves a
// method name (flat operation names, tools/list, and tools/call all
// route through one table), validates arguments against the
// operation's declared constraints, obtains the shared upstream
// session when the operation needs one, runs the handler, and
// normalizes any failure into an [rpcerror.Envelope].
//
// Two transports wrap it:
//
//   - [StdioServer] reads newline-delimited JSON-RPC from stdin and
//     answers on stdout, one request at a time. Log records can be
//     forwarded to the client as "log" notifications on the same
//     stream.
//   - [HTTPHandler] serves stateless POST /mcp. Each request carries
//     one call; notifications are acknowledged with 202.
//
// The transports differ in one rendering rule: on stdio a session or
// upstream failure of a tools/call is returned as a tool result with
// isError set, the MCP convention for tool-level failures, while HTTP
// always uses a JSON-RPC error object and an HTTP status that
// reflects the failure class.
package mcp
