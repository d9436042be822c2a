// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service holds process-level serving infrastructure.
//
// [HTTPServer] owns a TCP listener for the HTTP transport: it binds,
// reports readiness and the resolved address, serves a caller-provided
// handler, and on context cancellation drains in-flight requests for a
// bounded time. Routing and request semantics belong to the handler.
package service
