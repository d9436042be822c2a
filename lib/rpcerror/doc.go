// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpcerror defines the failure envelope every response
// carries and the normalizer that produces it.
//
// An [Envelope] has a [Code] (what kind of failure, mapped to
// JSON-RPC by [Code.JSONRPC]), a [Category] (how a client should
// react), a message and optional remediation text telling a human or
// agent what to do next. Envelopes are transport-agnostic; the stdio
// and HTTP adapters render them.
//
// [Normalize] turns an arbitrary handler error into an Envelope.
// Handlers that know exactly how a failure should surface return an
// [*Error] instead, which Normalize passes through unchanged.
package rpcerror
