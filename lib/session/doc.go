// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the single upstream Discord session shared by
// every request the server handles.
//
// The [Manager] is a state machine over Disconnected, Connecting,
// Ready and Faulted. It starts Disconnected and logs in lazily: the
// first request that needs the upstream calls [Manager.EnsureReady],
// which connects with the credential on file. A Ready session whose
// gateway connection has dropped is treated as stale and gets the
// same single reconnect attempt.
//
// At most one login attempt runs at a time. Concurrent callers that
// find the session not ready share one attempt and observe its
// outcome. A credential the upstream rejected is not retried until a
// new credential is supplied or [Manager.Authenticate] is called
// explicitly.
//
// [Manager.EnsureReady] returns a [Lease]. While any lease is held
// the session it pins cannot be torn down or swapped, so a handler
// sees one identity from start to finish. [Manager.Login] with a
// different credential waits for outstanding leases, closes the old
// session, and only then connects the new one.
package session
