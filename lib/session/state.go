// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
)

// State is the lifecycle position of the upstream session.
type State int

const (
	Disconnected State = iota
	Connecting
	Ready
	Faulted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transition describes one state change. Identity is set when To is
// Ready; Err is set when To is Faulted.
type Transition struct {
	From     State
	To       State
	Identity discord.Identity
	Err      error
	At       time.Time
}

// ErrNoCredential means no credential has been supplied, so the
// session cannot be established without an explicit login.
var ErrNoCredential = errors.New("session: no credential on file")

// TimeoutError means the upstream did not become ready within the
// configured wait. Repeating the request may succeed.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session: upstream not ready after %s", e.Timeout)
}

// AuthError means the upstream rejected the credential. The same
// credential is not retried automatically.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: credential rejected: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
