// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package operation

// Annotations describes how an operation behaves, so callers can tell
// which operations are safe to call freely, which may be retried, and
// which need confirmation. A nil field is unspecified.
//
// Every operation touches Discord, so all presets are open-world.
type Annotations struct {
	ReadOnly    *bool
	Destructive *bool
	Idempotent  *bool
	OpenWorld   *bool
}

// ReadOnly is for operations that only fetch: read messages, server
// info, forum listings.
func ReadOnly() *Annotations {
	return &Annotations{
		ReadOnly:    boolPtr(true),
		Destructive: boolPtr(false),
		Idempotent:  boolPtr(true),
		OpenWorld:   boolPtr(true),
	}
}

// Idempotent is for operations that converge when repeated: adding a
// reaction, editing a webhook, logging in.
func Idempotent() *Annotations {
	return &Annotations{
		ReadOnly:    boolPtr(false),
		Destructive: boolPtr(false),
		Idempotent:  boolPtr(true),
		OpenWorld:   boolPtr(true),
	}
}

// Create is for operations whose effects accumulate: sending a
// message, creating a channel or webhook.
func Create() *Annotations {
	return &Annotations{
		ReadOnly:    boolPtr(false),
		Destructive: boolPtr(false),
		Idempotent:  boolPtr(false),
		OpenWorld:   boolPtr(true),
	}
}

// Destructive is for operations that remove something irreversibly.
func Destructive() *Annotations {
	return &Annotations{
		ReadOnly:    boolPtr(false),
		Destructive: boolPtr(true),
		Idempotent:  boolPtr(false),
		OpenWorld:   boolPtr(true),
	}
}

func boolPtr(value bool) *bool {
	return &value
}
