// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time so timeouts can be tested
// without sleeping.
//
// The session manager bounds how long it waits for the Discord
// gateway to report ready. In production that wait uses [Real]; tests
// inject [Fake], register the wait with [FakeClock.WaitForTimers], and
// expire it with [FakeClock.Advance].
package clock
