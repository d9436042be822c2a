// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireClosed] and [RequireBlocked] wrap the
// select-with-timeout pattern so individual tests never call
// time.After directly. They are the only place in the test suite that
// uses real wall-clock timeouts; everything else runs on a fake clock.
package testutil
