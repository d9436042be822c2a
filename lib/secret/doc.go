// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the Discord bot token out of the Go heap.
//
// [Buffer] allocates with mmap(MAP_ANONYMOUS), locks the pages with
// mlock so they never reach swap, and marks them MADV_DONTDUMP. Close
// zeroes the region before unmapping it.
//
//   - [New] maps a zero-filled buffer
//   - [NewFromBytes] copies into protected memory and zeroes the source
//   - [ReadFromPath] loads a token file, or stdin for "-"
//
// [Buffer.Equal] compares in constant time; the session manager uses
// it to decide whether a login is a credential swap.
package secret
