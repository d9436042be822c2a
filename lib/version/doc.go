// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build metadata: the semantic [Version]
// returned in the MCP initialize handshake, and the commit and build
// time printed by --version. All three are injected with -ldflags -X
// and fall back to development placeholders:
//
//	go build -ldflags "-X github.com/bureau-foundation/discord-mcp/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
