// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the discord-mcp server configuration.
//
// Configuration comes from at most one file, named by the --config flag
// or the DISCORD_MCP_CONFIG environment variable (via [Resolve]). The
// file may be YAML (.yaml, .yml) or TOML (.toml); the extension picks
// the decoder and unknown keys are rejected. Without a file the server
// runs on [Default] values. Command-line flags override file values in
// the caller, after loading and before [Config.Validate].
//
// Only discord.token_file undergoes variable expansion (${HOME} and
// ${VAR:-default}). The token itself never appears in the file.
//
// [ParseCredentials] decodes the --credentials argument, which is
// either a raw token or a JSON object with a DISCORD_TOKEN member.
package config
