// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// TokenKey is the credentials object key holding the bot token.
const TokenKey = "DISCORD_TOKEN"

// ParseCredentials extracts the bot token from a --credentials value.
// A value starting with "{" is a JSON object (comments and trailing
// commas allowed) whose DISCORD_TOKEN member is the token; anything
// else is the token itself. The returned slice is a fresh copy the
// caller may zero.
func ParseCredentials(value []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("config: credentials are empty")
	}
	if trimmed[0] != '{' {
		return bytes.Clone(trimmed), nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(trimmed), &object); err != nil {
		return nil, fmt.Errorf("config: parsing credentials: %w", err)
	}
	raw, ok := object[TokenKey]
	if !ok {
		return nil, fmt.Errorf("config: credentials object has no %s member", TokenKey)
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("config: %s must be a string: %w", TokenKey, err)
	}
	if token == "" {
		return nil, fmt.Errorf("config: %s is empty", TokenKey)
	}
	return []byte(token), nil
}
