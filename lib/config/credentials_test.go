// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"testing"
)

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"raw token", "MTIz.abc.def", "MTIz.abc.def"},
		{"raw token with whitespace", "  MTIz.abc.def\n", "MTIz.abc.def"},
		{"object", `{"DISCORD_TOKEN": "MTIz.abc.def"}`, "MTIz.abc.def"},
		{"object with comments and trailing comma", `{
			// bot for the test server
			"DISCORD_TOKEN": "MTIz.abc.def",
		}`, "MTIz.abc.def"},
		{"object with other members", `{"OTHER": 1, "DISCORD_TOKEN": "tok"}`, "tok"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			token, err := ParseCredentials([]byte(test.input))
			if err != nil {
				t.Fatalf("ParseCredentials failed: %v", err)
			}
			if string(token) != test.want {
				t.Errorf("token = %q, want %q", token, test.want)
			}
		})
	}
}

func TestParseCredentials_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"empty", "   ", "empty"},
		{"malformed object", `{"DISCORD_TOKEN": `, "parsing credentials"},
		{"missing member", `{"TOKEN": "x"}`, "no DISCORD_TOKEN member"},
		{"non-string member", `{"DISCORD_TOKEN": 42}`, "must be a string"},
		{"empty member", `{"DISCORD_TOKEN": ""}`, "DISCORD_TOKEN is empty"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseCredentials([]byte(test.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), test.contains) {
				t.Errorf("error %q does not mention %q", err, test.contains)
			}
		})
	}
}

func TestParseCredentials_CopiesInput(t *testing.T) {
	input := []byte("token")
	token, err := ParseCredentials(input)
	if err != nil {
		t.Fatalf("ParseCredentials failed: %v", err)
	}
	token[0] = 'X'
	if string(input) != "token" {
		t.Errorf("result aliases the input: %q", input)
	}
}
