// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  token-123\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "token-123" {
		t.Errorf("got %q, want %q", got, "token-123")
	}
}

func TestReadFromPath_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(" \n\t"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := ReadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("ReadFromPath(whitespace) error = %v, want empty error", err)
	}
}

func TestReadFromPath_Missing(t *testing.T) {
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("ReadFromPath(missing) succeeded, want error")
	}
}

func TestReadFirstLine(t *testing.T) {
	buffer, err := readFirstLine(strings.NewReader("first-line\nsecond-line\n"))
	if err != nil {
		t.Fatalf("readFirstLine: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "first-line" {
		t.Errorf("got %q, want %q", got, "first-line")
	}

	if _, err := readFirstLine(strings.NewReader("")); err == nil {
		t.Error("readFirstLine(empty) succeeded, want error")
	}
}
