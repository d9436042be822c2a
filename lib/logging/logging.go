// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// ParseLevel converts a configured level name (debug, info, warn,
// error) to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}

// NewHandler returns a handler writing to file. A terminal gets
// slog.TextHandler for people; anything else (a pipe, a file, a process
// supervisor) gets slog.JSONHandler.
//
// On the stdio transport file must be stderr: stdout carries the
// protocol.
func NewHandler(file *os.File, level slog.Leveler) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(file.Fd())) {
		return slog.NewTextHandler(file, options)
	}
	return slog.NewJSONHandler(file, options)
}

// Tee returns a handler that sends each record to every handler that
// accepts its level. Handler errors are joined; one failing sink does
// not stop the others.
func Tee(handlers ...slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return teeHandler(handlers)
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range t {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range t {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(teeHandler, len(t))
	for index, handler := range t {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	derived := make(teeHandler, len(t))
	for index, handler := range t {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
