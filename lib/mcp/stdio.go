// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

// maxLineBytes bounds one stdio message.
const maxLineBytes = 1024 * 1024

// StdioServer speaks newline-delimited JSON-RPC: one message per line
// on input, one per line on output. Requests are handled one at a
// time in arrival order. Log notifications share the output with
// responses, so every write goes through one lock.
type StdioServer struct {
	output *lineWriter
}

// NewStdioServer returns a server that writes to output.
func NewStdioServer(output io.Writer) *StdioServer {
	encoder := json.NewEncoder(output)
	encoder.SetEscapeHTML(false)
	return &StdioServer{output: &lineWriter{encoder: encoder}}
}

// Serve reads requests from input until EOF or until ctx is
// cancelled. Cancellation is a clean stop and returns nil.
func (s *StdioServer) Serve(ctx context.Context, input io.Reader, dispatcher *Dispatcher) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := bytes.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("mcp: reading stdin: %w", err)
				}
				return nil
			}
			if err := s.handle(ctx, line, dispatcher); err != nil {
				return err
			}
		}
	}
}

func (s *StdioServer) handle(ctx context.Context, line []byte, dispatcher *Dispatcher) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var wire wireRequest
	if err := json.Unmarshal(line, &wire); err != nil {
		return s.output.write(protocolError(nil, rpcerror.JSONRPCParseError, "parse error: "+err.Error()))
	}
	request := wire.request()
	if version, _ := wire.version(); version != "2.0" {
		if request.IsNotification() {
			return nil
		}
		envelope := rpcerror.Malformed("unsupported JSON-RPC version %q", version).Envelope
		return s.output.write(render(&Response{ID: request.ID, Error: &envelope}, false))
	}

	response := dispatcher.Dispatch(ctx, request)
	if response == nil {
		return nil
	}
	return s.output.write(render(response, true))
}

// LogHandler returns a slog.Handler that sends each record at or
// above level to the client as a log notification.
func (s *StdioServer) LogHandler(level slog.Leveler) slog.Handler {
	return &notificationHandler{output: s.output, level: level}
}

type lineWriter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (w *lineWriter) write(message any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.encoder.Encode(message); err != nil {
		return fmt.Errorf("mcp: writing stdout: %w", err)
	}
	return nil
}

// notificationHandler renders a record as its message followed by
// key=value attributes.
type notificationHandler struct {
	output *lineWriter
	level  slog.Leveler
	attrs  string
	group  string
}

func (h *notificationHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *notificationHandler) Handle(_ context.Context, record slog.Record) error {
	var message strings.Builder
	message.WriteString(record.Message)
	message.WriteString(h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&message, h.group, attr)
		return true
	})
	return h.output.write(logNotification{
		JSONRPC: "2.0",
		Method:  "log",
		Params:  logParams{Level: levelName(record.Level), Message: message.String()},
	})
}

func (h *notificationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var rendered strings.Builder
	rendered.WriteString(h.attrs)
	for _, attr := range attrs {
		appendAttr(&rendered, h.group, attr)
	}
	clone := *h
	clone.attrs = rendered.String()
	return &clone
}

func (h *notificationHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "."
	}
	clone.group += name
	return &clone
}

func appendAttr(builder *strings.Builder, group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	switch {
	case key == "":
		key = group
	case group != "":
		key = group + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			appendAttr(builder, key, member)
		}
		return
	}
	fmt.Fprintf(builder, " %s=%v", key, attr.Value.Any())
}

// levelName uses the syslog-style names MCP clients expect.
func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}
