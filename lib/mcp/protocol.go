// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"

	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

// ProtocolVersion is the MCP protocol version this server speaks. The
// initialize handshake answers with it whatever the client requested;
// the client decides whether it can proceed.
const ProtocolVersion = "2025-11-25"

// ServerName identifies the server in the initialize handshake.
const ServerName = "discord-mcp"

// wireRequest is a JSON-RPC 2.0 request or notification as it arrives
// on either transport. JSONRPC and Method stay raw so that a body
// which is valid JSON but the wrong shape is reported as a malformed
// request against its id, not as a parse error.
type wireRequest struct {
	JSONRPC json.RawMessage `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  json.RawMessage `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// version returns the jsonrpc member and whether it was present.
func (w *wireRequest) version() (string, bool) {
	if len(w.JSONRPC) == 0 {
		return "", false
	}
	var version string
	if err := json.Unmarshal(w.JSONRPC, &version); err != nil {
		return string(w.JSONRPC), true
	}
	return version, true
}

// request converts the message for the Dispatcher. A method that is
// present but not a string marks the Request malformed.
func (w *wireRequest) request() *Request {
	request := &Request{ID: w.ID, Params: w.Params}
	if isAbsent(w.Method) {
		return request
	}
	if err := json.Unmarshal(w.Method, &request.Method); err != nil {
		request.malformed = rpcerror.Malformed("method must be a string, got %s", w.Method)
	}
	return request
}

// wireResponse is a JSON-RPC 2.0 response. Exactly one of Result or
// Error is set.
type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

// wireError is a JSON-RPC 2.0 error object. Data carries the parts of
// the envelope JSON-RPC has no field for.
type wireError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *errorData `json:"data,omitempty"`
}

type errorData struct {
	Code        string            `json:"code"`
	Category    rpcerror.Category `json:"category"`
	Retryable   bool              `json:"retryable"`
	Remediation string            `json:"remediation,omitempty"`
}

// logNotification is the unsolicited stdio message carrying one log
// record to the client.
type logNotification struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  logParams `json:"params"`
}

type logParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// --- MCP payloads ---

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
}

type serverCapabilities struct {
	Tools   *toolCapability    `json:"tools,omitempty"`
	Logging *loggingCapability `json:"logging,omitempty"`
}

type toolCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type loggingCapability struct{}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsListResult struct {
	Tools []toolDescription `json:"tools"`
}

type toolDescription struct {
	Name        string            `json:"name"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description"`
	InputSchema *operation.Schema `json:"inputSchema"`
	Annotations *toolAnnotations  `json:"annotations,omitempty"`
}

// toolAnnotations are MCP behavioral hints. Nil fields take the MCP
// defaults.
type toolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolsCallResult is an MCP tool result. ErrorInfo is an extension
// carrying the envelope's classification for clients that want to
// decide programmatically whether to retry, fix input, or escalate.
type toolsCallResult struct {
	Content           []contentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
	ErrorInfo         *errorInfo     `json:"errorInfo,omitempty"`
}

type errorInfo struct {
	Code        string            `json:"code"`
	Category    rpcerror.Category `json:"category"`
	Retryable   bool              `json:"retryable"`
	Remediation string            `json:"remediation,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string) toolsCallResult {
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
}
