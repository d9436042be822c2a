// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcerror

import "fmt"

// Code is the transport-agnostic failure class of a request.
type Code int

const (
	// MalformedRequest: the request is not a well-formed call.
	MalformedRequest Code = iota + 1

	// UnknownMethod: no operation or pseudo-method has that name.
	UnknownMethod

	// InvalidParams: arguments failed the operation's constraints.
	InvalidParams

	// SessionNotReady: the upstream session could not be made ready.
	SessionNotReady

	// UpstreamFailure: Discord rejected or failed the call.
	UpstreamFailure

	// InternalFault: a bug or unexpected panic in the server.
	InternalFault
)

var codeNames = map[Code]string{
	MalformedRequest: "malformed_request",
	UnknownMethod:    "unknown_method",
	InvalidParams:    "invalid_params",
	SessionNotReady:  "session_not_ready",
	UpstreamFailure:  "upstream_failure",
	InternalFault:    "internal_fault",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// JSON-RPC 2.0 error codes.
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603

	// JSONRPCServerError is the implementation-defined code used for
	// HTTP-level rejections such as a GET on the RPC endpoint.
	JSONRPCServerError = -32000
)

// JSONRPC maps the code onto the JSON-RPC 2.0 error space. Session,
// upstream and internal failures share -32603; the category in the
// error data distinguishes them.
func (c Code) JSONRPC() int {
	switch c {
	case MalformedRequest:
		return JSONRPCInvalidRequest
	case UnknownMethod:
		return JSONRPCMethodNotFound
	case InvalidParams:
		return JSONRPCInvalidParams
	}
	return JSONRPCInternalError
}

// Category refines a Code for clients deciding whether to retry, fix
// input, or ask a human.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryNotFound          Category = "not_found"
	CategoryForbidden         Category = "forbidden"
	CategoryRateLimited       Category = "rate_limited"
	CategoryMissingCapability Category = "missing_capability"
	CategoryUnavailable       Category = "unavailable"
	CategoryUpstream          Category = "upstream"
	CategoryInternal          Category = "internal"
)

// Retryable reports whether repeating the same call may succeed
// without any change by the caller.
func (c Category) Retryable() bool {
	return c == CategoryRateLimited || c == CategoryUnavailable
}

// Envelope is the normalized failure every transport renders.
type Envelope struct {
	Code        Code     `json:"code"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
	Category    Category `json:"category"`
	Retryable   bool     `json:"retryable"`
}

// Text is the message followed by the remediation, for transports
// that carry a single human-readable string.
func (e Envelope) Text() string {
	if e.Remediation == "" {
		return e.Message
	}
	return e.Message + "\n\n" + e.Remediation
}

// Error carries an Envelope through ordinary error returns. Handlers
// return one when they already know exactly how a failure should
// surface; the dispatcher passes it through without normalizing.
type Error struct {
	Envelope
	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// WithRemediation sets the remediation text and returns e.
func (e *Error) WithRemediation(format string, args ...any) *Error {
	e.Remediation = fmt.Sprintf(format, args...)
	return e
}

// New builds an Error. Any %w verb in format is kept as the cause.
func New(code Code, category Category, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{
		Envelope: Envelope{
			Code:      code,
			Message:   err.Error(),
			Category:  category,
			Retryable: category.Retryable(),
		},
		Err: err,
	}
}

// Malformed reports a request that is not a well-formed call.
func Malformed(format string, args ...any) *Error {
	return New(MalformedRequest, CategoryValidation, format, args...)
}

// Unknown reports an unrecognized method name.
func Unknown(format string, args ...any) *Error {
	return New(UnknownMethod, CategoryNotFound, format, args...)
}

// Invalid reports arguments that failed validation.
func Invalid(format string, args ...any) *Error {
	return New(InvalidParams, CategoryValidation, format, args...)
}

// NotReady reports a session precondition failure.
func NotReady(category Category, format string, args ...any) *Error {
	return New(SessionNotReady, category, format, args...)
}

// Upstream reports a Discord-side failure the handler classified
// itself.
func Upstream(category Category, format string, args ...any) *Error {
	return New(UpstreamFailure, category, format, args...)
}

// Internal reports a server bug.
func Internal(format string, args ...any) *Error {
	return New(InternalFault, CategoryInternal, format, args...)
}
