// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

var nullID = json.RawMessage("null")

// render converts a Response to its JSON-RPC form. With toolErrors,
// session and upstream failures of a tools/call become MCP tool
// results with isError set, so the model sees them as tool output
// rather than a protocol fault.
func render(response *Response, toolErrors bool) wireResponse {
	id := response.ID
	if len(id) == 0 {
		id = nullID
	}
	wire := wireResponse{JSONRPC: "2.0", ID: id}

	envelope := response.Error
	switch {
	case envelope == nil:
		wire.Result = response.Result
	case toolErrors && response.toolsCall && isToolFailure(envelope.Code):
		result := textResult(envelope.Text())
		result.IsError = true
		result.ErrorInfo = &errorInfo{
			Code:        envelope.Code.String(),
			Category:    envelope.Category,
			Retryable:   envelope.Retryable,
			Remediation: envelope.Remediation,
		}
		wire.Result = result
	default:
		wire.Error = renderError(envelope)
	}
	return wire
}

func isToolFailure(code rpcerror.Code) bool {
	return code == rpcerror.SessionNotReady || code == rpcerror.UpstreamFailure
}

func renderError(envelope *rpcerror.Envelope) *wireError {
	return &wireError{
		Code:    envelope.Code.JSONRPC(),
		Message: envelope.Message,
		Data: &errorData{
			Code:        envelope.Code.String(),
			Category:    envelope.Category,
			Retryable:   envelope.Retryable,
			Remediation: envelope.Remediation,
		},
	}
}

// protocolError is a response to bytes that never became a Request.
func protocolError(id json.RawMessage, code int, message string) wireResponse {
	if len(id) == 0 {
		id = nullID
	}
	return wireResponse{JSONRPC: "2.0", ID: id, Error: &wireError{Code: code, Message: message}}
}

// httpStatus maps a Response onto an HTTP status code.
func httpStatus(response *Response) int {
	if response.Error == nil {
		return http.StatusOK
	}
	switch response.Error.Code {
	case rpcerror.MalformedRequest, rpcerror.UnknownMethod, rpcerror.InvalidParams:
		return http.StatusBadRequest
	case rpcerror.SessionNotReady:
		return http.StatusServiceUnavailable
	case rpcerror.UpstreamFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
