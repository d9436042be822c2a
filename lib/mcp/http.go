// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

// Endpoint is the only path the HTTP transport serves.
const Endpoint = "/mcp"

// MaxRequestBytes bounds an HTTP request body.
const MaxRequestBytes = 4 << 20

// RequestIDHeader carries the request id. A caller-supplied value is
// kept; otherwise one is generated. Either way it is echoed back.
const RequestIDHeader = "X-Request-Id"

// HTTPHandler serves stateless JSON-RPC on POST /mcp. Every request
// stands alone; concurrent requests share only the session behind the
// Dispatcher.
type HTTPHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHTTPHandler returns a handler for Endpoint.
func NewHTTPHandler(dispatcher *Dispatcher, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{dispatcher: dispatcher, logger: logger}
}

// Mux returns a ServeMux with the handler mounted at Endpoint.
func (h *HTTPHandler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Endpoint, h)
	return mux
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	logger := h.logger.With("request_id", requestID)

	status, method := h.serve(w, r)
	logger.Info("http request",
		"http_method", r.Method,
		"rpc_method", method,
		"status", status,
		"duration", time.Since(started),
	)
}

// serve writes the response and returns its status and the JSON-RPC
// method, when one was decoded.
func (h *HTTPHandler) serve(w http.ResponseWriter, r *http.Request) (int, string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return writeJSON(w, http.StatusMethodNotAllowed,
			protocolError(nil, rpcerror.JSONRPCServerError, "Method not allowed. Use POST.")), ""
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return writeJSON(w, http.StatusRequestEntityTooLarge,
				protocolError(nil, rpcerror.JSONRPCInvalidRequest, "request body exceeds 4 MiB")), ""
		}
		return writeJSON(w, http.StatusBadRequest,
			protocolError(nil, rpcerror.JSONRPCParseError, "reading request body: "+err.Error())), ""
	}

	var wire wireRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return writeJSON(w, http.StatusBadRequest,
			protocolError(nil, rpcerror.JSONRPCParseError, "parse error: "+err.Error())), ""
	}
	// Clients of the plain HTTP shape send {id, method, params} with no
	// jsonrpc member; only a version that is present must be 2.0.
	request := wire.request()
	if version, present := wire.version(); present && version != "2.0" {
		envelope := rpcerror.Malformed("unsupported JSON-RPC version %q", version).Envelope
		return writeJSON(w, http.StatusBadRequest, render(&Response{ID: request.ID, Error: &envelope}, false)), request.Method
	}

	response := h.dispatcher.Dispatch(r.Context(), request)
	if response == nil {
		return writeJSON(w, http.StatusAccepted, struct{}{}), request.Method
	}
	return writeJSON(w, httpStatus(response), render(response, false)), request.Method
}

func writeJSON(w http.ResponseWriter, status int, body any) int {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(protocolError(nil, rpcerror.JSONRPCInternalError, "encoding response: "+err.Error()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
	return status
}
