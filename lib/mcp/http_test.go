// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

// post sends body to the handler and returns the recorded response.
func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, Endpoint, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) testMessage {
	t.Helper()
	var message testMessage
	if err := json.Unmarshal(recorder.Body.Bytes(), &message); err != nil {
		t.Fatalf("response body %q is not JSON: %v", recorder.Body.String(), err)
	}
	return message
}

func TestHTTP_RejectsNonPost(t *testing.T) {
	h := newHarness(t)
	handler := NewHTTPHandler(h.dispatcher, quietLogger()).Mux()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(method, Endpoint, nil))

			if recorder.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", recorder.Code)
			}
			if allow := recorder.Header().Get("Allow"); allow != http.MethodPost {
				t.Errorf("Allow = %q, want POST", allow)
			}
			message := decodeBody(t, recorder)
			if message.Error == nil || message.Error.Code != rpcerror.JSONRPCServerError {
				t.Fatalf("error = %+v, want -32000", message.Error)
			}
			if message.Error.Message != "Method not allowed. Use POST." {
				t.Errorf("message = %q", message.Error.Message)
			}
			if string(message.ID) != "null" {
				t.Errorf("id = %s, want null", message.ID)
			}
		})
	}
}

func TestHTTP_Success(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)
	handler := NewHTTPHandler(h.dispatcher, quietLogger())

	recorder := post(t, handler, `{"jsonrpc":"2.0","id":7,"method":"discord_send","params":{"channelId":"100","message":"over http"}}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if _, err := uuid.Parse(recorder.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("generated %s %q is not a UUID: %v", RequestIDHeader, recorder.Header().Get(RequestIDHeader), err)
	}

	message := decodeBody(t, recorder)
	if string(message.ID) != "7" {
		t.Errorf("id = %s, want 7", message.ID)
	}
	var result toolsCallResult
	if err := json.Unmarshal(message.Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Content[0].Text != "Message successfully sent to channel ID: 100" {
		t.Errorf("text = %q", result.Content[0].Text)
	}
}

func TestHTTP_EchoesRequestID(t *testing.T) {
	h := newHarness(t)
	handler := NewHTTPHandler(h.dispatcher, quietLogger())

	request := httptest.NewRequest(http.MethodPost, Endpoint, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	request.Header.Set(RequestIDHeader, "trace-42")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get(RequestIDHeader); got != "trace-42" {
		t.Errorf("%s = %q, want trace-42", RequestIDHeader, got)
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", recorder.Code)
	}
}

func TestHTTP_NotificationAccepted(t *testing.T) {
	h := newHarness(t)
	handler := NewHTTPHandler(h.dispatcher, quietLogger())

	recorder := post(t, handler, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", recorder.Code)
	}
	if body := strings.TrimSpace(recorder.Body.String()); body != "{}" {
		t.Errorf("body = %q, want {}", body)
	}
}

func TestHTTP_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*testing.T, *harness)
		body   string
		status int
		code   int
	}{
		{
			name:   "parse error",
			body:   `{"jsonrpc":`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCParseError,
		},
		{
			name:   "wrong version",
			body:   `{"jsonrpc":"1.0","id":1,"method":"ping"}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCInvalidRequest,
		},
		{
			name:   "unknown method",
			body:   `{"jsonrpc":"2.0","id":1,"method":"discord_teleport"}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCMethodNotFound,
		},
		{
			name:   "unknown method without version",
			body:   `{"id":1,"method":"unknown_op","params":{}}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCMethodNotFound,
		},
		{
			name:   "method not a string",
			body:   `{"jsonrpc":"2.0","id":1,"method":5}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCInvalidRequest,
		},
		{
			name:   "params not an object",
			body:   `{"jsonrpc":"2.0","id":1,"method":"discord_send","params":[1,2]}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCInvalidRequest,
		},
		{
			name:   "pseudo-method params not an object",
			body:   `{"jsonrpc":"2.0","id":1,"method":"ping","params":"x"}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCInvalidRequest,
		},
		{
			name:   "invalid params",
			body:   `{"jsonrpc":"2.0","id":1,"method":"discord_send","params":{"channelId":"100"}}`,
			status: http.StatusBadRequest,
			code:   rpcerror.JSONRPCInvalidParams,
		},
		{
			name:   "not logged in",
			body:   `{"jsonrpc":"2.0","id":1,"method":"discord_send","params":{"channelId":"100","message":"x"}}`,
			status: http.StatusServiceUnavailable,
			code:   rpcerror.JSONRPCInternalError,
		},
		{
			name: "upstream failure",
			setup: func(t *testing.T, h *harness) {
				h.authenticate(t)
				h.world.Fail("SendMessage", &discord.APIError{Operation: "send message", StatusCode: 403, Code: discord.CodeMissingAccess, Message: "Missing Access"})
			},
			body:   `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"discord_send","arguments":{"channelId":"100","message":"x"}}}`,
			status: http.StatusBadGateway,
			code:   rpcerror.JSONRPCInternalError,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			if test.setup != nil {
				test.setup(t, h)
			}
			recorder := post(t, NewHTTPHandler(h.dispatcher, quietLogger()), test.body)
			if recorder.Code != test.status {
				t.Fatalf("status = %d, want %d: %s", recorder.Code, test.status, recorder.Body)
			}
			message := decodeBody(t, recorder)
			if message.Error == nil || message.Error.Code != test.code {
				t.Fatalf("error = %+v, want code %d", message.Error, test.code)
			}
			if message.Result != nil {
				t.Errorf("error response also carries a result: %s", message.Result)
			}
		})
	}
}

func TestHTTP_AcceptsBodyWithoutVersion(t *testing.T) {
	h := newHarness(t)
	handler := NewHTTPHandler(h.dispatcher, quietLogger())

	recorder := post(t, handler, `{"id":1,"method":"ping"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body)
	}
	message := decodeBody(t, recorder)
	if message.Error != nil || string(message.Result) != "{}" || string(message.ID) != "1" {
		t.Errorf("ping response = %+v", message)
	}

	h.authenticate(t)
	recorder = post(t, handler, `{"id":"send","method":"discord_send","params":{"channelId":"100","message":"plain"}}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body)
	}
	if message := decodeBody(t, recorder); message.Error != nil || string(message.ID) != `"send"` {
		t.Errorf("send response = %+v", message)
	}
}

func TestHTTP_MalformedMethodKeepsID(t *testing.T) {
	h := newHarness(t)
	recorder := post(t, NewHTTPHandler(h.dispatcher, quietLogger()), `{"jsonrpc":"2.0","id":"keep","method":["ping"]}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	message := decodeBody(t, recorder)
	if message.Error == nil || message.Error.Code != rpcerror.JSONRPCInvalidRequest {
		t.Fatalf("error = %+v, want %d", message.Error, rpcerror.JSONRPCInvalidRequest)
	}
	if string(message.ID) != `"keep"` {
		t.Errorf("id = %s, want \"keep\"", message.ID)
	}
}

func TestHTTP_ToolFailureIsError(t *testing.T) {
	// Unlike stdio, a failed tools/call is a JSON-RPC error with the
	// envelope in data.
	h := newHarness(t)
	h.authenticate(t)
	h.world.Fail("SendMessage", &discord.APIError{Operation: "send message", StatusCode: 429, Message: "You are being rate limited."})

	recorder := post(t, NewHTTPHandler(h.dispatcher, quietLogger()),
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"discord_send","arguments":{"channelId":"100","message":"x"}}}`)
	message := decodeBody(t, recorder)
	if message.Error == nil || message.Error.Data == nil {
		t.Fatalf("error = %+v, want data", message.Error)
	}
	data := message.Error.Data
	if data.Code != "upstream_failure" || data.Category != rpcerror.CategoryRateLimited || !data.Retryable {
		t.Errorf("data = %+v", data)
	}
}

func TestHTTP_InternalFault(t *testing.T) {
	h := newHarness(t)
	dispatcher := newDispatcher(t, explodingRegistry(t), h.sessions)

	recorder := post(t, NewHTTPHandler(dispatcher, quietLogger()), `{"jsonrpc":"2.0","id":1,"method":"explode","params":{"reason":"test"}}`)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	message := decodeBody(t, recorder)
	if message.Error == nil || message.Error.Data == nil || message.Error.Data.Category != rpcerror.CategoryInternal {
		t.Errorf("error = %+v, want internal category", message.Error)
	}
}

func TestHTTP_OversizedBody(t *testing.T) {
	h := newHarness(t)
	body := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` + strings.Repeat("x", MaxRequestBytes) + `"}}`

	recorder := post(t, NewHTTPHandler(h.dispatcher, quietLogger()), body)
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", recorder.Code)
	}
}

func TestHTTP_ConcurrentRequestsOverServer(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)
	server := httptest.NewServer(NewHTTPHandler(h.dispatcher, quietLogger()).Mux())
	defer server.Close()

	const requests = 8
	statuses := make(chan int, requests)
	for range requests {
		go func() {
			response, err := http.Post(server.URL+Endpoint, "application/json",
				strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"discord_get_server_info","arguments":{"guildId":"900"}}}`))
			if err != nil {
				statuses <- 0
				return
			}
			io.Copy(io.Discard, response.Body)
			response.Body.Close()
			statuses <- response.StatusCode
		}()
	}
	for range requests {
		if status := <-statuses; status != http.StatusOK {
			t.Errorf("status = %d, want 200", status)
		}
	}
	if connects := h.connector.Connects(); connects != 1 {
		t.Errorf("Connects = %d, want 1", connects)
	}
}
