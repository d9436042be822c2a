// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
	"github.com/bureau-foundation/discord-mcp/lib/session"
	"github.com/bureau-foundation/discord-mcp/lib/version"
)

// Sessions is the part of the session manager the dispatcher needs.
type Sessions interface {
	EnsureReady(ctx context.Context) (*session.Lease, error)
}

// Request is one decoded call, independent of transport. A nil ID
// marks a notification.
type Request struct {
	ID     json.RawMessage
	Method string
	Params json.RawMessage

	// malformed is set by a transport when the message decoded as
	// JSON but not as a request.
	malformed *rpcerror.Error
}

// IsNotification reports whether the caller expects no response.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is the outcome of one Request: Result on success, Error
// otherwise.
type Response struct {
	ID     json.RawMessage
	Result any
	Error  *rpcerror.Envelope

	// toolsCall is set when the request named an operation through
	// tools/call.
	toolsCall bool
}

// DispatcherConfig holds the collaborators of a Dispatcher.
type DispatcherConfig struct {
	// Registry is the operation catalog. Required.
	Registry *operation.Registry

	// Sessions supplies the upstream session to operations that need
	// one. Required.
	Sessions Sessions

	// Hints fill in remediation text.
	Hints rpcerror.Hints

	Logger *slog.Logger
}

// Dispatcher turns Requests into Responses. It is transport-agnostic
// and safe for concurrent use.
type Dispatcher struct {
	registry *operation.Registry
	sessions Sessions
	hints    rpcerror.Hints
	logger   *slog.Logger
	tools    []toolDescription
}

// NewDispatcher returns a Dispatcher over config.Registry.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Registry == nil {
		return nil, errors.New("mcp: Registry is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("mcp: Sessions is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	descriptors := config.Registry.List()
	tools := make([]toolDescription, 0, len(descriptors))
	for _, descriptor := range descriptors {
		tools = append(tools, describe(descriptor))
	}

	return &Dispatcher{
		registry: config.Registry,
		sessions: config.Sessions,
		hints:    config.Hints,
		logger:   config.Logger,
		tools:    tools,
	}, nil
}

// Dispatch runs request and returns its Response, or nil for a
// notification. It never panics: a panic anywhere below becomes an
// internal fault.
func (d *Dispatcher) Dispatch(ctx context.Context, request *Request) (response *Response) {
	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("dispatch panicked",
				"method", request.Method,
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			response = d.failure(request, route{}, rpcerror.Internal("internal error while handling %s", request.Method))
		}
		if response != nil && request.IsNotification() {
			response = nil
		}
	}()

	response = d.dispatch(ctx, request)

	attributes := []any{"method", request.Method, "duration", time.Since(started)}
	switch {
	case response == nil || response.Error == nil:
		d.logger.Debug("request handled", attributes...)
	case response.Error.Code == rpcerror.UpstreamFailure || response.Error.Code == rpcerror.InternalFault:
		attributes = append(attributes, "code", response.Error.Code.String(), "category", response.Error.Category, "error", response.Error.Message)
		d.logger.Warn("request failed", attributes...)
	default:
		attributes = append(attributes, "code", response.Error.Code.String(), "category", response.Error.Category)
		d.logger.Info("request rejected", attributes...)
	}
	return response
}

func (d *Dispatcher) dispatch(ctx context.Context, request *Request) *Response {
	if request.malformed != nil {
		return d.failure(request, route{}, request.malformed)
	}
	if request.Method == "" {
		return d.failure(request, route{}, rpcerror.Malformed("request has no method"))
	}
	if !isAbsent(request.Params) && !isObject(request.Params) {
		return d.failure(request, route{}, rpcerror.Malformed("params must be an object"))
	}

	target, err := resolve(request.Method, request.Params)
	if err != nil {
		return d.failure(request, route{toolsCall: true}, err)
	}

	switch target.kind {
	case routeNotification:
		return nil
	case routeInitialize:
		return d.success(request, target, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: serverCapabilities{
				Tools:   &toolCapability{},
				Logging: &loggingCapability{},
			},
			ServerInfo: serverInfo{Name: ServerName, Version: version.Short()},
		})
	case routePing:
		return d.success(request, target, map[string]any{})
	case routeList:
		return d.success(request, target, toolsListResult{Tools: d.tools})
	}

	descriptor, ok := d.registry.Lookup(target.operation)
	if !ok {
		return d.failure(request, target, rpcerror.Unknown("unknown method: %s", target.operation).
			WithRemediation("Call tools/list to see the available operations."))
	}

	arguments, err := operation.DecodeArguments(target.arguments)
	if err != nil {
		return d.failure(request, target, rpcerror.Invalid("invalid arguments for %s: %v", descriptor.Name, err))
	}
	invocation, err := descriptor.Bind(arguments)
	if err != nil {
		return d.failure(request, target, rpcerror.Invalid("%w", err))
	}

	var lease *session.Lease
	if descriptor.RequiresSession {
		lease, err = d.sessions.EnsureReady(ctx)
		if err != nil {
			return d.failure(request, target, d.sessionFailure(err))
		}
		defer lease.Release()
	}

	result, err := d.invoke(ctx, descriptor, invocation, lease)
	if err != nil {
		return d.failure(request, target, err)
	}

	rendered := textResult(result.Text)
	rendered.StructuredContent = structured(result.Structured)
	return d.success(request, target, rendered)
}

// invoke runs one handler, turning a panic into an internal fault.
func (d *Dispatcher) invoke(ctx context.Context, descriptor *operation.Descriptor, invocation operation.Invocation, lease *session.Lease) (result operation.Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("operation panicked",
				"operation", descriptor.Name,
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			err = rpcerror.Internal("operation %s failed unexpectedly: %v", descriptor.Name, recovered)
		}
	}()
	if lease == nil {
		return invocation(ctx, nil)
	}
	return invocation(ctx, lease.Platform())
}

// sessionFailure explains why an operation could not get a session.
func (d *Dispatcher) sessionFailure(err error) *rpcerror.Error {
	var authErr *session.AuthError
	var timeout *session.TimeoutError
	switch {
	case errors.Is(err, session.ErrNoCredential):
		return rpcerror.NotReady(rpcerror.CategoryValidation, "Not logged in to Discord.").
			WithRemediation("Authenticate first: call discord_login with a token argument, or restart the server with DISCORD_TOKEN set or --token-file.")
	case errors.As(err, &authErr):
		return rpcerror.NotReady(rpcerror.CategoryForbidden, "Discord rejected the bot token: %v", authErr.Err).
			WithRemediation("Authenticate first: call discord_login with a valid bot token. The current token will not be retried automatically.")
	case errors.As(err, &timeout):
		return rpcerror.NotReady(rpcerror.CategoryUnavailable, "Discord session is not ready: %v", err).
			WithRemediation("Discord did not confirm the session in time. Try again shortly, or call discord_login.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return rpcerror.NotReady(rpcerror.CategoryUnavailable, "Discord session is not ready: %v", err)
	}

	envelope := rpcerror.Normalize(err, d.hints)
	failure := rpcerror.NotReady(envelope.Category, "Discord session is not ready: %s", envelope.Message)
	failure.Err = err
	failure.Remediation = envelope.Remediation
	if failure.Remediation == "" {
		failure.Remediation = "Authenticate first: call discord_login, then retry."
	}
	return failure
}

func (d *Dispatcher) success(request *Request, target route, result any) *Response {
	return &Response{ID: request.ID, Result: result, toolsCall: target.toolsCall}
}

func (d *Dispatcher) failure(request *Request, target route, err error) *Response {
	envelope := rpcerror.Normalize(err, d.hints)
	return &Response{ID: request.ID, Error: &envelope, toolsCall: target.toolsCall}
}

// structured returns value when it is a JSON object, the only shape
// MCP allows for structuredContent.
func structured(value any) any {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil || len(data) == 0 || data[0] != '{' {
		return nil
	}
	return value
}

func describe(descriptor *operation.Descriptor) toolDescription {
	description := toolDescription{
		Name:        descriptor.Name,
		Title:       descriptor.Title,
		Description: descriptor.Description,
		InputSchema: descriptor.InputSchema,
	}
	if annotations := descriptor.Annotations; annotations != nil {
		description.Annotations = &toolAnnotations{
			ReadOnlyHint:    annotations.ReadOnly,
			DestructiveHint: annotations.Destructive,
			IdempotentHint:  annotations.Idempotent,
			OpenWorldHint:   annotations.OpenWorld,
		}
	}
	return description
}
