// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
)

// Result is what a handler returns on success.
type Result struct {
	// Text is the human-readable rendering shown to the caller.
	Text string

	// Structured, when set, is also served as structured content.
	Structured any
}

// Text builds a plain-text result.
func Text(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...)}
}

// JSON builds a result whose text is value as indented JSON and whose
// structured content is value itself.
func JSON(value any) (Result, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("operation: encoding result: %w", err)
	}
	return Result{Text: string(data), Structured: value}, nil
}

// Spec is the static description of an operation.
type Spec struct {
	// Name is the unique wire name, e.g. "discord_send".
	Name string

	// Title is a human-readable display name.
	Title string

	Description string

	// RequiresSession makes the dispatcher obtain a Ready session
	// before invoking the handler. Handlers of operations without it
	// receive a nil Platform.
	RequiresSession bool

	Annotations *Annotations
}

// Invocation is a handler bound to validated arguments.
type Invocation func(ctx context.Context, platform discord.Platform) (Result, error)

// Descriptor is a registered operation: its spec, the input schema
// derived from its params struct, and the handler.
type Descriptor struct {
	Spec

	// InputSchema is generated from the same struct tags Bind
	// validates against.
	InputSchema *Schema

	bind func(arguments map[string]any) (Invocation, error)
}

// Bind validates arguments and returns the handler ready to run.
// Every violation is reported together in a *ValidationError. Unknown
// arguments are ignored.
func (d *Descriptor) Bind(arguments map[string]any) (Invocation, error) {
	return d.bind(arguments)
}

// Define builds a Descriptor from a params struct type P and a
// handler. The struct's tags declare the input constraints; see
// ParamsSchema. Define panics if P cannot describe a schema, which is
// a programming error in the catalog.
func Define[P any](spec Spec, handler func(ctx context.Context, platform discord.Platform, params *P) (Result, error)) *Descriptor {
	schema, err := ParamsSchema(new(P))
	if err != nil {
		panic(fmt.Sprintf("operation %s: %v", spec.Name, err))
	}

	return &Descriptor{
		Spec:        spec,
		InputSchema: schema,
		bind: func(arguments map[string]any) (Invocation, error) {
			normalized, violations := check(schema, arguments)
			if len(violations) > 0 {
				return nil, &ValidationError{Operation: spec.Name, Violations: violations}
			}
			params := new(P)
			if err := decodeInto(normalized, params); err != nil {
				return nil, &ValidationError{
					Operation:  spec.Name,
					Violations: []Violation{{Field: "arguments", Reason: err.Error()}},
				}
			}
			return func(ctx context.Context, platform discord.Platform) (Result, error) {
				return handler(ctx, platform, params)
			}, nil
		},
	}
}
