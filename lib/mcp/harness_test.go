// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/discord/discordtest"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
	"github.com/bureau-foundation/discord-mcp/lib/session"
	"github.com/bureau-foundation/discord-mcp/lib/tools"
)

const (
	guildID = "900"
	textID  = "100"
	forumID = "103"
)

var alice = discord.Identity{UserID: "1001", Username: "alice-bot", Tag: "alice-bot#0001", ApplicationID: "1001"}

type harness struct {
	connector  *discordtest.Connector
	world      *discordtest.World
	sessions   *session.Manager
	dispatcher *Dispatcher
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness returns a dispatcher over the full catalog, backed by a
// fake Discord with one guild, a text channel and a forum. The
// session has no credential until the test sets one.
func newHarness(t *testing.T) *harness {
	t.Helper()
	connector := discordtest.NewConnector()
	connector.AddAccount("token-alice", alice)

	world := connector.World()
	world.AddGuild(discord.Guild{ID: guildID, Name: "Test Guild"})
	world.AddChannel(discord.Channel{ID: textID, GuildID: guildID, Name: "general", Kind: discord.KindText})
	world.AddChannel(discord.Channel{ID: forumID, GuildID: guildID, Name: "support", Kind: discord.KindForum})

	sessions, err := session.NewManager(session.Config{Connector: connector, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	registry, err := tools.NewRegistry(tools.Options{Sessions: sessions})
	if err != nil {
		t.Fatalf("tools.NewRegistry: %v", err)
	}
	return &harness{
		connector:  connector,
		world:      world,
		sessions:   sessions,
		dispatcher: newDispatcher(t, registry, sessions),
	}
}

func newDispatcher(t *testing.T, registry *operation.Registry, sessions Sessions) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherConfig{
		Registry: registry,
		Sessions: sessions,
		Hints:    rpcerror.Hints{ApplicationID: alice.ApplicationID},
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return dispatcher
}

func (h *harness) authenticate(t *testing.T) {
	t.Helper()
	if err := h.sessions.SetCredential([]byte("token-alice")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
}

// call dispatches one request. A zero id makes it a notification.
func (h *harness) call(t *testing.T, id int, method string, params any) *Response {
	t.Helper()
	return dispatch(t, h.dispatcher, id, method, params)
}

func dispatch(t *testing.T, dispatcher *Dispatcher, id int, method string, params any) *Response {
	t.Helper()
	request := &Request{Method: method}
	if id != 0 {
		request.ID = mustJSON(t, id)
	}
	if params != nil {
		request.Params = mustJSON(t, params)
	}
	return dispatcher.Dispatch(context.Background(), request)
}

func mustJSON(t *testing.T, value any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %v: %v", value, err)
	}
	return data
}

func sendArguments(message string) map[string]any {
	return map[string]any{"channelId": textID, "message": message}
}

// toolText returns the text of a successful operation result.
func toolText(t *testing.T, response *Response) string {
	t.Helper()
	if response == nil {
		t.Fatal("response is nil")
	}
	if response.Error != nil {
		t.Fatalf("unexpected error %s: %s", response.Error.Code, response.Error.Message)
	}
	result, ok := response.Result.(toolsCallResult)
	if !ok {
		t.Fatalf("Result = %T, want toolsCallResult", response.Result)
	}
	if len(result.Content) != 1 {
		t.Fatalf("Content = %v, want one block", result.Content)
	}
	return result.Content[0].Text
}

func requireEnvelope(t *testing.T, response *Response, code rpcerror.Code, category rpcerror.Category) *rpcerror.Envelope {
	t.Helper()
	if response == nil {
		t.Fatal("response is nil")
	}
	if response.Error == nil {
		t.Fatalf("expected %s error, got result %+v", code, response.Result)
	}
	if response.Error.Code != code || response.Error.Category != category {
		t.Fatalf("error = %s/%s (%s), want %s/%s",
			response.Error.Code, response.Error.Category, response.Error.Message, code, category)
	}
	return response.Error
}

type panicParams struct {
	Reason string `json:"reason"`
}

// explodingRegistry holds one operation that panics and one that
// succeeds, neither needing a session.
func explodingRegistry(t *testing.T) *operation.Registry {
	t.Helper()
	registry, err := operation.NewRegistry(
		operation.Define(operation.Spec{Name: "explode", Description: "panics"},
			func(ctx context.Context, platform discord.Platform, params *panicParams) (operation.Result, error) {
				panic("boom: " + params.Reason)
			}),
		operation.Define(operation.Spec{Name: "echo", Description: "echoes"},
			func(ctx context.Context, platform discord.Platform, params *panicParams) (operation.Result, error) {
				return operation.Text("echo %s", params.Reason), nil
			}),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}
