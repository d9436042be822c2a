// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"encoding/json"
	"strings"

	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

type routeKind int

const (
	routeOperation routeKind = iota
	routeInitialize
	routePing
	routeList
	routeNotification
)

// pseudoMethods are answered without the registry. list_tools is the
// flat-name spelling older clients use for discovery.
var pseudoMethods = map[string]routeKind{
	"initialize": routeInitialize,
	"ping":       routePing,
	"tools/list": routeList,
	"list_tools": routeList,
}

// route is where a method name leads. Three generations of clients
// share one table: flat operation names with the arguments as params
// ("discord_send"), namespaced discovery ("tools/list"), and the
// generic "tools/call" with {name, arguments}.
type route struct {
	kind      routeKind
	operation string
	arguments json.RawMessage

	// toolsCall records that the operation was named inside a
	// tools/call, which changes how stdio renders its failures.
	toolsCall bool
}

func resolve(method string, params json.RawMessage) (route, error) {
	if kind, ok := pseudoMethods[method]; ok {
		return route{kind: kind}, nil
	}
	if strings.HasPrefix(method, "notifications/") {
		return route{kind: routeNotification}, nil
	}
	if method != "tools/call" {
		return route{kind: routeOperation, operation: method, arguments: params}, nil
	}

	if isAbsent(params) {
		return route{}, rpcerror.Invalid("params required for tools/call")
	}
	var call toolsCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return route{}, rpcerror.Invalid("invalid tools/call params: %v", err)
	}
	if call.Name == "" {
		return route{}, rpcerror.Invalid("tools/call requires a tool name")
	}
	return route{kind: routeOperation, operation: call.Name, arguments: call.Arguments, toolsCall: true}, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
