// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package operation declares the remote operations the server
// exposes and holds them in an immutable [Registry].
//
// Each operation is a params struct plus a handler, joined by
// [Define]. Struct tags on the params type are the single source of
// truth for both the JSON Schema served to clients and the validation
// applied before the handler runs:
//
//	type sendParams struct {
//		ChannelID string `json:"channelId" desc:"Target channel" required:"true"`
//		Limit     int    `json:"limit" desc:"Page size" default:"50" min:"1" max:"100"`
//	}
//
// [Descriptor.Bind] checks every constraint and reports all
// violations at once, then decodes the arguments into the struct with
// mapstructure.
package operation
