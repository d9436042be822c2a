// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// JSON error codes from the Discord REST API that the server acts on.
// The full list is at https://discord.com/developers/docs/topics/opcodes-and-status-codes.
const (
	CodeUnknownChannel     = 10003
	CodeUnknownGuild       = 10004
	CodeUnknownMessage     = 10008
	CodeUnknownWebhook     = 10015
	CodeUnknownEmoji       = 10014
	CodeMissingAccess      = 50001
	CodeMissingPermissions = 50013
)

// Gateway close codes.
const (
	CloseAuthenticationFailed = 4004
	CloseDisallowedIntents    = 4014
)

var (
	// ErrAuthenticationFailed means Discord rejected the bot token.
	ErrAuthenticationFailed = errors.New("discord: authentication failed")

	// ErrDisallowedIntents means the gateway refused a privileged
	// intent that is not enabled for the application.
	ErrDisallowedIntents = errors.New("discord: privileged intent provided is not enabled or whitelisted")
)

// APIError is a failed REST call.
type APIError struct {
	// Operation names the call, e.g. "send message".
	Operation string

	// StatusCode is the HTTP status, 0 if the request never got a
	// response.
	StatusCode int

	// Code is Discord's JSON error code, 0 when absent.
	Code int

	// Message is Discord's error text.
	Message string

	// RetryAfter is set for rate-limit responses.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("discord: %s: %s (code %d, HTTP %d)", e.Operation, e.Message, e.Code, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("discord: %s: %s (HTTP %d)", e.Operation, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("discord: %s: %s", e.Operation, e.Message)
}

// Is lets errors.Is(err, ErrAuthenticationFailed) match a REST 401.
func (e *APIError) Is(target error) bool {
	return target == ErrAuthenticationFailed && e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports whether the call was rejected by a rate limit.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.RetryAfter > 0
}

// IsNotFound reports whether the referenced object does not exist.
func (e *APIError) IsNotFound() bool {
	switch e.Code {
	case CodeUnknownChannel, CodeUnknownMessage, CodeUnknownWebhook, CodeUnknownEmoji:
		return true
	}
	return e.StatusCode == http.StatusNotFound && e.Code != CodeUnknownGuild
}

// IsAccessDenied reports whether the bot is not in the guild or lacks
// permission. Unknown Guild is included: Discord reports it for guilds
// the bot was never added to.
func (e *APIError) IsAccessDenied() bool {
	switch e.Code {
	case CodeMissingAccess, CodeMissingPermissions, CodeUnknownGuild:
		return true
	}
	return e.StatusCode == http.StatusForbidden
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
