// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpcerror

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
)

// Invite permission sets. With a known application ID the link asks
// for Administrator; the placeholder link lists the individual
// permissions the operations use.
const (
	AdministratorPermissions = "8"
	OperationPermissions     = "52076489808"
)

// Hints carries deployment facts the remediation text needs.
type Hints struct {
	// ApplicationID fills the client_id of the invite link. Empty
	// produces a YOUR_CLIENT_ID placeholder.
	ApplicationID string

	// InvitePermissions overrides the permissions value of the link.
	InvitePermissions string

	// PrivilegedIntents names the privileged intents the bot requests,
	// as shown in the Developer Portal.
	PrivilegedIntents []string
}

// InviteLink returns the OAuth2 URL that adds the bot to a server.
func (h Hints) InviteLink() string {
	clientID := h.ApplicationID
	permissions := AdministratorPermissions
	if clientID == "" {
		clientID = "YOUR_CLIENT_ID"
		permissions = OperationPermissions
	}
	if h.InvitePermissions != "" {
		permissions = h.InvitePermissions
	}
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot&permissions=%s", clientID, permissions)
}

func (h Hints) intentList() string {
	intents := h.PrivilegedIntents
	if len(intents) == 0 {
		intents = []string{"Message Content", "Server Members", "Presence"}
	}
	return strings.Join(intents, ", ")
}

// Normalize maps any handler failure onto an Envelope. It is pure:
// the same error and hints always produce the same envelope.
//
// Errors that already carry an Envelope pass through. Otherwise the
// first matching rule wins: authorization, rate limit, missing
// privileged intent, then a generic upstream failure with the raw
// message.
func Normalize(err error, hints Hints) Envelope {
	if err == nil {
		return Envelope{Code: InternalFault, Message: "internal error: nil failure", Category: CategoryInternal}
	}

	var carried *Error
	if errors.As(err, &carried) {
		return carried.Envelope
	}

	apiErr, isAPI := discord.AsAPIError(err)
	message := err.Error()
	if isAPI && apiErr.Message != "" {
		message = apiErr.Message
	}

	switch {
	case isAccessDenied(apiErr, message):
		return Envelope{
			Code:     UpstreamFailure,
			Message:  "The bot is not a member of the target Discord server or lacks required permissions: " + message,
			Category: CategoryForbidden,
			Remediation: "Add the bot to the target server using this invite link:\n" + hints.InviteLink() +
				"\nA bot can only access servers it has been explicitly added to.",
		}

	case isRateLimited(apiErr, message):
		wait := "a moment"
		if isAPI && apiErr.RetryAfter > 0 {
			wait = apiErr.RetryAfter.Round(time.Millisecond).String()
		}
		return Envelope{
			Code:        UpstreamFailure,
			Message:     "Discord API rate limit reached: " + message,
			Category:    CategoryRateLimited,
			Retryable:   true,
			Remediation: "Wait " + wait + " before trying again. If this persists, space out requests.",
		}

	case isMissingIntent(err, message):
		return Envelope{
			Code:     UpstreamFailure,
			Message:  "Privileged intents are not enabled: " + message,
			Category: CategoryMissingCapability,
			Remediation: "Enable the " + hints.intentList() +
				" intent in the Discord Developer Portal under Bot > Privileged Gateway Intents, then log in again.",
		}
	}

	envelope := Envelope{
		Code:     UpstreamFailure,
		Message:  "Discord API Error: " + message,
		Category: CategoryUpstream,
	}
	switch {
	case isAPI && apiErr.IsNotFound():
		envelope.Category = CategoryNotFound
	case isAPI && apiErr.StatusCode >= 500:
		envelope.Category = CategoryUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		envelope.Category = CategoryUnavailable
	}
	envelope.Retryable = envelope.Category.Retryable()
	return envelope
}

func isAccessDenied(apiErr *discord.APIError, message string) bool {
	if apiErr != nil && apiErr.IsAccessDenied() {
		return true
	}
	return strings.Contains(message, "Missing Access") ||
		strings.Contains(message, "Unknown Guild") ||
		strings.Contains(message, "Missing Permissions")
}

func isRateLimited(apiErr *discord.APIError, message string) bool {
	if apiErr != nil && apiErr.IsRateLimited() {
		return true
	}
	return strings.Contains(strings.ToLower(message), "rate limit")
}

func isMissingIntent(err error, message string) bool {
	if errors.Is(err, discord.ErrDisallowedIntents) {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "privileged intent") || strings.Contains(lower, "disallowed intent")
}
