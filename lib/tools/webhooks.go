// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

type createWebhookParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel" required:"true"`
	Name      string `json:"name" desc:"Webhook display name" required:"true"`
	Avatar    string `json:"avatar" desc:"Avatar as a data URI"`
	Reason    string `json:"reason" desc:"Audit log reason"`
}

func createWebhookOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_create_webhook",
		Title:           "Create webhook",
		Description:     "Creates a new webhook for a Discord channel",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *createWebhookParams) (operation.Result, error) {
		_, err := channelWhere(ctx, platform, params.ChannelID, discord.ChannelKind.SupportsWebhooks,
			"Cannot find text channel with ID: "+params.ChannelID,
			"Channel type does not support webhooks: "+params.ChannelID)
		if err != nil {
			return operation.Result{}, err
		}
		webhook, err := platform.CreateWebhook(ctx, params.ChannelID, discord.WebhookSpec{
			Name:   params.Name,
			Avatar: params.Avatar,
			Reason: params.Reason,
		})
		if err != nil {
			return operation.Result{}, err
		}
		return operation.Result{
			Text:       "Successfully created webhook with ID: " + webhook.ID + " and token: " + webhook.Token,
			Structured: webhook,
		}, nil
	})
}

type sendWebhookMessageParams struct {
	WebhookID    string `json:"webhookId" desc:"ID of the webhook" required:"true"`
	WebhookToken string `json:"webhookToken" desc:"Token of the webhook" required:"true"`
	Content      string `json:"content" desc:"Message content" required:"true"`
	Username     string `json:"username" desc:"Override the webhook's display name"`
	AvatarURL    string `json:"avatarURL" desc:"Override the webhook's avatar"`
	ThreadID     string `json:"threadId" desc:"Thread inside the webhook's channel to post into"`
}

func sendWebhookMessageOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_send_webhook_message",
		Title:           "Send webhook message",
		Description:     "Sends a message to a Discord channel using a webhook",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *sendWebhookMessageParams) (operation.Result, error) {
		_, err := platform.ExecuteWebhook(ctx, params.WebhookID, params.WebhookToken, discord.WebhookMessage{
			Content:   params.Content,
			Username:  params.Username,
			AvatarURL: params.AvatarURL,
			ThreadID:  params.ThreadID,
		})
		if err != nil {
			return operation.Result{}, notFound(err, "Cannot find webhook with ID: %s", params.WebhookID)
		}
		return operation.Text("Successfully sent webhook message to webhook ID: %s", params.WebhookID), nil
	})
}

type editWebhookParams struct {
	WebhookID    string `json:"webhookId" desc:"ID of the webhook" required:"true"`
	WebhookToken string `json:"webhookToken" desc:"Token of the webhook; without it the bot's own permissions are used"`
	Name         string `json:"name" desc:"New display name"`
	Avatar       string `json:"avatar" desc:"New avatar as a data URI"`
	ChannelID    string `json:"channelId" desc:"Move the webhook to this channel (requires omitting webhookToken)"`
	Reason       string `json:"reason" desc:"Audit log reason"`
}

func editWebhookOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_edit_webhook",
		Title:           "Edit webhook",
		Description:     "Edits an existing webhook for a Discord channel",
		RequiresSession: true,
		Annotations:     operation.Idempotent(),
	}, func(ctx context.Context, platform discord.Platform, params *editWebhookParams) (operation.Result, error) {
		if params.WebhookToken != "" && params.ChannelID != "" {
			return operation.Result{}, rpcerror.Invalid("channelId cannot be changed when authenticating with webhookToken").
				WithRemediation("Omit webhookToken to move the webhook with the bot's permissions.")
		}
		webhook, err := platform.EditWebhook(ctx, params.WebhookID, discord.WebhookEdit{
			Token:     params.WebhookToken,
			Name:      params.Name,
			Avatar:    params.Avatar,
			ChannelID: params.ChannelID,
			Reason:    params.Reason,
		})
		if err != nil {
			return operation.Result{}, notFound(err, "Cannot find webhook with ID: %s", params.WebhookID)
		}
		return operation.Text("Successfully edited webhook with ID: %s", webhook.ID), nil
	})
}

type deleteWebhookParams struct {
	WebhookID    string `json:"webhookId" desc:"ID of the webhook" required:"true"`
	WebhookToken string `json:"webhookToken" desc:"Token of the webhook; without it the bot's own permissions are used"`
	Reason       string `json:"reason" desc:"Audit log reason"`
}

func deleteWebhookOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_delete_webhook",
		Title:           "Delete webhook",
		Description:     "Deletes an existing webhook for a Discord channel",
		RequiresSession: true,
		Annotations:     operation.Destructive(),
	}, func(ctx context.Context, platform discord.Platform, params *deleteWebhookParams) (operation.Result, error) {
		err := platform.DeleteWebhook(ctx, params.WebhookID, params.WebhookToken, orDefault(params.Reason, "Webhook deleted via API"))
		if err != nil {
			return operation.Result{}, notFound(err, "Cannot find webhook with ID: %s", params.WebhookID)
		}
		return operation.Text("Successfully deleted webhook with ID: %s", params.WebhookID), nil
	})
}
