// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"sort"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
)

type sendParams struct {
	ChannelID string `json:"channelId" desc:"ID of the text channel, thread, or DM" required:"true"`
	Message   string `json:"message" desc:"Message content" required:"true"`
}

func sendOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_send",
		Title:           "Send message",
		Description:     "Sends a message to a specified Discord text channel",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *sendParams) (operation.Result, error) {
		_, err := channelWhere(ctx, platform, params.ChannelID, discord.ChannelKind.CanSendMessages,
			"Cannot find text channel ID: "+params.ChannelID,
			"This channel type does not support sending messages")
		if err != nil {
			return operation.Result{}, err
		}
		if _, err := platform.SendMessage(ctx, params.ChannelID, params.Message); err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Message successfully sent to channel ID: %s", params.ChannelID), nil
	})
}

type readMessagesParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel to read" required:"true"`
	Limit     int    `json:"limit" desc:"Number of recent messages to fetch" default:"50" min:"1" max:"100"`
}

type authorView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type messageView struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Author      authorView `json:"author"`
	Timestamp   time.Time  `json:"timestamp"`
	Attachments int        `json:"attachments"`
	Embeds      int        `json:"embeds"`
	ReplyTo     *string    `json:"replyTo"`
}

type messagePage struct {
	ChannelID    string        `json:"channelId"`
	MessageCount int           `json:"messageCount"`
	Messages     []messageView `json:"messages"`
}

func readMessagesOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_read_messages",
		Title:           "Read messages",
		Description:     "Retrieves recent messages from a Discord text channel, oldest first",
		RequiresSession: true,
		Annotations:     operation.ReadOnly(),
	}, func(ctx context.Context, platform discord.Platform, params *readMessagesParams) (operation.Result, error) {
		_, err := channelWhere(ctx, platform, params.ChannelID, discord.ChannelKind.CanReadMessages,
			"Cannot find channel with ID: "+params.ChannelID,
			"Channel type does not support reading messages")
		if err != nil {
			return operation.Result{}, err
		}

		messages, err := platform.Messages(ctx, params.ChannelID, params.Limit)
		if err != nil {
			return operation.Result{}, err
		}
		if len(messages) == 0 {
			return operation.Text("No messages found in channel"), nil
		}

		views := make([]messageView, 0, len(messages))
		for _, message := range messages {
			view := messageView{
				ID:      message.ID,
				Content: message.Content,
				Author: authorView{
					ID:       message.Author.ID,
					Username: message.Author.Username,
					Bot:      message.Author.Bot,
				},
				Timestamp:   message.Timestamp,
				Attachments: message.Attachments,
				Embeds:      message.Embeds,
			}
			if message.ReplyTo != "" {
				replyTo := message.ReplyTo
				view.ReplyTo = &replyTo
			}
			views = append(views, view)
		}
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Timestamp.Before(views[j].Timestamp)
		})

		return operation.JSON(messagePage{
			ChannelID:    params.ChannelID,
			MessageCount: len(views),
			Messages:     views,
		})
	})
}

type deleteMessageParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel holding the message" required:"true"`
	MessageID string `json:"messageId" desc:"ID of the message to delete" required:"true"`
	Reason    string `json:"reason" desc:"Audit log reason"`
}

func deleteMessageOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_delete_message",
		Title:           "Delete message",
		Description:     "Deletes a specific message from a Discord text channel",
		RequiresSession: true,
		Annotations:     operation.Destructive(),
	}, func(ctx context.Context, platform discord.Platform, params *deleteMessageParams) (operation.Result, error) {
		if _, err := message(ctx, platform, params.ChannelID, params.MessageID); err != nil {
			return operation.Result{}, err
		}
		if err := platform.DeleteMessage(ctx, params.ChannelID, params.MessageID, params.Reason); err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully deleted message with ID: %s from channel: %s", params.MessageID, params.ChannelID), nil
	})
}
