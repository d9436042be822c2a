// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
)

// forumPostMessageLimit is how many messages discord_get_forum_post
// includes.
const forumPostMessageLimit = 10

type forumChannelsParams struct {
	GuildID string `json:"guildId" desc:"ID of the server" required:"true"`
}

type forumView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

func forumChannelsOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_get_forum_channels",
		Title:           "List forum channels",
		Description:     "Lists all forum channels in a specified Discord server (guild)",
		RequiresSession: true,
		Annotations:     operation.ReadOnly(),
	}, func(ctx context.Context, platform discord.Platform, params *forumChannelsParams) (operation.Result, error) {
		guild, err := platform.Guild(ctx, params.GuildID)
		if err != nil {
			return operation.Result{}, err
		}
		channels, err := platform.GuildChannels(ctx, params.GuildID)
		if err != nil {
			return operation.Result{}, err
		}

		var forums []forumView
		for _, channel := range channels {
			if !channel.Kind.IsForum() {
				continue
			}
			forums = append(forums, forumView{
				ID:    channel.ID,
				Name:  channel.Name,
				Topic: orDefault(channel.Topic, "No topic set"),
			})
		}
		if len(forums) == 0 {
			return operation.Text("No forum channels found in guild: %s", guild.Name), nil
		}
		return operation.JSON(forums)
	})
}

type createForumPostParams struct {
	ForumChannelID string   `json:"forumChannelId" desc:"ID of the forum channel" required:"true"`
	Title          string   `json:"title" desc:"Post title" required:"true"`
	Content        string   `json:"content" desc:"Opening message" required:"true"`
	Tags           []string `json:"tags" desc:"Names of forum tags to apply; unknown names are ignored"`
}

func createForumPostOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_create_forum_post",
		Title:           "Create forum post",
		Description:     "Creates a new post in a Discord forum channel with optional tags",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *createForumPostParams) (operation.Result, error) {
		forum, err := channelWhere(ctx, platform, params.ForumChannelID, discord.ChannelKind.IsForum,
			"Channel ID "+params.ForumChannelID+" is not a forum channel.", "")
		if err != nil {
			return operation.Result{}, err
		}
		post, err := platform.StartForumThread(ctx, forum.ID, discord.ForumPost{
			Title:   params.Title,
			Content: params.Content,
			TagIDs:  forum.TagIDs(params.Tags),
		})
		if err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully created forum post %q with ID: %s", params.Title, post.ID), nil
	})
}

type forumPostParams struct {
	ThreadID string `json:"threadId" desc:"ID of the forum post or thread" required:"true"`
}

type postMessageView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type forumPostView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ParentID     string            `json:"parentId"`
	MessageCount int               `json:"messageCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	Messages     []postMessageView `json:"messages"`
}

func forumPostOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_get_forum_post",
		Title:           "Get forum post",
		Description:     "Retrieves details about a forum post including its messages",
		RequiresSession: true,
		Annotations:     operation.ReadOnly(),
	}, func(ctx context.Context, platform discord.Platform, params *forumPostParams) (operation.Result, error) {
		post, err := thread(ctx, platform, params.ThreadID, "Cannot find thread with ID: "+params.ThreadID)
		if err != nil {
			return operation.Result{}, err
		}
		messages, err := platform.Messages(ctx, post.ID, forumPostMessageLimit)
		if err != nil {
			return operation.Result{}, err
		}

		view := forumPostView{
			ID:           post.ID,
			Name:         post.Name,
			ParentID:     post.ParentID,
			MessageCount: len(messages),
			CreatedAt:    post.CreatedAt,
			Messages:     make([]postMessageView, 0, len(messages)),
		}
		for _, message := range messages {
			view.Messages = append(view.Messages, postMessageView{
				ID:        message.ID,
				Content:   message.Content,
				Author:    orDefault(message.Author.Tag, message.Author.Username),
				CreatedAt: message.Timestamp,
			})
		}
		return operation.JSON(view)
	})
}

type replyToForumParams struct {
	ThreadID string `json:"threadId" desc:"ID of the forum post or thread" required:"true"`
	Message  string `json:"message" desc:"Reply content" required:"true"`
}

func replyToForumOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_reply_to_forum",
		Title:           "Reply to forum post",
		Description:     "Adds a reply to an existing forum post or thread",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *replyToForumParams) (operation.Result, error) {
		post, err := thread(ctx, platform, params.ThreadID, "Cannot find thread with ID: "+params.ThreadID)
		if err != nil {
			return operation.Result{}, err
		}
		sent, err := platform.SendMessage(ctx, post.ID, params.Message)
		if err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully replied to forum post. Message ID: %s", sent.ID), nil
	})
}

type deleteForumPostParams struct {
	ThreadID string `json:"threadId" desc:"ID of the forum post or thread" required:"true"`
	Reason   string `json:"reason" desc:"Audit log reason"`
}

func deleteForumPostOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_delete_forum_post",
		Title:           "Delete forum post",
		Description:     "Deletes a forum post or thread with an optional reason",
		RequiresSession: true,
		Annotations:     operation.Destructive(),
	}, func(ctx context.Context, platform discord.Platform, params *deleteForumPostParams) (operation.Result, error) {
		missing := "Cannot find forum post/thread with ID: " + params.ThreadID
		post, err := thread(ctx, platform, params.ThreadID, missing)
		if err != nil {
			return operation.Result{}, err
		}
		if _, err := platform.DeleteChannel(ctx, post.ID, orDefault(params.Reason, "Forum post deleted via API")); err != nil {
			return operation.Result{}, notFound(err, "%s", missing)
		}
		return operation.Text("Successfully deleted forum post/thread with ID: %s", params.ThreadID), nil
	})
}
