// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/operation"
	"github.com/bureau-foundation/discord-mcp/lib/rpcerror"
)

type createTextChannelParams struct {
	GuildID     string `json:"guildId" desc:"ID of the server" required:"true"`
	ChannelName string `json:"channelName" desc:"Name of the new channel" required:"true"`
	Topic       string `json:"topic" desc:"Channel topic"`
}

func createTextChannelOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_create_text_channel",
		Title:           "Create text channel",
		Description:     "Creates a new text channel in a Discord server with an optional topic",
		RequiresSession: true,
		Annotations:     operation.Create(),
	}, func(ctx context.Context, platform discord.Platform, params *createTextChannelParams) (operation.Result, error) {
		channel, err := platform.CreateTextChannel(ctx, params.GuildID, discord.TextChannelSpec{
			Name:  params.ChannelName,
			Topic: params.Topic,
		})
		if err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully created text channel %q with ID: %s", params.ChannelName, channel.ID), nil
	})
}

type deleteChannelParams struct {
	ChannelID string `json:"channelId" desc:"ID of the channel to delete" required:"true"`
	Reason    string `json:"reason" desc:"Audit log reason"`
}

func deleteChannelOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_delete_channel",
		Title:           "Delete channel",
		Description:     "Deletes a Discord channel with an optional reason",
		RequiresSession: true,
		Annotations:     operation.Destructive(),
	}, func(ctx context.Context, platform discord.Platform, params *deleteChannelParams) (operation.Result, error) {
		missing := "Cannot find channel with ID: " + params.ChannelID
		channel, err := platform.Channel(ctx, params.ChannelID)
		if err != nil {
			return operation.Result{}, notFound(err, "%s", missing)
		}
		if channel.Kind == discord.KindDirect {
			return operation.Result{}, rpcerror.Invalid("This channel type does not support deletion or the bot lacks permissions")
		}
		if _, err := platform.DeleteChannel(ctx, channel.ID, orDefault(params.Reason, "Channel deleted via API")); err != nil {
			return operation.Result{}, err
		}
		return operation.Text("Successfully deleted channel with ID: %s", params.ChannelID), nil
	})
}

type serverInfoParams struct {
	GuildID string `json:"guildId" desc:"ID of the server" required:"true"`
}

type channelCounts struct {
	Text         int `json:"text"`
	Voice        int `json:"voice"`
	Category     int `json:"category"`
	Forum        int `json:"forum"`
	Announcement int `json:"announcement"`
	Stage        int `json:"stage"`
	Total        int `json:"total"`
}

type premiumView struct {
	Tier          int `json:"tier"`
	Subscriptions int `json:"subscriptions"`
}

type serverView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Icon        *string       `json:"icon"`
	Owner       string        `json:"owner"`
	CreatedAt   time.Time     `json:"createdAt"`
	MemberCount any           `json:"memberCount"`
	Channels    channelCounts `json:"channels"`
	Features    []string      `json:"features"`
	Premium     premiumView   `json:"premium"`
}

func serverInfoOperation() *operation.Descriptor {
	return operation.Define(operation.Spec{
		Name:            "discord_get_server_info",
		Title:           "Get server info",
		Description:     "Retrieves detailed information about a Discord server including channel counts by type",
		RequiresSession: true,
		Annotations:     operation.ReadOnly(),
	}, func(ctx context.Context, platform discord.Platform, params *serverInfoParams) (operation.Result, error) {
		guild, err := platform.Guild(ctx, params.GuildID)
		if err != nil {
			return operation.Result{}, err
		}
		channels, err := platform.GuildChannels(ctx, params.GuildID)
		if err != nil {
			return operation.Result{}, err
		}

		view := serverView{
			ID:          guild.ID,
			Name:        guild.Name,
			Description: optional(guild.Description),
			Icon:        optional(guild.IconURL),
			Owner:       guild.OwnerID,
			CreatedAt:   guild.CreatedAt,
			MemberCount: "unknown",
			Channels:    countChannels(channels),
			Features:    guild.Features,
			Premium: premiumView{
				Tier:          guild.PremiumTier,
				Subscriptions: guild.PremiumSubscriptions,
			},
		}
		if guild.ApproximateMembers > 0 {
			view.MemberCount = guild.ApproximateMembers
		}
		if view.Features == nil {
			view.Features = []string{}
		}
		return operation.JSON(view)
	})
}

func countChannels(channels []*discord.Channel) channelCounts {
	counts := channelCounts{Total: len(channels)}
	for _, channel := range channels {
		switch channel.Kind {
		case discord.KindText:
			counts.Text++
		case discord.KindVoice:
			counts.Voice++
		case discord.KindCategory:
			counts.Category++
		case discord.KindForum:
			counts.Forum++
		case discord.KindAnnouncement:
			counts.Announcement++
		case discord.KindStage:
			counts.Stage++
		}
	}
	return counts
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
