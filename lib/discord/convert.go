// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// KindOf resolves a discordgo channel type to its capability class.
func KindOf(channelType discordgo.ChannelType) ChannelKind {
	switch channelType {
	case discordgo.ChannelTypeGuildText:
		return KindText
	case discordgo.ChannelTypeGuildVoice:
		return KindVoice
	case discordgo.ChannelTypeGuildCategory:
		return KindCategory
	case discordgo.ChannelTypeGuildNews:
		return KindAnnouncement
	case discordgo.ChannelTypeGuildForum:
		return KindForum
	case discordgo.ChannelTypeGuildStageVoice:
		return KindStage
	case discordgo.ChannelTypeGuildNewsThread, discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return KindThread
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return KindDirect
	}
	return KindUnknown
}

func convertChannel(channel *discordgo.Channel) *Channel {
	if channel == nil {
		return nil
	}
	converted := &Channel{
		ID:           channel.ID,
		GuildID:      channel.GuildID,
		ParentID:     channel.ParentID,
		Name:         channel.Name,
		Topic:        channel.Topic,
		Kind:         KindOf(channel.Type),
		AppliedTags:  channel.AppliedTags,
		MessageCount: channel.MessageCount,
		CreatedAt:    snowflakeTime(channel.ID),
	}
	if channel.ThreadMetadata != nil {
		converted.Archived = channel.ThreadMetadata.Archived
	}
	for _, tag := range channel.AvailableTags {
		converted.AvailableTags = append(converted.AvailableTags, ForumTag{ID: tag.ID, Name: tag.Name})
	}
	return converted
}

func convertMessage(message *discordgo.Message) *Message {
	if message == nil {
		return nil
	}
	converted := &Message{
		ID:          message.ID,
		ChannelID:   message.ChannelID,
		Content:     message.Content,
		Timestamp:   message.Timestamp,
		Attachments: len(message.Attachments),
		Embeds:      len(message.Embeds),
	}
	if converted.Timestamp.IsZero() {
		converted.Timestamp = snowflakeTime(message.ID)
	}
	if message.Author != nil {
		converted.Author = Author{
			ID:       message.Author.ID,
			Username: message.Author.Username,
			Tag:      message.Author.String(),
			Bot:      message.Author.Bot,
		}
	}
	if message.MessageReference != nil {
		converted.ReplyTo = message.MessageReference.MessageID
	}
	for _, reaction := range message.Reactions {
		if reaction == nil || reaction.Emoji == nil {
			continue
		}
		converted.Reactions = append(converted.Reactions, Reaction{
			Emoji: Emoji{Name: reaction.Emoji.Name, ID: reaction.Emoji.ID},
			Count: reaction.Count,
			Me:    reaction.Me,
		})
	}
	return converted
}

func convertGuild(guild *discordgo.Guild) *Guild {
	if guild == nil {
		return nil
	}
	converted := &Guild{
		ID:                   guild.ID,
		Name:                 guild.Name,
		Description:          guild.Description,
		IconURL:              guild.IconURL(""),
		OwnerID:              guild.OwnerID,
		CreatedAt:            snowflakeTime(guild.ID),
		ApproximateMembers:   guild.ApproximateMemberCount,
		PremiumTier:          int(guild.PremiumTier),
		PremiumSubscriptions: guild.PremiumSubscriptionCount,
		Features:             make([]string, 0, len(guild.Features)),
	}
	if converted.ApproximateMembers == 0 {
		converted.ApproximateMembers = guild.MemberCount
	}
	for _, feature := range guild.Features {
		converted.Features = append(converted.Features, string(feature))
	}
	return converted
}

func convertWebhook(webhook *discordgo.Webhook) *Webhook {
	if webhook == nil {
		return nil
	}
	return &Webhook{
		ID:        webhook.ID,
		ChannelID: webhook.ChannelID,
		GuildID:   webhook.GuildID,
		Name:      webhook.Name,
		Token:     webhook.Token,
	}
}

// snowflakeTime decodes the creation time embedded in a Discord ID,
// or the zero time for IDs that are not snowflakes.
func snowflakeTime(id string) time.Time {
	created, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return created.UTC()
}
