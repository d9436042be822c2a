// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"strings"
	"time"
)

// Identity describes the authenticated bot account.
type Identity struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Tag           string `json:"tag"`
	ApplicationID string `json:"applicationId,omitempty"`
}

// ChannelKind is the capability class of a channel.
type ChannelKind int

const (
	KindUnknown ChannelKind = iota
	KindText
	KindVoice
	KindCategory
	KindAnnouncement
	KindForum
	KindStage
	KindThread
	KindDirect
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindText:         "text",
	KindVoice:        "voice",
	KindCategory:     "category",
	KindAnnouncement: "announcement",
	KindForum:        "forum",
	KindStage:        "stage",
	KindThread:       "thread",
	KindDirect:       "direct",
}

func (k ChannelKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// CanSendMessages reports whether messages can be posted directly
// into a channel of this kind. Forums accept posts only as new
// threads.
func (k ChannelKind) CanSendMessages() bool {
	switch k {
	case KindText, KindAnnouncement, KindThread, KindDirect, KindVoice:
		return true
	}
	return false
}

// CanReadMessages reports whether the channel has a message history.
func (k ChannelKind) CanReadMessages() bool { return k.CanSendMessages() }

// SupportsWebhooks reports whether webhooks can be created on the
// channel.
func (k ChannelKind) SupportsWebhooks() bool {
	switch k {
	case KindText, KindAnnouncement, KindForum:
		return true
	}
	return false
}

// IsThread reports whether the channel is a thread, including forum
// posts.
func (k ChannelKind) IsThread() bool { return k == KindThread }

// IsForum reports whether the channel is a forum channel.
func (k ChannelKind) IsForum() bool { return k == KindForum }

// Channel is a guild channel, thread, or DM.
type Channel struct {
	ID       string      `json:"id"`
	GuildID  string      `json:"guildId,omitempty"`
	ParentID string      `json:"parentId,omitempty"`
	Name     string      `json:"name"`
	Topic    string      `json:"topic,omitempty"`
	Kind     ChannelKind `json:"-"`

	// AvailableTags is set on forum channels.
	AvailableTags []ForumTag `json:"availableTags,omitempty"`

	// AppliedTags and MessageCount are set on threads.
	AppliedTags  []string `json:"appliedTags,omitempty"`
	MessageCount int      `json:"messageCount,omitempty"`
	Archived     bool     `json:"archived,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ForumTag is a tag a forum channel offers for its posts.
type ForumTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagIDs returns the IDs of the available tags whose names appear in
// names, in the forum's tag order. Unknown names are ignored.
func (c *Channel) TagIDs(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	var ids []string
	for _, tag := range c.AvailableTags {
		if wanted[tag.Name] {
			ids = append(ids, tag.ID)
		}
	}
	return ids
}

// Author is the sender of a message.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Tag      string `json:"tag,omitempty"`
	Bot      bool   `json:"bot"`
}

// Message is a channel message.
type Message struct {
	ID          string     `json:"id"`
	ChannelID   string     `json:"channelId"`
	Content     string     `json:"content"`
	Author      Author     `json:"author"`
	Timestamp   time.Time  `json:"timestamp"`
	Attachments int        `json:"attachments"`
	Embeds      int        `json:"embeds"`
	ReplyTo     string     `json:"replyTo,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
}

// HasReaction reports whether emoji is among the message's reactions.
func (m *Message) HasReaction(emoji Emoji) bool {
	for _, reaction := range m.Reactions {
		if reaction.Emoji.Matches(emoji) {
			return true
		}
	}
	return false
}

// Reaction is one emoji's tally on a message.
type Reaction struct {
	Emoji Emoji `json:"emoji"`
	Count int   `json:"count"`
	Me    bool  `json:"me"`
}

// Emoji is a unicode emoji (ID empty) or a custom guild emoji.
type Emoji struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// ParseEmoji accepts a unicode emoji, a custom emoji in message form
// ("<:name:id>" or "<a:name:id>"), or the "name:id" form the REST API
// uses.
func ParseEmoji(text string) Emoji {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "<") && strings.HasSuffix(text, ">") {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "<"), ">")
		text = strings.TrimPrefix(text, "a:")
		text = strings.TrimPrefix(text, ":")
	}
	if name, id, ok := strings.Cut(text, ":"); ok && id != "" {
		return Emoji{Name: name, ID: id}
	}
	return Emoji{Name: text}
}

// APIName is the emoji's form in reaction endpoints.
func (e Emoji) APIName() string {
	if e.ID != "" {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

// Matches compares custom emoji by ID and unicode emoji by name.
func (e Emoji) Matches(other Emoji) bool {
	if e.ID != "" || other.ID != "" {
		return e.ID == other.ID
	}
	return e.Name == other.Name
}

func (e Emoji) String() string {
	if e.ID != "" {
		return "<:" + e.Name + ":" + e.ID + ">"
	}
	return e.Name
}

// Guild is a Discord server.
type Guild struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description,omitempty"`
	IconURL              string    `json:"icon,omitempty"`
	OwnerID              string    `json:"owner"`
	CreatedAt            time.Time `json:"createdAt"`
	ApproximateMembers   int       `json:"memberCount"`
	Features             []string  `json:"features"`
	PremiumTier          int       `json:"premiumTier"`
	PremiumSubscriptions int       `json:"premiumSubscriptions"`
}

// Webhook is a channel webhook. Token is only populated for webhooks
// the bot created.
type Webhook struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`
	GuildID   string `json:"guildId,omitempty"`
	Name      string `json:"name"`
	Token     string `json:"token,omitempty"`
}
