// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package discordtest provides an in-memory Discord for tests.
//
// A [World] holds guilds, channels, messages and webhooks and
// implements discord.Platform. A [Connector] hands out [Conn] values
// backed by one shared World, so state written through one session is
// visible after a reconnect, as it would be upstream.
package discordtest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/discord"
)

// Connector is a discord.Connector over a shared World.
type Connector struct {
	world *World

	mu         sync.Mutex
	accounts   map[string]discord.Identity
	connectErr error
	gate       chan struct{}
	conns      []*Conn

	connects atomic.Int32
	started  chan string
}

// NewConnector returns a Connector with an empty World and no
// accounts.
func NewConnector() *Connector {
	return &Connector{
		world:    NewWorld(),
		accounts: make(map[string]discord.Identity),
		started:  make(chan string, 64),
	}
}

// World returns the shared upstream state.
func (c *Connector) World() *World { return c.world }

// AddAccount makes token authenticate as identity.
func (c *Connector) AddAccount(token string, identity discord.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[token] = identity
}

// FailConnect makes subsequent Connect calls return err. Pass nil to
// clear.
func (c *Connector) FailConnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// Hold blocks Connect until the returned release function is called
// or the caller's context ends.
func (c *Connector) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gate == gate {
				c.gate = nil
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Started delivers the token of every Connect call as it begins.
func (c *Connector) Started() <-chan string { return c.started }

// Connects returns how many times Connect was called.
func (c *Connector) Connects() int { return int(c.connects.Load()) }

// LastConn returns the most recently opened Conn, or nil.
func (c *Connector) LastConn() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conns) == 0 {
		return nil
	}
	return c.conns[len(c.conns)-1]
}

// Connect implements discord.Connector.
func (c *Connector) Connect(ctx context.Context, token string) (discord.Conn, error) {
	c.connects.Add(1)
	select {
	case c.started <- token:
	default:
	}

	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("discordtest: connect: %w", ctx.Err())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	identity, ok := c.accounts[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", discord.ErrAuthenticationFailed)
	}
	conn := &Conn{World: c.world, identity: identity, token: token}
	conn.alive.Store(true)
	c.conns = append(c.conns, conn)
	return conn, nil
}

// Conn is a discord.Conn over a World.
type Conn struct {
	*World
	identity discord.Identity
	token    string
	alive    atomic.Bool
	closed   atomic.Bool
}

func (c *Conn) Identity() discord.Identity { return c.identity }

func (c *Conn) Alive() bool { return c.alive.Load() }

// Close marks the connection closed.
func (c *Conn) Close() error {
	c.closed.Store(true)
	c.alive.Store(false)
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.closed.Load() }

// Token returns the credential the connection was opened with.
func (c *Conn) Token() string { return c.token }

// Drop simulates the gateway going away without Close.
func (c *Conn) Drop() { c.alive.Store(false) }

// Call records one Platform method invocation.
type Call struct {
	Method string
	Args   []string
}

// World is an in-memory discord.Platform.
type World struct {
	mu       sync.Mutex
	guilds   map[string]*discord.Guild
	channels map[string]*discord.Channel
	messages map[string][]*discord.Message
	webhooks map[string]*discord.Webhook
	failures map[string]error
	calls    []Call
	hook     func(ctx context.Context, method string) error
	nextID   uint64
}

// NewWorld returns an empty World.
func NewWorld() *World {
	return &World{
		guilds:   make(map[string]*discord.Guild),
		channels: make(map[string]*discord.Channel),
		messages: make(map[string][]*discord.Message),
		webhooks: make(map[string]*discord.Webhook),
		failures: make(map[string]error),
		nextID:   1300000000000000000,
	}
}

// AddGuild stores guild.
func (w *World) AddGuild(guild discord.Guild) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.guilds[guild.ID] = &guild
}

// AddChannel stores channel.
func (w *World) AddChannel(channel discord.Channel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.channels[channel.ID] = &channel
}

// AddMessage appends message to its channel's history.
func (w *World) AddMessage(message discord.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages[message.ChannelID] = append(w.messages[message.ChannelID], &message)
}

// AddWebhook stores webhook.
func (w *World) AddWebhook(webhook discord.Webhook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.webhooks[webhook.ID] = &webhook
}

// Fail makes every call to method return err until cleared with nil.
func (w *World) Fail(method string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.failures, method)
		return
	}
	w.failures[method] = err
}

// OnCall installs a hook run at the start of every Platform call,
// outside the World lock. A non-nil return fails the call.
func (w *World) OnCall(hook func(ctx context.Context, method string) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hook = hook
}

// Calls returns every recorded call in order.
func (w *World) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.calls)
}

// CallsTo returns the recorded calls of one method.
func (w *World) CallsTo(method string) []Call {
	var matched []Call
	for _, call := range w.Calls() {
		if call.Method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

// History returns a snapshot of the channel's history, oldest
// first, without recording a call.
func (w *World) History(channelID string) []discord.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	history := make([]discord.Message, 0, len(w.messages[channelID]))
	for _, message := range w.messages[channelID] {
		history = append(history, *message)
	}
	return history
}

// ChannelByID returns a stored channel without recording a call.
func (w *World) ChannelByID(channelID string) (discord.Channel, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	channel, ok := w.channels[channelID]
	if !ok {
		return discord.Channel{}, false
	}
	return *channel, true
}

// WebhookByID returns a stored webhook without recording a call.
func (w *World) WebhookByID(webhookID string) (discord.Webhook, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	webhook, ok := w.webhooks[webhookID]
	if !ok {
		return discord.Webhook{}, false
	}
	return *webhook, true
}

// begin runs the hook, records the call, and returns with w.mu held
// unless it returns an error.
func (w *World) begin(ctx context.Context, method string, args ...string) error {
	w.mu.Lock()
	hook := w.hook
	w.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, method); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	w.calls = append(w.calls, Call{Method: method, Args: args})
	if err := w.failures[method]; err != nil {
		w.mu.Unlock()
		return err
	}
	return nil
}

func (w *World) newID() string {
	w.nextID++
	return strconv.FormatUint(w.nextID, 10)
}

func unknown(operation string, code int, what string) error {
	return &discord.APIError{Operation: operation, StatusCode: 404, Code: code, Message: "Unknown " + what}
}

func (w *World) channelLocked(operation, channelID string) (*discord.Channel, error) {
	channel, ok := w.channels[channelID]
	if !ok {
		return nil, unknown(operation, discord.CodeUnknownChannel, "Channel")
	}
	return channel, nil
}

func (w *World) Channel(ctx context.Context, channelID string) (*discord.Channel, error) {
	if err := w.begin(ctx, "Channel", channelID); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	channel, err := w.channelLocked("fetch channel", channelID)
	if err != nil {
		return nil, err
	}
	copied := *channel
	return &copied, nil
}

func (w *World) GuildChannels(ctx context.Context, guildID string) ([]*discord.Channel, error) {
	if err := w.begin(ctx, "GuildChannels", guildID); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	if _, ok := w.guilds[guildID]; !ok {
		return nil, unknown("list guild channels", discord.CodeUnknownGuild, "Guild")
	}
	var channels []*discord.Channel
	for _, channel := range w.channels {
		if channel.GuildID == guildID {
			copied := *channel
			channels = append(channels, &copied)
		}
	}
	slices.SortFunc(channels, func(a, b *discord.Channel) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return channels, nil
}

func (w *World) Guild(ctx context.Context, guildID string) (*discord.Guild, error) {
	if err := w.begin(ctx, "Guild", guildID); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	guild, ok := w.guilds[guildID]
	if !ok {
		return nil, unknown("fetch guild", discord.CodeUnknownGuild, "Guild")
	}
	copied := *guild
	return &copied, nil
}

func (w *World) CreateTextChannel(ctx context.Context, guildID string, spec discord.TextChannelSpec) (*discord.Channel, error) {
	if err := w.begin(ctx, "CreateTextChannel", guildID, spec.Name, spec.Topic, spec.Reason); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	if _, ok := w.guilds[guildID]; !ok {
		return nil, unknown("create channel", discord.CodeUnknownGuild, "Guild")
	}
	channel := &discord.Channel{ID: w.newID(), GuildID: guildID, Name: spec.Name, Topic: spec.Topic, Kind: discord.KindText}
	w.channels[channel.ID] = channel
	copied := *channel
	return &copied, nil
}

func (w *World) DeleteChannel(ctx context.Context, channelID, reason string) (*discord.Channel, error) {
	if err := w.begin(ctx, "DeleteChannel", channelID, reason); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	channel, err := w.channelLocked("delete channel", channelID)
	if err != nil {
		return nil, err
	}
	delete(w.channels, channelID)
	delete(w.messages, channelID)
	return channel, nil
}

func (w *World) StartForumThread(ctx context.Context, forumID string, post discord.ForumPost) (*discord.Channel, error) {
	if err := w.begin(ctx, "StartForumThread", forumID, post.Title, post.Content); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	forum, err := w.channelLocked("create forum post", forumID)
	if err != nil {
		return nil, err
	}
	thread := &discord.Channel{
		ID:           w.newID(),
		GuildID:      forum.GuildID,
		ParentID:     forum.ID,
		Name:         post.Title,
		Kind:         discord.KindThread,
		AppliedTags:  slices.Clone(post.TagIDs),
		MessageCount: 1,
	}
	w.channels[thread.ID] = thread
	w.messages[thread.ID] = append(w.messages[thread.ID], &discord.Message{
		ID:        w.newID(),
		ChannelID: thread.ID,
		Content:   post.Content,
		Timestamp: time.Unix(int64(w.nextID%1_000_000), 0).UTC(),
	})
	copied := *thread
	return &copied, nil
}

func (w *World) SendMessage(ctx context.Context, channelID, content string) (*discord.Message, error) {
	if err := w.begin(ctx, "SendMessage", channelID, content); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	if _, err := w.channelLocked("send message", channelID); err != nil {
		return nil, err
	}
	message := &discord.Message{
		ID:        w.newID(),
		ChannelID: channelID,
		Content:   content,
		Timestamp: time.Unix(int64(w.nextID%1_000_000), 0).UTC(),
	}
	w.messages[channelID] = append(w.messages[channelID], message)
	copied := *message
	return &copied, nil
}

// Messages returns the newest limit messages, newest first, matching
// the REST API's order.
func (w *World) Messages(ctx context.Context, channelID string, limit int) ([]*discord.Message, error) {
	if err := w.begin(ctx, "Messages", channelID, strconv.Itoa(limit)); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	if _, err := w.channelLocked("read messages", channelID); err != nil {
		return nil, err
	}
	history := w.messages[channelID]
	var result []*discord.Message
	for index := len(history) - 1; index >= 0 && len(result) < limit; index-- {
		copied := *history[index]
		result = append(result, &copied)
	}
	return result, nil
}

func (w *World) messageLocked(operation, channelID, messageID string) (*discord.Message, error) {
	if _, err := w.channelLocked(operation, channelID); err != nil {
		return nil, err
	}
	for _, message := range w.messages[channelID] {
		if message.ID == messageID {
			return message, nil
		}
	}
	return nil, unknown(operation, discord.CodeUnknownMessage, "Message")
}

func (w *World) Message(ctx context.Context, channelID, messageID string) (*discord.Message, error) {
	if err := w.begin(ctx, "Message", channelID, messageID); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	message, err := w.messageLocked("fetch message", channelID, messageID)
	if err != nil {
		return nil, err
	}
	copied := *message
	copied.Reactions = slices.Clone(message.Reactions)
	return &copied, nil
}

func (w *World) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	if err := w.begin(ctx, "DeleteMessage", channelID, messageID, reason); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if _, err := w.messageLocked("delete message", channelID, messageID); err != nil {
		return err
	}
	w.messages[channelID] = slices.DeleteFunc(w.messages[channelID], func(message *discord.Message) bool {
		return message.ID == messageID
	})
	return nil
}

func (w *World) AddReaction(ctx context.Context, channelID, messageID string, emoji discord.Emoji) error {
	if err := w.begin(ctx, "AddReaction", channelID, messageID, emoji.APIName()); err != nil {
		return err
	}
	defer w.mu.Unlock()
	message, err := w.messageLocked("add reaction", channelID, messageID)
	if err != nil {
		return err
	}
	for index := range message.Reactions {
		if message.Reactions[index].Emoji.Matches(emoji) {
			if !message.Reactions[index].Me {
				message.Reactions[index].Me = true
				message.Reactions[index].Count++
			}
			return nil
		}
	}
	message.Reactions = append(message.Reactions, discord.Reaction{Emoji: emoji, Count: 1, Me: true})
	return nil
}

func (w *World) RemoveReaction(ctx context.Context, channelID, messageID string, emoji discord.Emoji, userID string) error {
	if err := w.begin(ctx, "RemoveReaction", channelID, messageID, emoji.APIName(), userID); err != nil {
		return err
	}
	defer w.mu.Unlock()
	message, err := w.messageLocked("remove reaction", channelID, messageID)
	if err != nil {
		return err
	}
	message.Reactions = slices.DeleteFunc(message.Reactions, func(reaction discord.Reaction) bool {
		return reaction.Emoji.Matches(emoji)
	})
	return nil
}

func (w *World) CreateWebhook(ctx context.Context, channelID string, spec discord.WebhookSpec) (*discord.Webhook, error) {
	if err := w.begin(ctx, "CreateWebhook", channelID, spec.Name, spec.Reason); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	channel, err := w.channelLocked("create webhook", channelID)
	if err != nil {
		return nil, err
	}
	webhook := &discord.Webhook{
		ID:        w.newID(),
		ChannelID: channelID,
		GuildID:   channel.GuildID,
		Name:      spec.Name,
		Token:     "token-" + strconv.FormatUint(w.nextID, 10),
	}
	w.webhooks[webhook.ID] = webhook
	copied := *webhook
	return &copied, nil
}

func (w *World) webhookLocked(operation, webhookID, token string) (*discord.Webhook, error) {
	webhook, ok := w.webhooks[webhookID]
	if !ok || (token != "" && token != webhook.Token) {
		return nil, unknown(operation, discord.CodeUnknownWebhook, "Webhook")
	}
	return webhook, nil
}

func (w *World) ExecuteWebhook(ctx context.Context, webhookID, token string, message discord.WebhookMessage) (*discord.Message, error) {
	if err := w.begin(ctx, "ExecuteWebhook", webhookID, message.Content, message.Username, message.ThreadID); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	webhook, err := w.webhookLocked("execute webhook", webhookID, token)
	if err != nil {
		return nil, err
	}
	target := webhook.ChannelID
	if message.ThreadID != "" {
		target = message.ThreadID
	}
	sent := &discord.Message{
		ID:        w.newID(),
		ChannelID: target,
		Content:   message.Content,
		Author:    discord.Author{ID: webhook.ID, Username: message.Username, Bot: true},
		Timestamp: time.Unix(int64(w.nextID%1_000_000), 0).UTC(),
	}
	w.messages[target] = append(w.messages[target], sent)
	copied := *sent
	return &copied, nil
}

func (w *World) EditWebhook(ctx context.Context, webhookID string, edit discord.WebhookEdit) (*discord.Webhook, error) {
	if err := w.begin(ctx, "EditWebhook", webhookID, edit.Name, edit.ChannelID, edit.Reason); err != nil {
		return nil, err
	}
	defer w.mu.Unlock()
	webhook, err := w.webhookLocked("edit webhook", webhookID, edit.Token)
	if err != nil {
		return nil, err
	}
	if edit.Name != "" {
		webhook.Name = edit.Name
	}
	if edit.ChannelID != "" && edit.Token == "" {
		webhook.ChannelID = edit.ChannelID
	}
	copied := *webhook
	return &copied, nil
}

func (w *World) DeleteWebhook(ctx context.Context, webhookID, token, reason string) error {
	if err := w.begin(ctx, "DeleteWebhook", webhookID, reason); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if _, err := w.webhookLocked("delete webhook", webhookID, token); err != nil {
		return err
	}
	delete(w.webhooks, webhookID)
	return nil
}

var _ discord.Connector = (*Connector)(nil)
var _ discord.Conn = (*Conn)(nil)
