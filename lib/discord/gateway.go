// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

// DefaultIntents are the gateway intents the server requests. Message
// Content is privileged and must be enabled in the Developer Portal.
const DefaultIntents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildMessageReactions |
	discordgo.IntentMessageContent

// PrivilegedIntentNames returns the Developer Portal names of the
// privileged intents in intents.
func PrivilegedIntentNames(intents discordgo.Intent) []string {
	var names []string
	if intents&discordgo.IntentMessageContent != 0 {
		names = append(names, "Message Content")
	}
	if intents&discordgo.IntentGuildMembers != 0 {
		names = append(names, "Server Members")
	}
	if intents&discordgo.IntentGuildPresences != 0 {
		names = append(names, "Presence")
	}
	return names
}

// GatewayConfig configures a GatewayConnector.
type GatewayConfig struct {
	// Intents defaults to DefaultIntents.
	Intents discordgo.Intent

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// GatewayConnector opens discordgo sessions.
type GatewayConnector struct {
	intents discordgo.Intent
	logger  *slog.Logger
}

// NewGatewayConnector returns a Connector backed by discordgo.
func NewGatewayConnector(config GatewayConfig) *GatewayConnector {
	intents := config.Intents
	if intents == 0 {
		intents = DefaultIntents
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewayConnector{intents: intents, logger: logger}
}

// Intents returns the intents the connector identifies with.
func (c *GatewayConnector) Intents() discordgo.Intent { return c.intents }

// Connect opens the gateway and waits for READY. Rate-limited REST
// calls fail immediately with an APIError instead of sleeping inside
// discordgo.
func (c *GatewayConnector) Connect(ctx context.Context, token string) (Conn, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: creating session: %w", err)
	}
	session.Identify.Intents = c.intents
	session.ShouldRetryOnRateLimit = false
	session.StateEnabled = true

	conn := &gatewayConn{session: session, logger: c.logger}
	session.AddHandler(conn.onDisconnect)
	session.AddHandler(conn.onResumed)
	session.AddHandler(conn.onReady)

	opened := make(chan error, 1)
	go func() { opened <- session.Open() }()

	select {
	case err := <-opened:
		if err != nil {
			session.Close()
			return nil, translateOpenError(err)
		}
	case <-ctx.Done():
		// Open has no cancellation; close the session if it completes.
		go func() {
			if err := <-opened; err == nil {
				session.Close()
			}
		}()
		return nil, fmt.Errorf("discord: opening gateway: %w", ctx.Err())
	}

	identity, err := readIdentity(ctx, session)
	if err != nil {
		session.Close()
		return nil, err
	}
	conn.identity = identity
	conn.alive.Store(true)
	c.logger.Info("discord gateway ready", "user", identity.Tag, "application", identity.ApplicationID)
	return conn, nil
}

func readIdentity(ctx context.Context, session *discordgo.Session) (Identity, error) {
	session.State.RLock()
	user := session.State.User
	application := session.State.Application
	session.State.RUnlock()

	if user == nil {
		fetched, err := session.User("@me", discordgo.WithContext(ctx))
		if err != nil {
			return Identity{}, translateREST("fetch bot user", err)
		}
		user = fetched
	}

	identity := Identity{
		UserID:        user.ID,
		Username:      user.Username,
		Tag:           user.String(),
		ApplicationID: user.ID,
	}
	if application != nil && application.ID != "" {
		identity.ApplicationID = application.ID
	}
	return identity, nil
}

// translateOpenError maps gateway handshake failures onto the package
// sentinels. discordgo surfaces close frames as *websocket.CloseError
// but does not always wrap them, so the close code is also matched in
// the message text.
func translateOpenError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case CloseAuthenticationFailed:
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		case CloseDisallowedIntents:
			return fmt.Errorf("%w: %v", ErrDisallowedIntents, err)
		}
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return translateREST("open gateway", err)
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "4004"), strings.Contains(text, "Authentication failed"):
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	case strings.Contains(text, "4014"), strings.Contains(text, "Disallowed intent"):
		return fmt.Errorf("%w: %v", ErrDisallowedIntents, err)
	}
	return fmt.Errorf("discord: opening gateway: %w", err)
}

// translateREST converts discordgo REST failures into *APIError.
// Other errors (network, context) are wrapped unchanged.
func translateREST(operation string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		apiErr := &APIError{Operation: operation, StatusCode: 429, Message: "rate limit exceeded"}
		if rateErr.RateLimit != nil && rateErr.TooManyRequests != nil {
			apiErr.RetryAfter = rateErr.RetryAfter
			if rateErr.TooManyRequests.Message != "" {
				apiErr.Message = rateErr.TooManyRequests.Message
			}
		}
		return apiErr
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		apiErr := &APIError{Operation: operation, Message: "request failed"}
		if restErr.Response != nil {
			apiErr.StatusCode = restErr.Response.StatusCode
			apiErr.Message = restErr.Response.Status
		}
		if restErr.Message != nil {
			apiErr.Code = restErr.Message.Code
			if restErr.Message.Message != "" {
				apiErr.Message = restErr.Message.Message
			}
		}
		return apiErr
	}

	return fmt.Errorf("discord: %s: %w", operation, err)
}

// gatewayConn is a Conn over one discordgo session.
type gatewayConn struct {
	session  *discordgo.Session
	logger   *slog.Logger
	identity Identity
	alive    atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func (c *gatewayConn) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	if c.alive.Swap(false) {
		c.logger.Warn("discord gateway disconnected")
	}
}

func (c *gatewayConn) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	c.alive.Store(true)
}

func (c *gatewayConn) onReady(_ *discordgo.Session, _ *discordgo.Ready) {
	c.alive.Store(true)
}

func (c *gatewayConn) Identity() Identity { return c.identity }

func (c *gatewayConn) Alive() bool { return c.alive.Load() }

func (c *gatewayConn) Close() error {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}

func (c *gatewayConn) Channel(ctx context.Context, channelID string) (*Channel, error) {
	channel, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("fetch channel", err)
	}
	return convertChannel(channel), nil
}

func (c *gatewayConn) GuildChannels(ctx context.Context, guildID string) ([]*Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("list guild channels", err)
	}
	converted := make([]*Channel, 0, len(channels))
	for _, channel := range channels {
		converted = append(converted, convertChannel(channel))
	}
	return converted, nil
}

func (c *gatewayConn) Guild(ctx context.Context, guildID string) (*Guild, error) {
	guild, err := c.session.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("fetch guild", err)
	}
	return convertGuild(guild), nil
}

func (c *gatewayConn) CreateTextChannel(ctx context.Context, guildID string, spec TextChannelSpec) (*Channel, error) {
	options := requestOptions(ctx, spec.Reason)
	channel, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:  spec.Name,
		Type:  discordgo.ChannelTypeGuildText,
		Topic: spec.Topic,
	}, options...)
	if err != nil {
		return nil, translateREST("create channel", err)
	}
	return convertChannel(channel), nil
}

func (c *gatewayConn) DeleteChannel(ctx context.Context, channelID, reason string) (*Channel, error) {
	channel, err := c.session.ChannelDelete(channelID, requestOptions(ctx, reason)...)
	if err != nil {
		return nil, translateREST("delete channel", err)
	}
	return convertChannel(channel), nil
}

func (c *gatewayConn) StartForumThread(ctx context.Context, forumID string, post ForumPost) (*Channel, error) {
	thread, err := c.session.ForumThreadStartComplex(forumID,
		&discordgo.ThreadStart{Name: post.Title, AppliedTags: post.TagIDs},
		&discordgo.MessageSend{Content: post.Content},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return nil, translateREST("create forum post", err)
	}
	return convertChannel(thread), nil
}

func (c *gatewayConn) SendMessage(ctx context.Context, channelID, content string) (*Message, error) {
	message, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("send message", err)
	}
	return convertMessage(message), nil
}

func (c *gatewayConn) Messages(ctx context.Context, channelID string, limit int) ([]*Message, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("read messages", err)
	}
	converted := make([]*Message, 0, len(messages))
	for _, message := range messages {
		converted = append(converted, convertMessage(message))
	}
	return converted, nil
}

func (c *gatewayConn) Message(ctx context.Context, channelID, messageID string) (*Message, error) {
	message, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateREST("fetch message", err)
	}
	return convertMessage(message), nil
}

func (c *gatewayConn) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	err := c.session.ChannelMessageDelete(channelID, messageID, requestOptions(ctx, reason)...)
	return translateREST("delete message", err)
}

func (c *gatewayConn) AddReaction(ctx context.Context, channelID, messageID string, emoji Emoji) error {
	err := c.session.MessageReactionAdd(channelID, messageID, emoji.APIName(), discordgo.WithContext(ctx))
	return translateREST("add reaction", err)
}

func (c *gatewayConn) RemoveReaction(ctx context.Context, channelID, messageID string, emoji Emoji, userID string) error {
	if userID == "" {
		userID = "@me"
	}
	err := c.session.MessageReactionRemove(channelID, messageID, emoji.APIName(), userID, discordgo.WithContext(ctx))
	return translateREST("remove reaction", err)
}

func (c *gatewayConn) CreateWebhook(ctx context.Context, channelID string, spec WebhookSpec) (*Webhook, error) {
	webhook, err := c.session.WebhookCreate(channelID, spec.Name, spec.Avatar, requestOptions(ctx, spec.Reason)...)
	if err != nil {
		return nil, translateREST("create webhook", err)
	}
	return convertWebhook(webhook), nil
}

func (c *gatewayConn) ExecuteWebhook(ctx context.Context, webhookID, token string, message WebhookMessage) (*Message, error) {
	params := &discordgo.WebhookParams{
		Content:   message.Content,
		Username:  message.Username,
		AvatarURL: message.AvatarURL,
	}
	var sent *discordgo.Message
	var err error
	if message.ThreadID != "" {
		sent, err = c.session.WebhookThreadExecute(webhookID, token, true, message.ThreadID, params, discordgo.WithContext(ctx))
	} else {
		sent, err = c.session.WebhookExecute(webhookID, token, true, params, discordgo.WithContext(ctx))
	}
	if err != nil {
		return nil, translateREST("execute webhook", err)
	}
	return convertMessage(sent), nil
}

func (c *gatewayConn) EditWebhook(ctx context.Context, webhookID string, edit WebhookEdit) (*Webhook, error) {
	options := requestOptions(ctx, edit.Reason)
	var webhook *discordgo.Webhook
	var err error
	if edit.Token != "" {
		webhook, err = c.session.WebhookEditWithToken(webhookID, edit.Token, edit.Name, edit.Avatar, options...)
	} else {
		webhook, err = c.session.WebhookEdit(webhookID, edit.Name, edit.Avatar, edit.ChannelID, options...)
	}
	if err != nil {
		return nil, translateREST("edit webhook", err)
	}
	return convertWebhook(webhook), nil
}

func (c *gatewayConn) DeleteWebhook(ctx context.Context, webhookID, token, reason string) error {
	options := requestOptions(ctx, reason)
	var err error
	if token != "" {
		_, err = c.session.WebhookDeleteWithToken(webhookID, token, options...)
	} else {
		err = c.session.WebhookDelete(webhookID, options...)
	}
	return translateREST("delete webhook", err)
}

func requestOptions(ctx context.Context, reason string) []discordgo.RequestOption {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		options = append(options, discordgo.WithAuditLogReason(reason))
	}
	return options
}
