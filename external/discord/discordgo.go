package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/imcaffiene/webinar-platform/internal/discord"
)

// maxMessageLength is the Discord limit on message content.
const maxMessageLength = 2000

type Client struct {
	session *discordgo.Session
}

func NewClient(token string) (discordpkg.Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Client{session: s}, nil
}

func (c *Client) Enabled() bool {
	return c.session != nil
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, truncateContent(content), discordgo.WithContext(ctx))
	if err != nil {
		return classifyRESTError(channelID, err)
	}
	return nil
}

func (c *Client) SendChannelMessageWithFile(ctx context.Context, msg discordpkg.FileMessage) error {
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: truncateContent(msg.Content),
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classifyRESTError(msg.ChannelID, err)
	}
	return nil
}

// ResolveChannelName falls back to the id when the channel cannot be read.
func (c *Client) ResolveChannelName(ctx context.Context, channelID string) string {
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel.Name
		}
	}
	channel, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil || channel == nil || channel.Name == "" {
		slog.Warn("discord channel name could not be resolved; using channel id fallback", "channel_id", channelID)
		return channelID
	}
	return channel.Name
}

func classifyRESTError(channelID string, err error) error {
	if isRESTNotFound(err) {
		return fmt.Errorf("discord channel %s not found: %w", channelID, err)
	}
	return err
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageLength {
		return content
	}
	return string(runes[:maxMessageLength-1]) + "…"
}
