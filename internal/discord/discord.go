package discord

import "context"

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client posts summary announcements to a text channel. Only the REST API is used.
type Client interface {
	SendChannelMessage(ctx context.Context, channelID, content string) error
	SendChannelMessageWithFile(ctx context.Context, msg FileMessage) error
	ResolveChannelName(ctx context.Context, channelID string) string
	Enabled() bool
}

type NoopClient struct{}

func (NoopClient) SendChannelMessage(context.Context, string, string) error      { return nil }
func (NoopClient) SendChannelMessageWithFile(context.Context, FileMessage) error { return nil }
func (NoopClient) ResolveChannelName(_ context.Context, channelID string) string { return channelID }
func (NoopClient) Enabled() bool                                                 { return false }
