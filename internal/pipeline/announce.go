package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/archive"
	"github.com/imcaffiene/webinar-platform/internal/discord"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/webhook"
)

const (
	announceChannelWebhook = "webhook"
	announceChannelDiscord = "discord"
	announceChannelArchive = "archive"
)

type Announcement struct {
	Meeting *meeting.Meeting
	Entries []EnrichedEntry
	Summary string
}

// Announcer fans a completed summary out to the configured sinks.
// Every sink is best-effort; failures are logged and counted only.
type Announcer struct {
	webhook          webhook.Sender
	discord          discord.Client
	discordChannelID string
	archive          archive.Store
	metrics          *metrics.Metrics
	timezone         string
	loc              *time.Location
}

type AnnouncerDeps struct {
	Webhook          webhook.Sender
	Discord          discord.Client
	DiscordChannelID string
	Archive          archive.Store
	Metrics          *metrics.Metrics
	Timezone         string
	Location         *time.Location
}

func NewAnnouncer(d AnnouncerDeps) *Announcer {
	a := &Announcer{
		webhook:          d.Webhook,
		discord:          d.Discord,
		discordChannelID: d.DiscordChannelID,
		archive:          d.Archive,
		metrics:          d.Metrics,
		timezone:         d.Timezone,
		loc:              safeLocation(d.Location),
	}
	if a.discord == nil {
		a.discord = discord.NoopClient{}
	}
	if a.archive == nil {
		a.archive = archive.NoopStore{}
	}
	if a.timezone == "" {
		a.timezone = a.loc.String()
	}
	return a
}

func (a *Announcer) Announce(ctx context.Context, an Announcement) {
	m := an.Meeting
	transcript := buildTranscriptText(m, an.Entries, a.timezone, a.loc)

	if a.webhook != nil {
		payload := buildSummaryWebhookPayload(m, an.Entries, an.Summary, transcript, a.loc)
		err := a.webhook.SendSummary(ctx, payload)
		a.metrics.ObserveAnnouncement(announceChannelWebhook, err)
		if err != nil {
			slog.Error("failed to send summary webhook", "error", err, "meeting_id", m.ID)
		}
	}

	if a.discord.Enabled() && a.discordChannelID != "" {
		err := a.postToDiscord(ctx, m, an, transcript)
		a.metrics.ObserveAnnouncement(announceChannelDiscord, err)
		if err != nil {
			slog.Error("failed to post summary to discord", "error", err, "meeting_id", m.ID,
				"channel", a.discord.ResolveChannelName(ctx, a.discordChannelID))
		}
	}

	if err := a.archiveArtifacts(ctx, m.ID, transcript, an.Summary); err != nil {
		slog.Error("failed to archive meeting artifacts", "error", err, "meeting_id", m.ID)
	}
}

// postToDiscord attaches the transcript when there is one; a meeting with no entries gets the summary alone.
func (a *Announcer) postToDiscord(ctx context.Context, m *meeting.Meeting, an Announcement, transcript []byte) error {
	content := discordAnnouncement(m, an.Summary)
	if len(an.Entries) == 0 {
		return a.discord.SendChannelMessage(ctx, a.discordChannelID, content)
	}
	return a.discord.SendChannelMessageWithFile(ctx, discord.FileMessage{
		ChannelID: a.discordChannelID,
		Content:   content,
		Filename:  fmt.Sprintf("transcript-%s.txt", m.ID),
		FileBody:  transcript,
	})
}

func (a *Announcer) archiveArtifacts(ctx context.Context, meetingID string, transcript []byte, summary string) error {
	if _, noop := a.archive.(archive.NoopStore); noop {
		return nil
	}
	err := a.archive.Put(ctx, archive.TranscriptKey(meetingID), "text/plain; charset=utf-8", transcript)
	if err == nil {
		err = a.archive.Put(ctx, archive.SummaryKey(meetingID), "text/markdown; charset=utf-8", []byte(summary))
	}
	a.metrics.ObserveAnnouncement(announceChannelArchive, err)
	return err
}

func discordAnnouncement(m *meeting.Meeting, summary string) string {
	return fmt.Sprintf("**%s** summary is ready\n\n%s", m.Name, summary)
}
