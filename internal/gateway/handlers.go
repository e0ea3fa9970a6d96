package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/platform"
	"github.com/imcaffiene/webinar-platform/internal/repository"
)

// handleSessionStarted tolerates any prior state that is not already in flight or terminal.
// The activation is a compare-and-swap, so a duplicate delivery that loses the race is NotFound.
func (g *Gateway) handleSessionStarted(ctx context.Context, logger *slog.Logger, e SessionStarted) *Error {
	m, err := g.meetings.GetStartableMeeting(ctx, e.MeetingID)
	if err != nil {
		return storeError(err, "meeting not found or already active/completed")
	}
	agent, err := g.agents.GetAgent(ctx, m.AgentID)
	if err != nil {
		return storeError(err, "agent not found")
	}
	if err := g.meetings.ActivateMeeting(ctx, m.ID, g.now()); err != nil {
		return storeError(err, "meeting not found or already active/completed")
	}
	logger.Info("meeting activated", "agent_id", agent.ID)

	if err := g.calls.ConnectAgent(ctx, platform.DefaultCallType, m.ID, agent.ID, agent.Instructions); err != nil {
		// A platform retry cannot recover this: the meeting is no longer startable.
		logger.Error("agent connect failed; meeting stays active without an agent",
			"agent_id", agent.ID, "status", meeting.StatusActive, "error", err)
		return internal("failed to connect agent; meeting stays active without an agent", err)
	}
	return nil
}

func (g *Gateway) handleParticipantLeft(ctx context.Context, logger *slog.Logger, e ParticipantLeft) *Error {
	if err := g.calls.EndCall(ctx, e.CallType, e.MeetingID); err != nil {
		return internal("failed to end call", err)
	}
	logger.Info("call ended after participant left", "call_type", e.CallType)
	return nil
}

func (g *Gateway) handleSessionEnded(ctx context.Context, logger *slog.Logger, e SessionEnded) *Error {
	if err := g.meetings.EndActiveMeeting(ctx, e.MeetingID, g.now()); err != nil {
		return storeError(err, "active meeting not found")
	}
	logger.Info("meeting moved to processing")
	return nil
}

func (g *Gateway) handleTranscriptionReady(ctx context.Context, logger *slog.Logger, e TranscriptionReady) *Error {
	m, err := g.meetings.SetTranscriptURL(ctx, e.MeetingID, e.TranscriptURL)
	if err != nil {
		return storeError(err, "meeting not found")
	}
	req := jobs.ProcessingRequest{MeetingID: m.ID, TranscriptURL: m.TranscriptURL}
	if err := g.dispatcher.Enqueue(ctx, req); err != nil {
		return internal("failed to enqueue processing job", err)
	}
	logger.Info("processing job enqueued", "event", jobs.ProcessingEventName)
	return nil
}

func (g *Gateway) handleRecordingReady(ctx context.Context, logger *slog.Logger, e RecordingReady) *Error {
	if err := g.meetings.SetRecordingURL(ctx, e.MeetingID, e.RecordingURL); err != nil {
		return storeError(err, "meeting not found")
	}
	logger.Info("recording url stored")
	return nil
}

func (g *Gateway) handleMessageNew(ctx context.Context, logger *slog.Logger, e MessageNew) *Error {
	m, err := g.meetings.GetMeetingWithStatus(ctx, e.ChannelID, meeting.StatusCompleted)
	if err != nil {
		return storeError(err, "meeting not found or not completed")
	}
	agent, err := g.agents.GetAgent(ctx, m.AgentID)
	if err != nil {
		return storeError(err, "agent not found")
	}
	if e.UserID == agent.ID {
		logger.Debug("ignoring message sent by the agent")
		return nil
	}

	// One extra slot: the platform has usually stored the triggering message already.
	history, err := g.chat.RecentMessages(ctx, platform.MessagingChannel, e.ChannelID, platform.RecentMessageLimit+1)
	if err != nil {
		return internal("failed to load chat history", err)
	}

	req := buildChatRequest(m, agent, history, e, g.chatModel)
	reply, err := g.complete(ctx, req)
	if err != nil {
		return internal("failed to generate reply", err)
	}

	persona := platform.ChatUser{ID: agent.ID, Name: agent.Name, Image: meeting.AvatarURL(agent.Name)}
	if err := g.chat.UpsertUser(ctx, persona); err != nil {
		return internal("failed to register agent persona", err)
	}
	if err := g.chat.SendMessage(ctx, platform.MessagingChannel, e.ChannelID, reply, persona); err != nil {
		return internal("failed to send reply", err)
	}
	logger.Info("agent replied in meeting chat", "agent_id", agent.ID, "history", len(req.Messages)-1)
	return nil
}

func storeError(err error, notFoundMessage string) *Error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(notFoundMessage)
	}
	return internal("store error", err)
}
