package gateway

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/platform"
	"github.com/imcaffiene/webinar-platform/internal/repository"
)

// Delivery is one inbound webhook request. Body must be the exact bytes received.
type Delivery struct {
	Body      []byte
	Signature string
	APIKey    string
}

type Result struct {
	RequestID string
	EventType string
	Err       *Error
}

func (r Result) OK() bool { return r.Err == nil }

type Deps struct {
	Verifier   platform.Verifier
	APIKey     string
	Meetings   repository.MeetingRepository
	Agents     repository.AgentRepository
	Calls      platform.CallController
	Chat       platform.ChatChannel
	Completer  llm.Completer
	Dispatcher jobs.Dispatcher
	Metrics    *metrics.Metrics
	ChatModel  string
	Now        func() time.Time
}

type Gateway struct {
	verifier   platform.Verifier
	apiKey     string
	meetings   repository.MeetingRepository
	agents     repository.AgentRepository
	calls      platform.CallController
	chat       platform.ChatChannel
	completer  llm.Completer
	dispatcher jobs.Dispatcher
	metrics    *metrics.Metrics
	chatModel  string
	now        func() time.Time
}

func New(d Deps) *Gateway {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		verifier:   d.Verifier,
		apiKey:     d.APIKey,
		meetings:   d.Meetings,
		agents:     d.Agents,
		calls:      d.Calls,
		chat:       d.Chat,
		completer:  d.Completer,
		dispatcher: d.Dispatcher,
		metrics:    d.Metrics,
		chatModel:  d.ChatModel,
		now:        now,
	}
}

// Handle authenticates, classifies and applies one delivery. It never panics.
func (g *Gateway) Handle(ctx context.Context, d Delivery) (res Result) {
	res.RequestID = uuid.NewString()
	logger := slog.With("request_id", res.RequestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("webhook handler panicked", "panic", r, "event_type", res.EventType)
			res.Err = internal("internal error", fmt.Errorf("panic: %v", r))
		}
		g.metrics.ObserveWebhook(eventLabel(res.EventType), outcomeLabel(res.Err))
	}()

	if d.Signature == "" || d.APIKey == "" {
		res.Err = badRequest("missing signature or API key")
		logger.Warn("webhook rejected", "reason", res.Err.Message)
		return res
	}
	if !g.verifier.Verify(d.Body, d.Signature) {
		res.Err = unauthorized("invalid signature")
		logger.Warn("webhook rejected", "reason", res.Err.Message)
		return res
	}
	if g.apiKey != "" && subtle.ConstantTimeCompare([]byte(d.APIKey), []byte(g.apiKey)) != 1 {
		res.Err = unauthorized("invalid API key")
		logger.Warn("webhook rejected", "reason", res.Err.Message)
		return res
	}

	ev, perr := ParseEvent(d.Body)
	if perr != nil {
		res.Err = perr
		logger.Warn("webhook payload rejected", "reason", perr.Message)
		return res
	}
	res.EventType = ev.Type()
	logger = logger.With("event_type", res.EventType)

	res.Err = g.dispatch(ctx, logger, ev)
	switch {
	case res.Err == nil:
		logger.Debug("webhook handled")
	case res.Err.Kind == KindInternal:
		logger.Error("webhook handler failed", "error", res.Err)
	default:
		logger.Info("webhook not applied", "reason", res.Err.Message)
	}
	return res
}

func (g *Gateway) dispatch(ctx context.Context, logger *slog.Logger, ev Event) *Error {
	switch e := ev.(type) {
	case SessionStarted:
		return g.handleSessionStarted(ctx, logger.With("meeting_id", e.MeetingID), e)
	case ParticipantLeft:
		return g.handleParticipantLeft(ctx, logger.With("meeting_id", e.MeetingID), e)
	case SessionEnded:
		return g.handleSessionEnded(ctx, logger.With("meeting_id", e.MeetingID), e)
	case TranscriptionReady:
		return g.handleTranscriptionReady(ctx, logger.With("meeting_id", e.MeetingID), e)
	case RecordingReady:
		return g.handleRecordingReady(ctx, logger.With("meeting_id", e.MeetingID), e)
	case MessageNew:
		return g.handleMessageNew(ctx, logger.With("meeting_id", e.ChannelID), e)
	case Unknown:
		logger.Debug("ignoring unhandled event type")
		return nil
	default:
		return nil
	}
}

func eventLabel(t string) string {
	switch t {
	case TypeSessionStarted, TypeParticipantLeft, TypeSessionEnded,
		TypeTranscriptionReady, TypeRecordingReady, TypeMessageNew:
		return t
	case "":
		return "none"
	default:
		return "other"
	}
}

func outcomeLabel(err *Error) string {
	if err == nil {
		return "ok"
	}
	return err.Kind.String()
}
