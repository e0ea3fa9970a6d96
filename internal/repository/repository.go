package repository

import (
	"context"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/meeting"
)

type CompleteMeetingInput struct {
	MeetingID string
	Summary   string
	EndedAt   time.Time
}

type MeetingRepository interface {
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	GetMeetingForUser(ctx context.Context, id, userID string) (*meeting.Meeting, error)
	GetStartableMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	GetMeetingWithStatus(ctx context.Context, id string, status meeting.Status) (*meeting.Meeting, error)
	ActivateMeeting(ctx context.Context, id string, startedAt time.Time) error
	EndActiveMeeting(ctx context.Context, id string, endedAt time.Time) error
	SetTranscriptURL(ctx context.Context, id, transcriptURL string) (*meeting.Meeting, error)
	SetRecordingURL(ctx context.Context, id, recordingURL string) error
	CompleteMeeting(ctx context.Context, input CompleteMeetingInput) error
}

type AgentRepository interface {
	GetAgent(ctx context.Context, id string) (*meeting.Agent, error)
	ListAgentsByIDs(ctx context.Context, ids []string) ([]meeting.Agent, error)
}

type UserRepository interface {
	ListUsersByIDs(ctx context.Context, ids []string) ([]meeting.User, error)
}

type PipelineRepository interface {
	LoadOrCreateJob(ctx context.Context, meetingID, transcriptURL string) (*PipelineJob, error)
	AdvanceJob(ctx context.Context, meetingID string, stage PipelineStage) error
	RecordJobFailure(ctx context.Context, meetingID string, cause error, terminal bool) error
}

type StepResultRepository interface {
	SaveStepResult(ctx context.Context, meetingID, step string, payload []byte) error
	LoadStepResult(ctx context.Context, meetingID, step string) ([]byte, error)
}

type Repository interface {
	MeetingRepository
	AgentRepository
	UserRepository
	PipelineRepository
	StepResultRepository
}
