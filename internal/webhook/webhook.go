package webhook

import (
	"context"
	"time"
)

const SummarySchemaVersion = "1"

type Participant struct {
	SpeakerID   string `json:"speaker_id"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

type SummaryWebhookPayload struct {
	SchemaVersion   string        `json:"schema_version"`
	MeetingID       string        `json:"meeting_id"`
	MeetingName     string        `json:"meeting_name"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         time.Time     `json:"ended_at"`
	DurationSeconds int64         `json:"duration_seconds"`
	Participants    []Participant `json:"participants"`
	SegmentCount    int           `json:"segment_count"`
	Summary         string        `json:"summary"`
	TranscriptText  string        `json:"transcript_text"`
}

type Sender interface {
	SendSummary(ctx context.Context, payload SummaryWebhookPayload) error
}
