package repository

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

type PipelineStage string

const (
	StagePending    PipelineStage = "pending"
	StageFetched    PipelineStage = "fetched"
	StageParsed     PipelineStage = "parsed"
	StageEnriched   PipelineStage = "enriched"
	StageSummarized PipelineStage = "summarized"
	StageCompleted  PipelineStage = "completed"
	StageFailed     PipelineStage = "failed"
)

type PipelineJob struct {
	ID            string
	MeetingID     string
	TranscriptURL string
	Stage         PipelineStage
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
