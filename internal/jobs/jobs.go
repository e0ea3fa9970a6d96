package jobs

import (
	"context"
	"fmt"
)

const (
	ProcessingEventName = "meetings/processing"
	ProcessingSubject   = "meetings.processing"
)

type ProcessingRequest struct {
	MeetingID     string `json:"meetingId"`
	TranscriptURL string `json:"transcriptUrl"`
}

// Envelope is the wire form of a dispatched job.
type Envelope struct {
	Name string            `json:"name"`
	Data ProcessingRequest `json:"data"`
}

// DedupeKey identifies a trigger while it is in flight in the inline queue.
func (r ProcessingRequest) DedupeKey() string {
	return r.MeetingID + ":" + r.TranscriptURL
}

func (r ProcessingRequest) Validate() error {
	if r.MeetingID == "" {
		return fmt.Errorf("processing request: meeting id is required")
	}
	if r.TranscriptURL == "" {
		return fmt.Errorf("processing request: transcript url is required")
	}
	return nil
}

// Attempt describes one delivery of a job to a handler. Number starts at 1.
type Attempt struct {
	Number int
	Final  bool
}

type Handler func(ctx context.Context, req ProcessingRequest, attempt Attempt) error

type Dispatcher interface {
	Enqueue(ctx context.Context, req ProcessingRequest) error
}

type Consumer interface {
	Run(ctx context.Context, handler Handler) error
}
