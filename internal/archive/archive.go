package archive

import "context"

type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

type NoopStore struct{}

func (NoopStore) Put(context.Context, string, string, []byte) error { return nil }

func TranscriptKey(meetingID string) string {
	return meetingID + "/transcript.txt"
}

func SummaryKey(meetingID string) string {
	return meetingID + "/summary.md"
}
