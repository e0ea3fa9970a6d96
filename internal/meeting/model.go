package meeting

import (
	"net/url"
	"time"
)

type Status string

const (
	StatusUpcoming   Status = "upcoming"
	StatusActive     Status = "active"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusProcessing, StatusCompleted, StatusCanceled:
		return true
	default:
		return false
	}
}

// CanStart reports whether a session_started event may move the meeting to active.
// Any state that is not already in flight or terminal qualifies.
func (s Status) CanStart() bool {
	switch s {
	case StatusCompleted, StatusActive, StatusProcessing, StatusCanceled:
		return false
	default:
		return true
	}
}

// HasEnded reports whether ended_at must be set for a meeting in this state.
func (s Status) HasEnded() bool {
	return s == StatusProcessing || s == StatusCompleted
}

// NonStartableStatuses is the set excluded by CanStart, in storage form.
func NonStartableStatuses() []string {
	return []string{
		string(StatusCompleted),
		string(StatusActive),
		string(StatusProcessing),
		string(StatusCanceled),
	}
}

type Meeting struct {
	ID            string
	Name          string
	UserID        string
	AgentID       string
	Status        Status
	StartedAt     *time.Time
	EndedAt       *time.Time
	TranscriptURL string
	RecordingURL  string
	Summary       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Duration is the wall time between start and end, or zero while either is unset.
func (m *Meeting) Duration() time.Duration {
	if m.StartedAt == nil || m.EndedAt == nil {
		return 0
	}
	d := m.EndedAt.Sub(*m.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

type Agent struct {
	ID           string
	Name         string
	UserID       string
	Instructions string
}

type User struct {
	ID    string
	Name  string
	Email string
}

const avatarBaseURL = "https://api.dicebear.com/9.x/bottts-neutral/svg"

// AvatarURL returns the generated bot avatar used for an agent persona.
func AvatarURL(seed string) string {
	q := url.Values{}
	q.Set("seed", seed)
	return avatarBaseURL + "?" + q.Encode()
}
