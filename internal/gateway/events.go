package gateway

import (
	"encoding/json"
	"strings"

	"github.com/imcaffiene/webinar-platform/internal/platform"
)

const (
	TypeSessionStarted     = "call.session_started"
	TypeParticipantLeft    = "call.session_participant_left"
	TypeSessionEnded       = "call.session_ended"
	TypeTranscriptionReady = "call.transcription_ready"
	TypeRecordingReady     = "call.recording_ready"
	TypeMessageNew         = "message.new"
)

// Event is one of the closed set of inbound platform events.
type Event interface {
	Type() string
	isEvent()
}

type SessionStarted struct {
	MeetingID string
}

type ParticipantLeft struct {
	CallType  string
	MeetingID string
}

type SessionEnded struct {
	MeetingID string
}

type TranscriptionReady struct {
	MeetingID     string
	TranscriptURL string
}

type RecordingReady struct {
	MeetingID    string
	RecordingURL string
}

type MessageNew struct {
	MessageID string
	UserID    string
	ChannelID string
	Text      string
}

// Unknown is any event type this service does not act on.
type Unknown struct {
	RawType string
}

func (SessionStarted) Type() string     { return TypeSessionStarted }
func (ParticipantLeft) Type() string    { return TypeParticipantLeft }
func (SessionEnded) Type() string       { return TypeSessionEnded }
func (TranscriptionReady) Type() string { return TypeTranscriptionReady }
func (RecordingReady) Type() string     { return TypeRecordingReady }
func (MessageNew) Type() string         { return TypeMessageNew }
func (u Unknown) Type() string          { return u.RawType }

func (SessionStarted) isEvent()     {}
func (ParticipantLeft) isEvent()    {}
func (SessionEnded) isEvent()       {}
func (TranscriptionReady) isEvent() {}
func (RecordingReady) isEvent()     {}
func (MessageNew) isEvent()         {}
func (Unknown) isEvent()            {}

type rawEvent struct {
	Type    string `json:"type"`
	CallCID string `json:"call_cid"`
	Call    *struct {
		Custom struct {
			MeetingID string `json:"meetingId"`
		} `json:"custom"`
	} `json:"call"`
	CallTranscription *struct {
		URL string `json:"url"`
	} `json:"call_transcription"`
	CallRecording *struct {
		URL string `json:"url"`
	} `json:"call_recording"`
	User *struct {
		ID string `json:"id"`
	} `json:"user"`
	ChannelID string `json:"channel_id"`
	Message   *struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"message"`
}

// ParseEvent decodes a verified body into its typed event. Unknown types are not an error.
func ParseEvent(body []byte) (Event, *Error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, badRequest("invalid JSON payload")
	}

	switch raw.Type {
	case TypeSessionStarted:
		id := raw.customMeetingID()
		if id == "" {
			return nil, badRequest("missing meetingId")
		}
		return SessionStarted{MeetingID: id}, nil
	case TypeParticipantLeft:
		callType, id := splitCallCID(raw.CallCID)
		if id == "" {
			return nil, badRequest("missing meetingId from event")
		}
		return ParticipantLeft{CallType: callType, MeetingID: id}, nil
	case TypeSessionEnded:
		id := raw.customMeetingID()
		if id == "" {
			return nil, badRequest("missing meetingId from event")
		}
		return SessionEnded{MeetingID: id}, nil
	case TypeTranscriptionReady:
		_, id := splitCallCID(raw.CallCID)
		if id == "" {
			return nil, badRequest("missing meetingId from event")
		}
		if raw.CallTranscription == nil || raw.CallTranscription.URL == "" {
			return nil, badRequest("missing transcription url")
		}
		return TranscriptionReady{MeetingID: id, TranscriptURL: raw.CallTranscription.URL}, nil
	case TypeRecordingReady:
		_, id := splitCallCID(raw.CallCID)
		if id == "" {
			return nil, badRequest("missing meetingId from event")
		}
		if raw.CallRecording == nil || raw.CallRecording.URL == "" {
			return nil, badRequest("missing recording url")
		}
		return RecordingReady{MeetingID: id, RecordingURL: raw.CallRecording.URL}, nil
	case TypeMessageNew:
		ev := MessageNew{ChannelID: raw.ChannelID}
		if raw.User != nil {
			ev.UserID = raw.User.ID
		}
		if raw.Message != nil {
			ev.MessageID = raw.Message.ID
			ev.Text = raw.Message.Text
		}
		if ev.UserID == "" || ev.ChannelID == "" || ev.Text == "" {
			return nil, badRequest("missing userId, channelId, or text in message")
		}
		return ev, nil
	default:
		return Unknown{RawType: raw.Type}, nil
	}
}

func (r *rawEvent) customMeetingID() string {
	if r.Call == nil {
		return ""
	}
	return r.Call.Custom.MeetingID
}

// splitCallCID splits "<type>:<id>". A cid without a type yields an empty id.
func splitCallCID(cid string) (callType, id string) {
	callType, id, ok := strings.Cut(cid, ":")
	if !ok {
		return "", ""
	}
	if callType == "" {
		callType = platform.DefaultCallType
	}
	return callType, id
}
