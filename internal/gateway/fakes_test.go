package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/platform"
	"github.com/imcaffiene/webinar-platform/internal/repository"
)

type mockStore struct {
	mu       sync.Mutex
	meetings map[string]*meeting.Meeting
	agents   map[string]*meeting.Agent
	writes   int
}

func newMockStore() *mockStore {
	return &mockStore{
		meetings: make(map[string]*meeting.Meeting),
		agents:   make(map[string]*meeting.Agent),
	}
}

func (s *mockStore) put(m meeting.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = &m
}

func (s *mockStore) get(id string) meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.meetings[id]
}

func (s *mockStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *mockStore) GetMeeting(_ context.Context, id string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *mockStore) GetMeetingForUser(ctx context.Context, id, userID string) (*meeting.Meeting, error) {
	m, err := s.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (s *mockStore) GetStartableMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	m, err := s.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanStart() {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (s *mockStore) GetMeetingWithStatus(ctx context.Context, id string, status meeting.Status) (*meeting.Meeting, error) {
	m, err := s.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != status {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (s *mockStore) ActivateMeeting(_ context.Context, id string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || !m.Status.CanStart() {
		return repository.ErrNotFound
	}
	m.Status = meeting.StatusActive
	m.StartedAt = &startedAt
	s.writes++
	return nil
}

func (s *mockStore) EndActiveMeeting(_ context.Context, id string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.Status != meeting.StatusActive {
		return repository.ErrNotFound
	}
	m.Status = meeting.StatusProcessing
	m.EndedAt = &endedAt
	s.writes++
	return nil
}

func (s *mockStore) SetTranscriptURL(_ context.Context, id, transcriptURL string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.TranscriptURL = transcriptURL
	s.writes++
	cp := *m
	return &cp, nil
}

func (s *mockStore) SetRecordingURL(_ context.Context, id, recordingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.RecordingURL = recordingURL
	s.writes++
	return nil
}

func (s *mockStore) CompleteMeeting(_ context.Context, input repository.CompleteMeetingInput) error {
	return errors.New("not used by the gateway")
}

func (s *mockStore) GetAgent(_ context.Context, id string) (*meeting.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *mockStore) ListAgentsByIDs(_ context.Context, _ []string) ([]meeting.Agent, error) {
	return nil, nil
}

type mockVerifier struct {
	valid string
}

func (v *mockVerifier) Verify(_ []byte, signature string) bool {
	return signature == v.valid
}

type connectCall struct {
	callType     string
	callID       string
	agentID      string
	instructions string
}

type mockCalls struct {
	connects   []connectCall
	ended      []string
	connectErr error
}

func (c *mockCalls) EndCall(_ context.Context, callType, callID string) error {
	c.ended = append(c.ended, callType+":"+callID)
	return nil
}

func (c *mockCalls) ConnectAgent(_ context.Context, callType, callID, agentID, instructions string) error {
	c.connects = append(c.connects, connectCall{callType, callID, agentID, instructions})
	return c.connectErr
}

type sentMessage struct {
	channelID string
	text      string
	as        platform.ChatUser
}

type mockChat struct {
	history  []platform.ChatMessage
	limits   []int
	upserted []platform.ChatUser
	sent     []sentMessage
}

func (c *mockChat) RecentMessages(_ context.Context, _, _ string, limit int) ([]platform.ChatMessage, error) {
	c.limits = append(c.limits, limit)
	history := c.history
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (c *mockChat) UpsertUser(_ context.Context, user platform.ChatUser) error {
	c.upserted = append(c.upserted, user)
	return nil
}

func (c *mockChat) SendMessage(_ context.Context, _, channelID, text string, as platform.ChatUser) error {
	c.sent = append(c.sent, sentMessage{channelID: channelID, text: text, as: as})
	return nil
}

type mockCompleter struct {
	reply    string
	err      error
	requests []llm.Request
}

func (c *mockCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.requests = append(c.requests, req)
	return c.reply, c.err
}

type mockDispatcher struct {
	enqueued []jobs.ProcessingRequest
	err      error
}

func (d *mockDispatcher) Enqueue(_ context.Context, req jobs.ProcessingRequest) error {
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, req)
	return nil
}
