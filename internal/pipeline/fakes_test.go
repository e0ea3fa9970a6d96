package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
	"github.com/imcaffiene/webinar-platform/internal/webhook"
)

type mockStore struct {
	mu          sync.Mutex
	meetings    map[string]*meeting.Meeting
	users       map[string]meeting.User
	agents      map[string]meeting.Agent
	jobs        map[string]*repository.PipelineJob
	userQueries int
	agentCalls  int
	failures    []recordedFailure
}

type recordedFailure struct {
	cause    string
	terminal bool
}

func newMockStore() *mockStore {
	return &mockStore{
		meetings: make(map[string]*meeting.Meeting),
		users:    make(map[string]meeting.User),
		agents:   make(map[string]meeting.Agent),
		jobs:     make(map[string]*repository.PipelineJob),
	}
}

func (s *mockStore) putMeeting(m meeting.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = &m
}

func (s *mockStore) meeting(id string) meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.meetings[id]
}

func (s *mockStore) putJob(job repository.PipelineJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.MeetingID] = &job
}

func (s *mockStore) job(meetingID string) repository.PipelineJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[meetingID]
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

func (s *mockStore) GetMeetingForUser(context.Context, string, string) (*meeting.Meeting, error) {
	return nil, errors.New("not used by the pipeline")
}

func (s *mockStore) GetStartableMeeting(context.Context, string) (*meeting.Meeting, error) {
	return nil, errors.New("not used by the pipeline")
}

func (s *mockStore) GetMeetingWithStatus(context.Context, string, meeting.Status) (*meeting.Meeting, error) {
	return nil, errors.New("not used by the pipeline")
}

func (s *mockStore) ActivateMeeting(context.Context, string, time.Time) error {
	return errors.New("not used by the pipeline")
}

func (s *mockStore) EndActiveMeeting(context.Context, string, time.Time) error {
	return errors.New("not used by the pipeline")
}

func (s *mockStore) SetTranscriptURL(context.Context, string, string) (*meeting.Meeting, error) {
	return nil, errors.New("not used by the pipeline")
}

func (s *mockStore) SetRecordingURL(context.Context, string, string) error {
	return errors.New("not used by the pipeline")
}

func (s *mockStore) CompleteMeeting(_ context.Context, input repository.CompleteMeetingInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[input.MeetingID]
	if !ok {
		return repository.ErrNotFound
	}
	switch m.Status {
	case meeting.StatusActive, meeting.StatusProcessing, meeting.StatusCompleted:
	default:
		return repository.ErrNotFound
	}
	m.Status = meeting.StatusCompleted
	m.Summary = input.Summary
	if m.EndedAt == nil {
		endedAt := input.EndedAt
		m.EndedAt = &endedAt
	}
	return nil
}

func (s *mockStore) GetAgent(_ context.Context, id string) (*meeting.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *mockStore) ListAgentsByIDs(_ context.Context, ids []string) ([]meeting.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentCalls++
	var out []meeting.Agent
	for _, id := range ids {
		if a, ok := s.agents[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *mockStore) ListUsersByIDs(_ context.Context, ids []string) ([]meeting.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userQueries++
	var out []meeting.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *mockStore) LoadOrCreateJob(_ context.Context, meetingID, transcriptURL string) (*repository.PipelineJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[meetingID]
	switch {
	case !ok:
		job = &repository.PipelineJob{ID: "job-" + meetingID, MeetingID: meetingID, TranscriptURL: transcriptURL, Stage: repository.StagePending, Attempts: 1}
		s.jobs[meetingID] = job
	case job.TranscriptURL != transcriptURL || job.Stage == repository.StageFailed:
		if job.TranscriptURL != transcriptURL {
			job.LastError = ""
		}
		job.TranscriptURL = transcriptURL
		job.Stage = repository.StagePending
		job.Attempts = 1
	default:
		job.Attempts++
	}
	cp := *job
	return &cp, nil
}

func (s *mockStore) AdvanceJob(_ context.Context, meetingID string, stage repository.PipelineStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[meetingID]
	if !ok {
		return repository.ErrNotFound
	}
	job.Stage = stage
	return nil
}

func (s *mockStore) RecordJobFailure(_ context.Context, meetingID string, cause error, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, recordedFailure{cause: cause.Error(), terminal: terminal})
	job, ok := s.jobs[meetingID]
	if !ok {
		return nil
	}
	job.LastError = cause.Error()
	if terminal {
		job.Stage = repository.StageFailed
	}
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	puts    []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Put(_ context.Context, meetingID, step string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[meetingID+"/"+step] = append([]byte(nil), payload...)
	c.puts = append(c.puts, step)
	return nil
}

func (c *memCache) Get(_ context.Context, meetingID, step string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[meetingID+"/"+step]
	if !ok {
		return nil, stepcache.ErrMiss
	}
	return payload, nil
}

type fakeSource struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
}

func (f *fakeSource) Fetch(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeSender struct {
	mu       sync.Mutex
	payloads []webhook.SummaryWebhookPayload
	err      error
}

func (f *fakeSender) SendSummary(_ context.Context, payload webhook.SummaryWebhookPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeArchive) Put(_ context.Context, key, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}
