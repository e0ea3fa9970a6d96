package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/meeting"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
)

// Step names key the cached outputs and label the step metrics.
const (
	StepFetch     = "fetch"
	StepParse     = "parse"
	StepEnrich    = "enrich"
	StepSummarize = "summarize"
	StepPersist   = "persist"
)

// maxRewinds bounds how often one run may restart from pending after losing a cached input.
const maxRewinds = 1

var errRewind = errors.New("cached step input missing")

type Deps struct {
	Meetings  repository.MeetingRepository
	Users     repository.UserRepository
	Agents    repository.AgentRepository
	Jobs      repository.PipelineRepository
	Cache     stepcache.Cache
	Source    TranscriptSource
	Completer llm.Completer
	Announcer *Announcer
	Metrics   *metrics.Metrics
	Model     string
	Now       func() time.Time
}

// Runner executes the summarization pipeline for one meeting at a time. Progress is
// checkpointed after every step so a redelivered job resumes where the last one stopped.
type Runner struct {
	meetings  repository.MeetingRepository
	users     repository.UserRepository
	agents    repository.AgentRepository
	jobs      repository.PipelineRepository
	cache     stepcache.Cache
	source    TranscriptSource
	completer llm.Completer
	announcer *Announcer
	metrics   *metrics.Metrics
	model     string
	now       func() time.Time
}

func NewRunner(d Deps) *Runner {
	r := &Runner{
		meetings:  d.Meetings,
		users:     d.Users,
		agents:    d.Agents,
		jobs:      d.Jobs,
		cache:     d.Cache,
		source:    d.Source,
		completer: d.Completer,
		announcer: d.Announcer,
		metrics:   d.Metrics,
		model:     d.Model,
		now:       d.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

type stepResult struct {
	next     repository.PipelineStage
	announce *Announcement
}

// Handle is the jobs.Handler for meetings/processing. A returned error asks the
// queue to retry unless it is permanent or the attempt was the last one.
func (r *Runner) Handle(ctx context.Context, req jobs.ProcessingRequest, attempt jobs.Attempt) error {
	if err := req.Validate(); err != nil {
		r.metrics.ObserveJob("invalid")
		return jobs.Permanent(err)
	}
	slog.Info("pipeline job started", "meeting_id", req.MeetingID, "attempt", attempt.Number)

	m, err := r.meetings.GetMeeting(ctx, req.MeetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = jobs.Permanent(fmt.Errorf("meeting %s not found", req.MeetingID))
		}
		return r.fail(ctx, req, attempt, err)
	}
	if m.Status == meeting.StatusCanceled {
		return r.fail(ctx, req, attempt, jobs.Permanent(fmt.Errorf("meeting %s was canceled", req.MeetingID)))
	}

	job, err := r.jobs.LoadOrCreateJob(ctx, req.MeetingID, req.TranscriptURL)
	if err != nil {
		return r.fail(ctx, req, attempt, fmt.Errorf("load pipeline job: %w", err))
	}
	if job.Stage == repository.StageCompleted {
		slog.Info("pipeline job already completed", "meeting_id", req.MeetingID)
		r.metrics.ObserveJob("skipped")
		return nil
	}

	if err := r.run(ctx, job); err != nil {
		return r.fail(ctx, req, attempt, err)
	}
	r.metrics.ObserveJob("completed")
	slog.Info("pipeline job completed", "meeting_id", req.MeetingID, "attempt", attempt.Number)
	return nil
}

// MarkFailed records a terminal failure on the job record. The meeting keeps its status.
func (r *Runner) MarkFailed(ctx context.Context, meetingID string, cause error) error {
	if err := r.jobs.RecordJobFailure(ctx, meetingID, cause, true); err != nil {
		return fmt.Errorf("record terminal failure: %w", err)
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, req jobs.ProcessingRequest, attempt jobs.Attempt, cause error) error {
	ctx = context.WithoutCancel(ctx)
	terminal := attempt.Final || jobs.IsPermanent(cause)
	if terminal {
		if err := r.MarkFailed(ctx, req.MeetingID, cause); err != nil {
			slog.Error("failed to mark pipeline job failed", "error", err, "meeting_id", req.MeetingID)
		}
		r.metrics.ObserveJob("failed")
		slog.Error("pipeline job failed", "error", cause, "meeting_id", req.MeetingID, "attempt", attempt.Number)
		return cause
	}
	if err := r.jobs.RecordJobFailure(ctx, req.MeetingID, cause, false); err != nil {
		slog.Error("failed to record pipeline failure", "error", err, "meeting_id", req.MeetingID)
	}
	r.metrics.ObserveJob("retry")
	slog.Warn("pipeline job attempt failed; will retry", "error", cause, "meeting_id", req.MeetingID, "attempt", attempt.Number)
	return cause
}

func (r *Runner) run(ctx context.Context, job *repository.PipelineJob) error {
	stage := job.Stage
	rewinds := 0
	for stage != repository.StageCompleted {
		res, err := r.step(ctx, job, stage)
		if errors.Is(err, errRewind) {
			if rewinds >= maxRewinds {
				return fmt.Errorf("stage %s: %w", stage, err)
			}
			rewinds++
			slog.Warn("cached step input missing; restarting from pending", "meeting_id", job.MeetingID, "stage", stage)
			res = stepResult{next: repository.StagePending}
		} else if err != nil {
			return err
		}

		if err := r.jobs.AdvanceJob(ctx, job.MeetingID, res.next); err != nil {
			return fmt.Errorf("advance job to %s: %w", res.next, err)
		}
		stage = res.next

		if res.announce != nil && r.announcer != nil {
			r.announcer.Announce(ctx, *res.announce)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, job *repository.PipelineJob, stage repository.PipelineStage) (stepResult, error) {
	switch stage {
	case repository.StageFetched:
		return r.parseStep(ctx, job)
	case repository.StageParsed:
		return r.enrichStep(ctx, job)
	case repository.StageEnriched:
		return r.summarizeStep(ctx, job)
	case repository.StageSummarized:
		return r.persistStep(ctx, job)
	default:
		return r.fetchStep(ctx, job)
	}
}

func (r *Runner) fetchStep(ctx context.Context, job *repository.PipelineJob) (res stepResult, err error) {
	defer r.observe(StepFetch, time.Now(), &err)

	body, err := r.source.Fetch(ctx, job.TranscriptURL)
	if err != nil {
		return res, err
	}
	if err := r.cache.Put(ctx, job.MeetingID, StepFetch, body); err != nil {
		return res, fmt.Errorf("cache fetched transcript: %w", err)
	}
	return stepResult{next: repository.StageFetched}, nil
}

func (r *Runner) parseStep(ctx context.Context, job *repository.PipelineJob) (res stepResult, err error) {
	defer r.observe(StepParse, time.Now(), &err)

	body, err := r.cache.Get(ctx, job.MeetingID, StepFetch)
	if err != nil {
		return res, cacheErr(err)
	}
	entries, err := ParseTranscript(body)
	if err != nil {
		// the next attempt downloads the artifact again
		if advErr := r.jobs.AdvanceJob(ctx, job.MeetingID, repository.StagePending); advErr != nil {
			slog.Warn("failed to rewind pipeline job", "error", advErr, "meeting_id", job.MeetingID)
		}
		return res, fmt.Errorf("parse transcript: %w", err)
	}
	if err := r.putJSON(ctx, job.MeetingID, StepParse, entries); err != nil {
		return res, err
	}
	return stepResult{next: repository.StageParsed}, nil
}

func (r *Runner) enrichStep(ctx context.Context, job *repository.PipelineJob) (res stepResult, err error) {
	defer r.observe(StepEnrich, time.Now(), &err)

	var entries []TranscriptEntry
	if err := r.getJSON(ctx, job.MeetingID, StepParse, &entries); err != nil {
		return res, err
	}
	enriched, err := Enrich(ctx, r.users, r.agents, entries)
	if err != nil {
		return res, fmt.Errorf("enrich transcript: %w", err)
	}
	if err := r.putJSON(ctx, job.MeetingID, StepEnrich, enriched); err != nil {
		return res, err
	}
	return stepResult{next: repository.StageEnriched}, nil
}

func (r *Runner) summarizeStep(ctx context.Context, job *repository.PipelineJob) (res stepResult, err error) {
	defer r.observe(StepSummarize, time.Now(), &err)

	var enriched []EnrichedEntry
	if err := r.getJSON(ctx, job.MeetingID, StepEnrich, &enriched); err != nil {
		return res, err
	}
	req, err := BuildSummaryRequest(enriched, r.model)
	if err != nil {
		return res, err
	}
	started := time.Now()
	summary, err := r.completer.Complete(ctx, req)
	r.metrics.ObserveLLM("summary", started, err)
	if err != nil {
		return res, fmt.Errorf("summarize transcript: %w", err)
	}
	if err := r.cache.Put(ctx, job.MeetingID, StepSummarize, []byte(summary)); err != nil {
		return res, fmt.Errorf("cache summary: %w", err)
	}
	return stepResult{next: repository.StageSummarized}, nil
}

func (r *Runner) persistStep(ctx context.Context, job *repository.PipelineJob) (res stepResult, err error) {
	defer r.observe(StepPersist, time.Now(), &err)

	summary, err := r.cache.Get(ctx, job.MeetingID, StepSummarize)
	if err != nil {
		return res, cacheErr(err)
	}
	var enriched []EnrichedEntry
	if err := r.getJSON(ctx, job.MeetingID, StepEnrich, &enriched); err != nil {
		return res, err
	}

	err = r.meetings.CompleteMeeting(ctx, repository.CompleteMeetingInput{
		MeetingID: job.MeetingID,
		Summary:   string(summary),
		EndedAt:   r.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return res, jobs.Permanent(fmt.Errorf("meeting %s can no longer be completed", job.MeetingID))
		}
		return res, fmt.Errorf("complete meeting: %w", err)
	}

	m, err := r.meetings.GetMeeting(ctx, job.MeetingID)
	if err != nil {
		// persisted already; announcements are skipped rather than redoing the step
		slog.Warn("failed to reload completed meeting; skipping announcements", "error", err, "meeting_id", job.MeetingID)
		return stepResult{next: repository.StageCompleted}, nil
	}
	return stepResult{
		next:     repository.StageCompleted,
		announce: &Announcement{Meeting: m, Entries: enriched, Summary: string(summary)},
	}, nil
}

func (r *Runner) putJSON(ctx context.Context, meetingID, step string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", step, err)
	}
	if err := r.cache.Put(ctx, meetingID, step, payload); err != nil {
		return fmt.Errorf("cache %s result: %w", step, err)
	}
	return nil
}

func (r *Runner) getJSON(ctx context.Context, meetingID, step string, v any) error {
	payload, err := r.cache.Get(ctx, meetingID, step)
	if err != nil {
		return cacheErr(err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", errRewind, step, err)
	}
	return nil
}

func (r *Runner) observe(step string, started time.Time, err *error) {
	var stepErr error
	if err != nil {
		stepErr = *err
	}
	r.metrics.ObserveStep(step, started, stepErr)
}

func cacheErr(err error) error {
	if errors.Is(err, stepcache.ErrMiss) {
		return errRewind
	}
	return fmt.Errorf("read cached step result: %w", err)
}
