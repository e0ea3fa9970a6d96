package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
)

const inlineQueueSize = 64

// ErrQueueFull is returned instead of blocking the caller when the inline buffer has no room.
var ErrQueueFull = errors.New("inline processing queue is full")

type inlineTask struct {
	req     jobs.ProcessingRequest
	attempt int
}

// InlineQueue runs jobs in-process when no broker is configured. Pending work is lost on exit;
// the pipeline's checkpoints let the next trigger resume it.
type InlineQueue struct {
	policy jobs.RetryPolicy
	tasks  chan inlineTask

	mu       sync.Mutex
	inFlight map[string]struct{}
	timers   map[string]*time.Timer
}

func NewInlineQueue(policy jobs.RetryPolicy) *InlineQueue {
	return &InlineQueue{
		policy:   policy,
		tasks:    make(chan inlineTask, inlineQueueSize),
		inFlight: make(map[string]struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

func (q *InlineQueue) Enqueue(ctx context.Context, req jobs.ProcessingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	key := req.DedupeKey()
	q.mu.Lock()
	if _, ok := q.inFlight[key]; ok {
		q.mu.Unlock()
		slog.Info("processing job already queued", "meeting_id", req.MeetingID)
		return nil
	}
	q.inFlight[key] = struct{}{}
	q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		q.release(key)
		return fmt.Errorf("enqueue processing job: %w", err)
	}
	select {
	case q.tasks <- inlineTask{req: req, attempt: 1}:
		return nil
	default:
		q.release(key)
		return fmt.Errorf("enqueue processing job %s: %w", req.MeetingID, ErrQueueFull)
	}
}

// Run processes one job at a time until ctx is canceled.
func (q *InlineQueue) Run(ctx context.Context, handler jobs.Handler) error {
	defer q.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-q.tasks:
			q.handle(ctx, task, handler)
		}
	}
}

func (q *InlineQueue) handle(ctx context.Context, task inlineTask, handler jobs.Handler) {
	key := task.req.DedupeKey()
	err := handler(ctx, task.req, jobs.Attempt{Number: task.attempt, Final: q.policy.Exhausted(task.attempt)})
	switch {
	case err == nil:
		q.release(key)
	case jobs.IsPermanent(err) || q.policy.Exhausted(task.attempt):
		slog.Error("processing job abandoned", "meeting_id", task.req.MeetingID, "attempt", task.attempt, "error", err)
		q.release(key)
	default:
		delay := q.policy.Backoff(task.attempt)
		slog.Warn("processing job failed; scheduling retry", "meeting_id", task.req.MeetingID, "attempt", task.attempt, "retry_in", delay, "error", err)
		next := inlineTask{req: task.req, attempt: task.attempt + 1}
		q.mu.Lock()
		q.timers[key] = time.AfterFunc(delay, func() {
			q.mu.Lock()
			delete(q.timers, key)
			q.mu.Unlock()
			select {
			case q.tasks <- next:
			case <-ctx.Done():
			}
		})
		q.mu.Unlock()
	}
}

func (q *InlineQueue) release(key string) {
	q.mu.Lock()
	delete(q.inFlight, key)
	q.mu.Unlock()
}

func (q *InlineQueue) stopTimers() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for key, t := range q.timers {
		t.Stop()
		delete(q.timers, key)
	}
}
