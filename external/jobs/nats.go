package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	DurableConsumerName = "meeting-processing"
	streamSubjects      = "meetings.>"
	// ackWait must outlive one full pipeline attempt (fetch + model call + persistence).
	ackWait = 10 * time.Minute
)

// NATSQueue dispatches and consumes processing jobs through a JetStream stream.
type NATSQueue struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
	policy jobs.RetryPolicy
}

func NewNATSQueue(ctx context.Context, url, stream string, policy jobs.RetryPolicy, opts ...nats.Option) (*NATSQueue, error) {
	defaults := []nats.Option{
		nats.Name("webinar-platform"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       stream,
		Subjects:   []string{streamSubjects},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.WorkQueuePolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating stream %s: %w", stream, err)
	}
	return &NATSQueue{conn: nc, js: js, stream: stream, policy: policy}, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, req jobs.ProcessingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(jobs.Envelope{Name: jobs.ProcessingEventName, Data: req})
	if err != nil {
		return fmt.Errorf("marshaling processing request: %w", err)
	}
	// No msg id: a re-trigger after a failed job must be delivered. The job record skips completed work.
	if _, err := q.js.Publish(ctx, jobs.ProcessingSubject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", jobs.ProcessingSubject, err)
	}
	return nil
}

// Run consumes until ctx is canceled.
func (q *NATSQueue) Run(ctx context.Context, handler jobs.Handler) error {
	cons, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, jetstream.ConsumerConfig{
		Durable:       DurableConsumerName,
		FilterSubject: jobs.ProcessingSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    q.policy.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("creating consumer %s: %w", DurableConsumerName, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		q.handle(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("starting consumer %s: %w", DurableConsumerName, err)
	}
	<-ctx.Done()
	cc.Stop()
	return nil
}

func (q *NATSQueue) handle(ctx context.Context, msg jetstream.Msg, handler jobs.Handler) {
	var env jobs.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil || env.Data.Validate() != nil {
		slog.Error("dropping malformed processing message", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
		return
	}

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}
	err := handler(ctx, env.Data, jobs.Attempt{Number: attempt, Final: q.policy.Exhausted(attempt)})
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("failed to ack processing message", "meeting_id", env.Data.MeetingID, "error", ackErr)
		}
	case jobs.IsPermanent(err) || q.policy.Exhausted(attempt):
		slog.Error("processing job abandoned", "meeting_id", env.Data.MeetingID, "attempt", attempt, "error", err)
		_ = msg.Term()
	default:
		delay := q.policy.Backoff(attempt)
		slog.Warn("processing job failed; scheduling retry", "meeting_id", env.Data.MeetingID, "attempt", attempt, "retry_in", delay, "error", err)
		_ = msg.NakWithDelay(delay)
	}
}

func (q *NATSQueue) Close() error {
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return err
	}
	return nil
}
