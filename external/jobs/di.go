package jobs

import (
	"context"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/samber/do/v2"
)

const natsConnectTimeout = 15 * time.Second

// Queue is both ends of the job transport. One instance backs the dispatcher and the consumer.
type Queue interface {
	jobs.Dispatcher
	jobs.Consumer
}

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Queue, error) {
		c := do.MustInvoke[*config.Config](i)
		policy := RetryPolicyFromConfig(c)
		if !c.UsesNATS() {
			return NewInlineQueue(policy), nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), natsConnectTimeout)
		defer cancel()
		return NewNATSQueue(ctx, c.NATSURL, c.NATSStream, policy)
	})
	do.Provide(injector, func(i do.Injector) (jobs.Dispatcher, error) {
		return do.MustInvoke[Queue](i), nil
	})
	do.Provide(injector, func(i do.Injector) (jobs.Consumer, error) {
		return do.MustInvoke[Queue](i), nil
	})
}

// RetryPolicyFromConfig overlays the configured values on the default policy. Unset (zero) fields keep the default.
func RetryPolicyFromConfig(c *config.Config) jobs.RetryPolicy {
	p := jobs.DefaultRetryPolicy()
	if c.PipelineMaxAttempts > 0 {
		p.MaxAttempts = c.PipelineMaxAttempts
	}
	if c.PipelineRetryBaseDelay > 0 {
		p.BaseDelay = c.PipelineRetryBaseDelay
	}
	if c.PipelineRetryMaxDelay > 0 {
		p.MaxDelay = c.PipelineRetryMaxDelay
	}
	return p
}

// Shutdown drains the NATS connection when the injector shuts down.
func (q *NATSQueue) Shutdown() error {
	return q.Close()
}
