package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for webhook ingress and the summarization pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WebhookDeliveriesTotal *prometheus.CounterVec
	PipelineStepSeconds    *prometheus.HistogramVec
	PipelineJobsTotal      *prometheus.CounterVec
	AnnouncementsTotal     *prometheus.CounterVec
	LLMCallSeconds         *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WebhookDeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_deliveries_total",
				Help: "Inbound platform webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		PipelineStepSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_step_duration_seconds",
				Help:    "Duration of each summarization pipeline step",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"step", "status"},
		),
		PipelineJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_total",
				Help: "Summarization pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		AnnouncementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_announcements_total",
				Help: "Post-completion announcements by channel and status",
			},
			[]string{"channel", "status"},
		),
		LLMCallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_call_duration_seconds",
				Help:    "Language model completion latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"purpose", "status"},
		),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookDeliveriesTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.PipelineStepSeconds.WithLabelValues(step, statusLabel(err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveJob(outcome string) {
	if m == nil {
		return
	}
	m.PipelineJobsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnnouncement(channel string, err error) {
	if m == nil {
		return
	}
	m.AnnouncementsTotal.WithLabelValues(channel, statusLabel(err)).Inc()
}

func (m *Metrics) ObserveLLM(purpose string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.LLMCallSeconds.WithLabelValues(purpose, statusLabel(err)).Observe(time.Since(started).Seconds())
}
