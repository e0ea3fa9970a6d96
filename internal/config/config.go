package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	VideoAPIKey     string
	VideoAPISecret  string
	VideoAPIBaseURL string
	ChatAPIBaseURL  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMTimeout    time.Duration

	TranscriptFetchTimeout time.Duration
	TranscriptMaxBytes     int64
	TranscriptTimezone     string

	PipelineMaxAttempts    int
	PipelineRetryBaseDelay time.Duration
	PipelineRetryMaxDelay  time.Duration

	NATSURL      string
	NATSStream   string
	RedisURL     string
	StepCacheTTL time.Duration

	SummaryWebhookURL       string
	DiscordToken            string
	DiscordSummaryChannelID string

	ArchiveS3Bucket   string
	ArchiveS3Region   string
	ArchiveS3Endpoint string
	ArchiveS3Prefix   string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if (c.DiscordToken == "") != (c.DiscordSummaryChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_SUMMARY_CHANNEL_ID must be set together")
	}
	for _, d := range c.positiveDurationChecks() {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.PipelineMaxAttempts <= 0 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be positive, got %d", c.PipelineMaxAttempts)
	}
	if c.PipelineRetryMaxDelay < c.PipelineRetryBaseDelay {
		return fmt.Errorf("PIPELINE_RETRY_MAX_DELAY must not be shorter than PIPELINE_RETRY_BASE_DELAY")
	}
	if c.TranscriptMaxBytes <= 0 {
		return fmt.Errorf("TRANSCRIPT_MAX_BYTES must be positive, got %d", c.TranscriptMaxBytes)
	}
	if c.TranscriptTimezone == "" {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "VIDEO_API_KEY", value: c.VideoAPIKey},
		{name: "VIDEO_API_SECRET", value: c.VideoAPISecret},
		{name: "VIDEO_API_BASE_URL", value: c.VideoAPIBaseURL},
		{name: "CHAT_API_BASE_URL", value: c.ChatAPIBaseURL},
		{name: "OPENAI_API_KEY", value: c.OpenAIAPIKey},
		{name: "OPENAI_BASE_URL", value: c.OpenAIBaseURL},
		{name: "OPENAI_MODEL", value: c.OpenAIModel},
	}
}

type durationEnvField struct {
	name  string
	value time.Duration
}

func (c *Config) positiveDurationChecks() []durationEnvField {
	return []durationEnvField{
		{name: "LLM_TIMEOUT", value: c.LLMTimeout},
		{name: "TRANSCRIPT_FETCH_TIMEOUT", value: c.TranscriptFetchTimeout},
		{name: "PIPELINE_RETRY_BASE_DELAY", value: c.PipelineRetryBaseDelay},
		{name: "PIPELINE_RETRY_MAX_DELAY", value: c.PipelineRetryMaxDelay},
		{name: "STEP_CACHE_TTL", value: c.StepCacheTTL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesNATS reports whether pipeline jobs go through JetStream instead of the in-process queue.
func (c *Config) UsesNATS() bool {
	return c.NATSURL != ""
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TranscriptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
