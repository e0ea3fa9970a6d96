package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/imcaffiene/webinar-platform/internal/config"
)

type envConfig struct {
	Env                     string        `env:"ENV" envDefault:"production"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL             string        `env:"DATABASE_URL,required"`
	VideoAPIKey             string        `env:"VIDEO_API_KEY,required"`
	VideoAPISecret          string        `env:"VIDEO_API_SECRET,required"`
	VideoAPIBaseURL         string        `env:"VIDEO_API_BASE_URL" envDefault:"https://video.stream-io-api.com"`
	ChatAPIBaseURL          string        `env:"CHAT_API_BASE_URL" envDefault:"https://chat.stream-io-api.com"`
	OpenAIAPIKey            string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL           string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel             string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	LLMTimeout              time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	TranscriptFetchTimeout  time.Duration `env:"TRANSCRIPT_FETCH_TIMEOUT" envDefault:"30s"`
	TranscriptMaxBytes      int64         `env:"TRANSCRIPT_MAX_BYTES" envDefault:"33554432"`
	TranscriptTimezone      string        `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
	PipelineMaxAttempts     int           `env:"PIPELINE_MAX_ATTEMPTS" envDefault:"5"`
	PipelineRetryBaseDelay  time.Duration `env:"PIPELINE_RETRY_BASE_DELAY" envDefault:"10s"`
	PipelineRetryMaxDelay   time.Duration `env:"PIPELINE_RETRY_MAX_DELAY" envDefault:"5m"`
	NATSURL                 string        `env:"NATS_URL"`
	NATSStream              string        `env:"NATS_STREAM" envDefault:"MEETINGS"`
	RedisURL                string        `env:"REDIS_URL"`
	StepCacheTTL            time.Duration `env:"STEP_CACHE_TTL" envDefault:"72h"`
	SummaryWebhookURL       string        `env:"SUMMARY_WEBHOOK_URL"`
	DiscordToken            string        `env:"DISCORD_TOKEN"`
	DiscordSummaryChannelID string        `env:"DISCORD_SUMMARY_CHANNEL_ID"`
	ArchiveS3Bucket         string        `env:"ARCHIVE_S3_BUCKET"`
	ArchiveS3Region         string        `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	ArchiveS3Endpoint       string        `env:"ARCHIVE_S3_ENDPOINT"`
	ArchiveS3Prefix         string        `env:"ARCHIVE_S3_PREFIX" envDefault:"meetings/"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                     raw.Env,
		HTTPAddr:                raw.HTTPAddr,
		DatabaseURL:             raw.DatabaseURL,
		VideoAPIKey:             raw.VideoAPIKey,
		VideoAPISecret:          raw.VideoAPISecret,
		VideoAPIBaseURL:         raw.VideoAPIBaseURL,
		ChatAPIBaseURL:          raw.ChatAPIBaseURL,
		OpenAIAPIKey:            raw.OpenAIAPIKey,
		OpenAIBaseURL:           raw.OpenAIBaseURL,
		OpenAIModel:             raw.OpenAIModel,
		LLMTimeout:              raw.LLMTimeout,
		TranscriptFetchTimeout:  raw.TranscriptFetchTimeout,
		TranscriptMaxBytes:      raw.TranscriptMaxBytes,
		TranscriptTimezone:      raw.TranscriptTimezone,
		PipelineMaxAttempts:     raw.PipelineMaxAttempts,
		PipelineRetryBaseDelay:  raw.PipelineRetryBaseDelay,
		PipelineRetryMaxDelay:   raw.PipelineRetryMaxDelay,
		NATSURL:                 raw.NATSURL,
		NATSStream:              raw.NATSStream,
		RedisURL:                raw.RedisURL,
		StepCacheTTL:            raw.StepCacheTTL,
		SummaryWebhookURL:       raw.SummaryWebhookURL,
		DiscordToken:            raw.DiscordToken,
		DiscordSummaryChannelID: raw.DiscordSummaryChannelID,
		ArchiveS3Bucket:         raw.ArchiveS3Bucket,
		ArchiveS3Region:         raw.ArchiveS3Region,
		ArchiveS3Endpoint:       raw.ArchiveS3Endpoint,
		ArchiveS3Prefix:         raw.ArchiveS3Prefix,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
