package pipeline

import (
	"github.com/imcaffiene/webinar-platform/internal/archive"
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/discord"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
	"github.com/imcaffiene/webinar-platform/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Announcer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewAnnouncer(AnnouncerDeps{
			Webhook:          do.MustInvoke[webhook.Sender](i),
			Discord:          do.MustInvoke[discord.Client](i),
			DiscordChannelID: cfg.DiscordSummaryChannelID,
			Archive:          do.MustInvoke[archive.Store](i),
			Metrics:          do.MustInvoke[*metrics.Metrics](i),
			Timezone:         cfg.TranscriptTimezone,
			Location:         cfg.Location(),
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*Runner, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		return NewRunner(Deps{
			Meetings:  repo,
			Users:     repo,
			Agents:    repo,
			Jobs:      repo,
			Cache:     do.MustInvoke[stepcache.Cache](i),
			Source:    NewHTTPFetcher(cfg.TranscriptFetchTimeout, cfg.TranscriptMaxBytes),
			Completer: do.MustInvoke[llm.Completer](i),
			Announcer: do.MustInvoke[*Announcer](i),
			Metrics:   do.MustInvoke[*metrics.Metrics](i),
			Model:     cfg.OpenAIModel,
		}), nil
	})
}
