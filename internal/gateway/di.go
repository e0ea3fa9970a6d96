package gateway

import (
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/platform"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Gateway, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		return New(Deps{
			Verifier:   do.MustInvoke[platform.Verifier](i),
			APIKey:     cfg.VideoAPIKey,
			Meetings:   repo,
			Agents:     repo,
			Calls:      do.MustInvoke[platform.CallController](i),
			Chat:       do.MustInvoke[platform.ChatChannel](i),
			Completer:  do.MustInvoke[llm.Completer](i),
			Dispatcher: do.MustInvoke[jobs.Dispatcher](i),
			Metrics:    do.MustInvoke[*metrics.Metrics](i),
			ChatModel:  cfg.OpenAIModel,
		}), nil
	})
}
