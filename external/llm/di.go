package llm

import (
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/llm"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (llm.Completer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewChatCompletionsClient(c.OpenAIBaseURL, c.OpenAIAPIKey, c.OpenAIModel, c.LLMTimeout), nil
	})
}
