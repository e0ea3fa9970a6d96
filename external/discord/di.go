package discord

import (
	"github.com/imcaffiene/webinar-platform/internal/config"
	discordpkg "github.com/imcaffiene/webinar-platform/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discordpkg.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.DiscordToken == "" {
			return discordpkg.NoopClient{}, nil
		}
		return NewClient(c.DiscordToken)
	})
}
