package platform

import (
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/platform"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*RESTClient, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewRESTClient(c.VideoAPIKey, c.VideoAPISecret, c.VideoAPIBaseURL, c.ChatAPIBaseURL)
	})
	do.Provide(injector, func(i do.Injector) (platform.CallController, error) {
		return do.MustInvoke[*RESTClient](i), nil
	})
	do.Provide(injector, func(i do.Injector) (platform.ChatChannel, error) {
		return do.MustInvoke[*RESTClient](i), nil
	})
	do.Provide(injector, func(i do.Injector) (platform.Verifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHMACVerifier(c.VideoAPISecret), nil
	})
}
