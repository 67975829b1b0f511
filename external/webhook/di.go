package webhook

import (
	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/relay"
	"github.com/samber/do/v2"
)

const ServiceName = "relay.webhook"

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, ServiceName, func(i do.Injector) (relay.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.TranscriptWebhookURL == "" {
			return relay.NopSender{SenderName: "webhook"}, nil
		}
		return NewHTTPSender(c.TranscriptWebhookURL), nil
	})
}
