package discord

import (
	"log/slog"

	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/relay"
	"github.com/samber/do/v2"
)

const ServiceName = "relay.discord"

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, ServiceName, func(i do.Injector) (relay.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.DiscordToken == "" || c.DiscordChannelID == "" {
			return relay.NopSender{SenderName: "discord"}, nil
		}
		sender, err := NewChannelSender(c.DiscordToken, c.DiscordChannelID)
		if err != nil {
			return nil, err
		}
		name, err := sender.ResolveChannelName()
		if err != nil {
			slog.Warn("failed to resolve discord channel; transcripts may not be delivered", "channel_id", c.DiscordChannelID, "error", err)
		} else {
			slog.Info("relaying final transcripts to discord", "channel_id", c.DiscordChannelID, "channel_name", name)
		}
		return sender, nil
	})
}
