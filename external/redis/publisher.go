package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/kikitori/internal/relay"
	goredis "github.com/redis/go-redis/v9"
)

// Publisher publishes every final transcript as JSON on a pub/sub channel.
type Publisher struct {
	client  *goredis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(client *goredis.Client, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

func (p *Publisher) Name() string {
	return "redis"
}

func (p *Publisher) Send(ctx context.Context, event relay.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transcript event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish transcript event: %w", err)
	}
	p.logger.Debug("published transcript event",
		"channel", p.channel,
		"session_id", event.SessionID,
		"index", event.Index,
		"receivers", receivers)
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
