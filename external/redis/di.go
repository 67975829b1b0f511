package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/relay"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
)

const (
	ServiceName      = "relay.redis"
	redisPingTimeout = 5 * time.Second
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, ServiceName, func(i do.Injector) (relay.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.RedisAddr == "" {
			return relay.NopSender{SenderName: "redis"}, nil
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		slog.Info("relaying final transcripts to redis", "addr", c.RedisAddr, "channel", c.RedisChannel)
		return NewPublisher(client, c.RedisChannel, slog.Default()), nil
	})
}
