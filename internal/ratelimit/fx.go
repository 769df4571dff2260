package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/config"
	"github.com/smallbiznis/outreach/internal/observability/metrics"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(func(client *redis.Client, cfg config.Config) *Locker {
		return NewLocker(client, cfg.Redis.LockTTL)
	}),
	fx.Provide(NewPacer),
)

// NewRedisClient returns nil when REDIS_ADDR is unset; the bucket and locker are
// then disabled.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Info("redis not configured, shared send limits and dispatch locks disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

// LimitProvider wraps the email provider with the shared bucket when Redis is
// available. Meant for fx.Decorate at the application root.
func LimitProvider(p email.Provider, bucket *TokenBucket, clk clock.Clock, cfg config.Config, log *zap.Logger, m *metrics.Metrics) email.Provider {
	if bucket == nil || cfg.Redis.SendRate <= 0 || cfg.Redis.SendBurst <= 0 {
		return p
	}
	return NewSendLimiter(p, bucket, clk, log, cfg.Redis.SendRate, cfg.Redis.SendBurst).WithMetrics(m)
}
