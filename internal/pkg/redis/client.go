package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wzyjerry/stray-saver/internal/pkg/config"
	"go.uber.org/zap"
)

// Connect opens a client for cfg.RedisService and pings it.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisService.Password,
		DB:       cfg.RedisService.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.GetRedisAddr(), err)
	}

	log.With(zap.String("component", "redis")).Info("Redis connected successfully",
		zap.String("addr", cfg.GetRedisAddr()))

	return client, nil
}
