package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when Redis is unreachable; callers run without it.
func ConnectRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("⚠️  Invalid REDIS_URL, running without Redis", "error", err)
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("⚠️  Redis not available, running without it", "error", err)
		client.Close()
		return nil
	}

	slog.Info("✅ Redis connected successfully")
	return client
}
