package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"filmdex/internal/logging"
)

// Redis stores cache entries in a Redis server, letting several machines or
// repeated CLI runs share one lookup cache.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects to the Redis server and verifies it responds before
// returning the store.
func NewRedis(addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &Redis{client: client, logger: logging.NewComponentLogger(logger, "cache")}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed",
				logging.String(logging.FieldEventType, "cache_read_failed"),
				logging.String("key", key),
				logging.Error(err))
		}
		return "", false
	}
	return value, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache write failed",
			logging.String(logging.FieldEventType, "cache_write_failed"),
			logging.String("key", key),
			logging.Error(err))
		return false
	}
	return true
}

func (r *Redis) Ping(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) Count(ctx context.Context) int {
	size, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(size)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
