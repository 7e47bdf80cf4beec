package people

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/redis/go-redis/v9"
)

// RedisPersonCache stores resolved people as JSON under person:<username>.
// Redis failures degrade to cache misses.
type RedisPersonCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersonCache connects to redisURL and checks the connection.
func NewRedisPersonCache(redisURL string, ttl time.Duration) (*RedisPersonCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisPersonCacheWithClient(client, ttl), nil
}

func NewRedisPersonCacheWithClient(client *redis.Client, ttl time.Duration) *RedisPersonCache {
	return &RedisPersonCache{client: client, prefix: "person:", ttl: ttl}
}

func (c *RedisPersonCache) key(username string) string {
	return c.prefix + username
}

func (c *RedisPersonCache) Get(ctx context.Context, username string) (*domain.Person, bool) {
	b, err := c.client.Get(ctx, c.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Person cache read failed", "userName", username, "error", err)
		return nil, false
	}
	var p domain.Person
	if err := json.Unmarshal(b, &p); err != nil {
		slog.Warn("Person cache entry is corrupt", "userName", username, "error", err)
		return nil, false
	}
	return &p, true
}

func (c *RedisPersonCache) Set(ctx context.Context, p *domain.Person) {
	b, err := json.Marshal(p)
	if err != nil {
		slog.Warn("Failed to encode person for cache", "userName", p.UserName, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(p.UserName), b, c.ttl).Err(); err != nil {
		slog.Warn("Person cache write failed", "userName", p.UserName, "error", err)
	}
}

func (c *RedisPersonCache) Delete(ctx context.Context, username string) {
	if err := c.client.Del(ctx, c.key(username)).Err(); err != nil {
		slog.Warn("Person cache delete failed", "userName", username, "error", err)
	}
}

func (c *RedisPersonCache) Close() error {
	return c.client.Close()
}
