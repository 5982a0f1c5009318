package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sandwich-guard/internal/domain"
)

// Publisher is the subset of *redis.Client used by RedisChannel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisChannel publishes verdicts as JSON on a Redis pub/sub channel.
type RedisChannel struct {
	pub     Publisher
	channel string
}

// NewRedisChannel creates a channel publishing to the given pub/sub channel.
func NewRedisChannel(pub Publisher, channel string) *RedisChannel {
	return &RedisChannel{pub: pub, channel: channel}
}

// NewRedisClient opens a client and checks connectivity with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

// Name implements Channel.
func (c *RedisChannel) Name() string { return "redis" }

// Deliver implements Channel.
func (c *RedisChannel) Deliver(ctx context.Context, v domain.RiskVerdict) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	if err := c.pub.Publish(ctx, c.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", c.channel, err)
	}
	return nil
}
