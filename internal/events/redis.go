package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBus publishes each envelope on the channel named after its room, so a
// realtime gateway can SUBSCRIBE to user:<id> or owner:<id>.
type RedisBus struct {
	client redisPublisher
	closer func() error
	prefix string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to room channel names.
	Prefix string
}

func NewRedisBus(ctx context.Context, opts RedisOptions) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBus{client: client, closer: client.Close, prefix: opts.Prefix}, nil
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+env.Room, body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
