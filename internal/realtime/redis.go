package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the Redis pub/sub channel carrying realtime events.
const EventChannel = "podium.events"

// Publisher delivers realtime events to whoever is listening. Implementations
// must be safe for concurrent use. Publishing is fire-and-forget; failures
// are logged by the caller, never retried.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// RedisPublisher publishes events to the shared Redis channel so every
// server instance's websocket hub can forward them.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{rdb: rdb}, nil
}

// Publish marshals the event and pushes it onto the event channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := MarshalEvent(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, EventChannel, data).Err()
}

// Subscribe returns the pub/sub subscription for the event channel.
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.rdb.Subscribe(ctx, EventChannel)
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// NopPublisher drops every event. Used when Redis is not configured and in
// tests that don't care about realtime delivery.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event *Event) error {
	return nil
}
