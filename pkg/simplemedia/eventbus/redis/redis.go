// Package redis publishes change events on a Redis pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// DefaultChannel is the channel events are published on.
const DefaultChannel = "events"

// Bus is a simplemedia.EventBus backed by Redis PUBLISH.
type Bus struct {
	client  goredis.UniversalClient
	channel string
}

// New creates a Bus publishing on channel, or DefaultChannel if empty.
func New(client goredis.UniversalClient, channel string) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bus{client: client, channel: channel}
}

// NewFromURL connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewFromURL(url, channel string) (*Bus, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return New(goredis.NewClient(opt), channel), nil
}

var _ simplemedia.EventBus = (*Bus)(nil)

// Publish sends event as JSON
func (b *Bus) Publish(ctx context.Context, event simplemedia.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Ping checks the connection
func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (b *Bus) Close() error {
	return b.client.Close()
}
