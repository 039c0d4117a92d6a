package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/ports"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "EVENT_SEARCH_COMPLETED"

// RedisPublisher publishes search events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher wraps a connected client.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// PublishSearchCompleted sends the JSON event to subscribers of the channel.
func (p *RedisPublisher) PublishSearchCompleted(ctx context.Context, event domain.SearchCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode search event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
