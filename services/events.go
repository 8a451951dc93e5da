package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventPublisher is the sink match events are fanned out to. Fire-and-forget;
// a failed publish never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// RedisPublisher publishes events on redis pub/sub channels. The Discord bot
// subscribes to them to update its embeds.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", channel, err)
	}
	p.logger.Debug("published event",
		zap.String("channel", channel),
	)
	return nil
}

// EventChannel builds the per-guild channel name, "event.<guild_id>.<event>".
func EventChannel(guildID string, event MatchEvent) string {
	return fmt.Sprintf("event.%s.%s", guildID, event)
}
