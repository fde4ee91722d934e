package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	eventQueueKey = "dispatch_events"

	// eventProcessingKey holds events popped but not yet delivered; the
	// worker drains it back into the queue on startup.
	eventProcessingKey = "dispatch_events:processing"
)

// EventPublisher queues fan-out events for asynchronous delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisEventPublisher pushes events onto a Redis list consumed by the
// fan-out worker.
type RedisEventPublisher struct {
	redisClient *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish appends an event to the queue.
func (p *RedisEventPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal fan-out event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish fan-out event to Redis: %w", err)
	}
	return nil
}
