package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	EventOrderCreated     = "order.created"
	EventOrderUpdated     = "order.updated"
	EventOrderPaid        = "order.paid"
	EventOrderVoided      = "order.voided"
	EventPaymentSucceeded = "payment.succeeded"

	eventChannelPrefix = "mesa:events:"
	eventChannelAll    = "mesa:events:all"
)

type OrderEvent struct {
	EventType   string    `json:"event_type"`
	TenantID    string    `json:"tenant_id"`
	LocationID  string    `json:"location_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	Channel     string    `json:"channel,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher announces committed order state changes. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// NopPublisher drops every event.
func NopPublisher() Publisher { return nopPublisher{} }

type RedisPublisher struct {
	redis *redis.Client
}

// NewRedisPublisher publishes on mesa:events:<type> and mesa:events:all. A nil
// client yields a publisher that drops events.
func NewRedisPublisher(redisClient *redis.Client) Publisher {
	if redisClient == nil {
		return NopPublisher()
	}
	return &RedisPublisher{redis: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := eventChannelPrefix + event.EventType
	if err := p.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := p.redis.Publish(ctx, eventChannelAll, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}
