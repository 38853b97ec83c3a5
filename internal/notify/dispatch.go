// Package notify hands committed notifications to the delivery side.
//
// Notification rows are the source of truth and are written in the same
// transaction as the change that caused them. Dispatch runs only after the
// commit and is best effort: a failed publish is logged, never returned,
// because the row is already readable through the API.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, notifications []models.Notification)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Dispatch(context.Context, []models.Notification) {}

// RedisPublisher publishes each notification as JSON on a pub/sub channel
// for whatever pushes them to clients.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Dispatch(ctx context.Context, notifications []models.Notification) {
	if len(notifications) == 0 {
		return
	}
	pipe := p.client.Pipeline()
	for i := range notifications {
		payload, err := json.Marshal(&notifications[i])
		if err != nil {
			p.logger.Warn("encode notification", zap.Int64("notification_id", notifications[i].ID), zap.Error(err))
			continue
		}
		pipe.Publish(ctx, p.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("publish notifications",
			zap.String("channel", p.channel),
			zap.Int("count", len(notifications)),
			zap.Error(err),
		)
	}
}
