package notify

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lalith-99/unionline/internal/models"
)

func TestRedisPublisherLogsUnreachableServer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	p := NewRedisPublisher(client, "notifications", zap.New(core))
	assert.NotPanics(t, func() {
		p.Dispatch(context.Background(), []models.Notification{{ID: 1, UserID: 2, Title: "t"}})
	})
	assert.Equal(t, 1, logs.FilterMessage("publish notifications").Len())
}

func TestRedisPublisherSkipsEmptyBatch(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	NewRedisPublisher(client, "notifications", zap.New(core)).Dispatch(context.Background(), nil)
	assert.Zero(t, logs.Len())
}
