package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"company-quiz-service/internal/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationRelay fans live events out across service instances. Publish
// sends the event to a Redis channel; Run delivers everything received on
// that channel to the local registry.
type NotificationRelay struct {
	client  *redis.Client
	channel string
	local   app.Broadcaster
	log     *zap.Logger
}

type relayMessage struct {
	UserID int64     `json:"user_id"`
	Event  app.Event `json:"event"`
}

func NewNotificationRelay(client *redis.Client, channel string, local app.Broadcaster, log *zap.Logger) *NotificationRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationRelay{client: client, channel: channel, local: local, log: log}
}

func (r *NotificationRelay) Publish(ctx context.Context, userID int64, ev app.Event) error {
	raw, err := json.Marshal(relayMessage{UserID: userID, Event: ev})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish notification event: %w", err)
	}
	return nil
}

// Run blocks until ctx is cancelled. ready, when not nil, is closed once the
// subscription is active.
func (r *NotificationRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.log.Error("relay unmarshal failed", zap.Error(err))
				continue
			}
			if err := r.local.Publish(ctx, m.UserID, m.Event); err != nil {
				r.log.Warn("relay delivery failed", zap.Int64("user_id", m.UserID), zap.Error(err))
			}
		}
	}
}
