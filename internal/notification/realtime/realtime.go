// Package realtime pushes freshly created notifications over Redis pub/sub
// so connected sessions update without polling. Delivery is best-effort: a
// missed publish only means the client waits for its next poll, because the
// store remains the source of truth.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"carelink/internal/notification/models"
	platformredis "carelink/internal/platform/redis"
	id "carelink/pkg/domain"
)

// Channel returns the per-user pub/sub channel name.
func Channel(orgID id.OrgID, userID id.UserID) string {
	return fmt.Sprintf("org:%s:user:%s:notifications", orgID, userID)
}

// Publisher fans freshly created notifications out to Redis. A nil Redis
// client turns every publish into a no-op, so deployments without Redis
// degrade to polling.
type Publisher struct {
	redis  *platformredis.Client
	logger *slog.Logger
}

func NewPublisher(redis *platformredis.Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{redis: redis, logger: logger}
}

// Publish sends the notification to the recipient's channel. Errors are
// logged, never returned; the write to the store already succeeded.
func (p *Publisher) Publish(ctx context.Context, notification *models.Notification) {
	if p == nil || p.redis == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		p.logger.Error("marshal notification for push", "error", err)
		return
	}
	channel := Channel(notification.OrgID, notification.UserID)
	if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("notification push failed, client will poll",
			"channel", channel, "error", err)
	}
}

// Subscribe opens a live notification feed for one user session. The
// returned channel closes when ctx is cancelled or the subscription drops;
// callers fall back to polling at that point.
func (p *Publisher) Subscribe(ctx context.Context, orgID id.OrgID, userID id.UserID) (<-chan *models.Notification, error) {
	if p == nil || p.redis == nil {
		return nil, fmt.Errorf("realtime push is not configured")
	}
	sub := p.redis.Subscribe(ctx, Channel(orgID, userID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan *models.Notification)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var notification models.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
					p.logger.Warn("dropping malformed push payload", "error", err)
					continue
				}
				select {
				case out <- &notification:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
