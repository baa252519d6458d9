package notify

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes change events over Redis Pub/Sub so every frontend
// node can relay them to its connected clients. Publish failures are logged
// and swallowed: notification is fire-and-forget by contract.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier creates a notifier on top of an existing Redis client.
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) Notify(ctx context.Context, auditID, event string) {
	if err := n.client.Publish(ctx, ChannelFor(auditID), event).Err(); err != nil {
		n.logger.WarnContext(ctx, "audit change notification dropped",
			"audit_id", auditID,
			"event", event,
			"error", err,
		)
	}
}
