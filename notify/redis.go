package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

// DefaultChannel is the pub/sub channel carrying progress ids.
const DefaultChannel = "assetd:progress"

// Redis publishes progress ids on a pub/sub channel so that every API
// instance can forward them to its own websocket hub.
type Redis struct {
	rc      redis.UniversalClient
	channel string
}

// NewRedis creates a publishing notifier.
func NewRedis(rc redis.UniversalClient, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rc: rc, channel: channel}
}

// ProgressChanged publishes progressID.
func (r *Redis) ProgressChanged(ctx context.Context, progressID string) {
	if err := r.rc.Publish(ctx, r.channel, progressID).Err(); err != nil {
		logger.Warn(ctx, "Failed to publish progress event", "progress_id", progressID, "error", err)
	}
}

// Relay forwards events published on the channel to target until ctx is done.
func (r *Redis) Relay(ctx context.Context, target Notifier) error {
	sub := r.rc.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			target.ProgressChanged(ctx, msg.Payload)
		}
	}
}
