package origin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broadcaster tells other replicas to reload their snapshot after a project's
// origins change, using Redis pub/sub. The payload is the publishing
// instance's ID so each replica can ignore its own messages.
type Broadcaster struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *slog.Logger
}

// NewBroadcaster constructs a Broadcaster with a fresh instance ID.
func NewBroadcaster(client *redis.Client, channel string, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger.With("component", "origin.broadcaster"),
	}
}

// InstanceID identifies this process on the refresh channel.
func (b *Broadcaster) InstanceID() string {
	return b.instanceID
}

// Publish announces that the origin registry changed.
func (b *Broadcaster) Publish(ctx context.Context) error {
	if err := b.client.Publish(ctx, b.channel, b.instanceID).Err(); err != nil {
		return fmt.Errorf("origin.Broadcaster.Publish: %w", err)
	}
	return nil
}

// Listen subscribes to the refresh channel and calls loader.Load for every
// message published by another instance. It blocks until ctx is cancelled.
// The ready channel, if non-nil, is closed once the subscription is active.
func (b *Broadcaster) Listen(ctx context.Context, loader Loader, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Receive blocks until Redis confirms the subscription.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("origin.Broadcaster.Listen: subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	b.logger.Info("listening for origin refresh broadcasts", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == b.instanceID {
				continue
			}
			b.logger.Info("origin refresh requested by peer", "peer", msg.Payload)
			_ = loader.Load(ctx)
		}
	}
}
