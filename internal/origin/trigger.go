package origin

import (
	"context"
	"fmt"
	"log/slog"
)

// Trigger performs an explicit refresh: reload the local snapshot, then ask
// peers to do the same. The broadcaster is optional.
type Trigger struct {
	loader      Loader
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewTrigger returns a Trigger. Pass a nil broadcaster for single-instance
// deployments.
func NewTrigger(loader Loader, broadcaster *Broadcaster, logger *slog.Logger) *Trigger {
	return &Trigger{loader: loader, broadcaster: broadcaster, logger: logger.With("component", "origin.trigger")}
}

// Refresh reloads locally and broadcasts. A broadcast failure is logged but
// does not fail the call; peers still converge on their scheduled refresh.
func (t *Trigger) Refresh(ctx context.Context) error {
	if err := t.loader.Load(ctx); err != nil {
		return fmt.Errorf("origin.Trigger.Refresh: %w", err)
	}
	if t.broadcaster == nil {
		return nil
	}
	if err := t.broadcaster.Publish(ctx); err != nil {
		t.logger.Warn("failed to broadcast origin refresh", "error", err)
	}
	return nil
}
