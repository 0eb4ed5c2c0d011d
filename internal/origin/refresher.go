package origin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Loader is satisfied by *Authorizer.
type Loader interface {
	Load(ctx context.Context) error
}

// Refresher reloads the snapshot on a cron schedule. This bounds how stale a
// removed or edited origin can be, and retries a startup load that failed
// because the store was unreachable.
type Refresher struct {
	cron    *cron.Cron
	loader  Loader
	timeout time.Duration
	logger  *slog.Logger
}

// NewRefresher schedules loader.Load according to spec, which accepts the
// standard five-field cron syntax or descriptors such as "@every 5m".
// A run that is still in progress when the next one is due is skipped.
func NewRefresher(loader Loader, spec string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	logger = logger.With("component", "origin.refresher")
	r := &Refresher{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		loader:  loader,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("origin.NewRefresher: invalid schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start begins running scheduled reloads in the background.
func (r *Refresher) Start() {
	r.logger.Info("origin refresh scheduler started")
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running reload to finish or ctx to
// expire.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.logger.Warn("origin refresh still running at shutdown")
	}
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Load logs its own failures; the next tick retries.
	_ = r.loader.Load(ctx)
}
