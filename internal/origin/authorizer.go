// Package origin decides, per request, whether a browser Origin may read the
// API's responses. Allowed origins come from two places: a fixed set of
// trusted origins supplied at construction, and the origins registered on
// project records in the database, which change at runtime.
//
// The Authorizer keeps an in-memory snapshot of every known origin. A load
// builds a complete new snapshot off to the side and publishes it with one
// atomic pointer swap, so concurrent Authorize calls see either the old or the
// new set in full. Origins missing from the snapshot can optionally be looked
// up in the store one at a time (the fallback strategy).
package origin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/loggerapp/logger-api/internal/domain"
)

var (
	// ErrStoreUnavailable wraps any failure to read project origins during a
	// load. It is non-fatal: the previous snapshot stays in place.
	ErrStoreUnavailable = errors.New("origin store unavailable")

	// ErrMalformedOrigin marks a string that is not a valid browser origin.
	// Malformed registry entries are skipped and logged, never propagated.
	ErrMalformedOrigin = errors.New("malformed origin")

	// ErrLookupTimeout is reported when a fallback lookup exceeds its deadline.
	// The request is denied.
	ErrLookupTimeout = errors.New("origin lookup timed out")
)

// Store is the read-only view of project records the Authorizer consumes.
// The Postgres ProjectRepo satisfies it.
type Store interface {
	// ListAllProjectOrigins returns the registered origins of every project.
	ListAllProjectOrigins(ctx context.Context) ([]domain.ProjectOrigins, error)

	// FindProjectByOrigin returns a project whose origin list contains origin
	// exactly, or domain.ErrNotFound.
	FindProjectByOrigin(ctx context.Context, origin string) (domain.Project, error)
}

// Mode is the outcome of an authorization decision.
type Mode int

const (
	// ModeNotCORS means the request carried no Origin header. No CORS headers
	// are emitted and the request is routed normally.
	ModeNotCORS Mode = iota
	// ModeAllow means the origin may read the response, with credentials.
	ModeAllow
	// ModeDeny means the Access-Control-Allow-Origin header must be omitted.
	// An unknown origin is an expected outcome, not an error.
	ModeDeny
)

func (m Mode) String() string {
	switch m {
	case ModeNotCORS:
		return "not-cors"
	case ModeAllow:
		return "allow"
	case ModeDeny:
		return "deny"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Decision is the tagged result of Authorize.
type Decision struct {
	Mode               Mode
	CredentialsAllowed bool
}

var (
	notCORS = Decision{Mode: ModeNotCORS}
	allow   = Decision{Mode: ModeAllow, CredentialsAllowed: true}
	deny    = Decision{Mode: ModeDeny}
)

// Strategy selects what Authorize does with an origin missing from the snapshot.
type Strategy string

const (
	// StrategyCacheOnly denies unknown origins immediately. New project
	// origins become visible only after the next load.
	StrategyCacheOnly Strategy = "cache-only"
	// StrategyFallback queries the store once for an unknown origin before
	// denying it.
	StrategyFallback Strategy = "fallback"
)

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCacheOnly, StrategyFallback:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown origin strategy %q (want %q or %q)", s, StrategyCacheOnly, StrategyFallback)
	}
}

// State is the lifecycle position of an Authorizer.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures an Authorizer.
type Options struct {
	// StaticOrigins are always allowed, before and regardless of any load.
	StaticOrigins []string

	// Strategy defaults to StrategyCacheOnly when empty.
	Strategy Strategy

	// WriteBack inserts origins found by a fallback lookup into the snapshot
	// so the next request for them is a cache hit.
	WriteBack bool

	// LookupTimeout bounds a single fallback lookup. Defaults to 2s.
	LookupTimeout time.Duration

	// LookupRate and LookupBurst throttle fallback lookups across all
	// requests. A zero LookupRate disables throttling.
	LookupRate  rate.Limit
	LookupBurst int
}

const defaultLookupTimeout = 2 * time.Second

// Authorizer answers allow/deny for request origins. It is safe for
// concurrent use; construct it with New.
type Authorizer struct {
	store  Store
	opts   Options
	logger *slog.Logger

	snap  atomic.Pointer[snapshot]
	state atomic.Int32

	// static holds the validated static origins every load starts from.
	static []string

	loadMu  sync.Mutex
	lookups singleflight.Group
	limiter *rate.Limiter
}

// New constructs an Authorizer whose snapshot already contains the valid
// static origins. Malformed static origins are dropped with a warning.
func New(store Store, opts Options, logger *slog.Logger) *Authorizer {
	if opts.Strategy == "" {
		opts.Strategy = StrategyCacheOnly
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}

	a := &Authorizer{
		store:   store,
		opts:    opts,
		logger:  logger.With("component", "origin.authorizer"),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	if opts.LookupRate > 0 {
		burst := opts.LookupBurst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(opts.LookupRate, burst)
	}

	initial := newSnapshot(0, len(opts.StaticOrigins))
	for _, o := range opts.StaticOrigins {
		if err := ValidateOrigin(o); err != nil {
			a.logger.Warn("dropping malformed static origin", "origin", o, "error", err)
			continue
		}
		a.static = append(a.static, o)
		initial.origins[o] = struct{}{}
	}
	a.snap.Store(initial)
	return a
}

// Load replaces the snapshot with the static origins plus every valid origin
// registered on any project. Entries that fail ValidateOrigin are skipped and
// logged. If the store cannot be read, the current snapshot is kept, the
// Authorizer still becomes ready, and an error wrapping ErrStoreUnavailable is
// returned.
//
// Loads are serialized with each other but never block Authorize.
func (a *Authorizer) Load(ctx context.Context) error {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	if State(a.state.Load()) != StateReady {
		a.state.Store(int32(StateLoading))
	}
	defer a.state.Store(int32(StateReady))

	projects, err := a.store.ListAllProjectOrigins(ctx)
	if err != nil {
		a.logger.Error("failed to load project origins; keeping previous snapshot", "error", err)
		return fmt.Errorf("origin.Authorizer.Load: %w: %w", ErrStoreUnavailable, err)
	}

	prev := a.snap.Load()
	next := newSnapshot(prev.generation+1, len(a.static)+len(projects))
	for _, o := range a.static {
		next.origins[o] = struct{}{}
	}

	skipped := 0
	for _, p := range projects {
		for _, o := range p.Origins {
			if err := ValidateOrigin(o); err != nil {
				skipped++
				a.logger.Warn("skipping malformed project origin",
					"project_id", p.ProjectID,
					"origin", o,
					"error", err,
				)
				continue
			}
			next.origins[o] = struct{}{}
		}
	}

	a.snap.Store(next)
	a.logger.Info("allowed origins loaded",
		"origins", len(next.origins),
		"projects", len(projects),
		"skipped", skipped,
		"generation", next.generation,
	)
	return nil
}

// Authorize decides whether origin may read the response. An empty origin
// means the header was absent.
//
// The result is never an error: unknown origins and store failures both yield
// ModeDeny. Store failures and timeouts are logged.
func (a *Authorizer) Authorize(ctx context.Context, origin string) Decision {
	if origin == "" {
		return notCORS
	}

	snap := a.snap.Load()
	if snap.contains(origin) {
		return allow
	}
	if a.opts.Strategy != StrategyFallback {
		return deny
	}

	// Only well-formed origins are looked up, so a stored record can never be
	// matched by something that is not a real origin.
	if err := ValidateOrigin(origin); err != nil {
		return deny
	}
	if !a.limiter.Allow() {
		a.logger.Warn("origin lookup throttled", "origin", origin)
		return deny
	}

	found, err := a.lookup(ctx, origin)
	if err != nil {
		a.logger.Error("origin lookup failed; denying", "origin", origin, "error", err)
		return deny
	}
	if !found {
		return deny
	}

	if a.opts.WriteBack {
		a.remember(snap, origin)
	}
	return allow
}

// lookup asks the store whether any project registers origin. Concurrent
// lookups for the same origin share one store query, but every caller waits
// only as long as its own deadline allows.
func (a *Authorizer) lookup(ctx context.Context, origin string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.LookupTimeout)
	defer cancel()

	ch := a.lookups.DoChan(origin, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail
		// the other waiters; still bounded by the lookup timeout.
		qctx, qcancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.LookupTimeout)
		defer qcancel()

		_, err := a.store.FindProjectByOrigin(qctx, origin)
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return false, fmt.Errorf("%w: %w", ErrLookupTimeout, err)
			}
			return false, err
		}
		return true, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, fmt.Errorf("origin.Authorizer.lookup: %w", res.Err)
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, fmt.Errorf("origin.Authorizer.lookup: %w", ErrLookupTimeout)
		}
		return false, fmt.Errorf("origin.Authorizer.lookup: %w", ctx.Err())
	}
}

// remember adds origin to the published snapshot with copy-on-write. It gives
// up if a full load has happened since seen was read, because that load
// already reflects the store.
func (a *Authorizer) remember(seen *snapshot, origin string) {
	for {
		cur := a.snap.Load()
		if cur.generation != seen.generation || cur.contains(origin) {
			return
		}
		if a.snap.CompareAndSwap(cur, cur.with(origin)) {
			a.logger.Debug("cached origin from store lookup", "origin", origin)
			return
		}
	}
}

// State returns the current lifecycle state.
func (a *Authorizer) State() State {
	return State(a.state.Load())
}

// Origins returns the sorted contents of the current snapshot.
func (a *Authorizer) Origins() []string {
	return a.snap.Load().list()
}

// LoadedAt returns when the current snapshot's generation was built.
func (a *Authorizer) LoadedAt() time.Time {
	return a.snap.Load().loadedAt
}
