package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/loggerapp/logger-api/internal/auth"
	"github.com/loggerapp/logger-api/internal/config"
	"github.com/loggerapp/logger-api/internal/handler"
	"github.com/loggerapp/logger-api/internal/idp"
	"github.com/loggerapp/logger-api/internal/middleware"
	"github.com/loggerapp/logger-api/internal/origin"
	"github.com/loggerapp/logger-api/internal/repo"
	"github.com/loggerapp/logger-api/internal/service"
	"github.com/loggerapp/logger-api/migrations"
	"github.com/loggerapp/logger-api/spec"
)

// startupTimeout bounds the first ping, migration and origin load, and every
// scheduled reload after that.
const startupTimeout = 10 * time.Second

// app is the wired router plus the background workers it owns.
type app struct {
	handler http.Handler
	authz   *origin.Authorizer
	loader  *storeLoader

	pool        *pgxpool.Pool
	rdb         *redis.Client
	refresher   *origin.Refresher
	broadcaster *origin.Broadcaster
	logger      *slog.Logger

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// newApp wires every component. Only configuration mistakes are returned as
// errors. An unreachable database is logged and left to the refresher: the
// server still starts and serves the trusted origins until the store recovers.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	// New() does not open connections immediately; it only parses the URL.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	a := &app{pool: pool, logger: logger}

	pingCtx, cancelPing := context.WithTimeout(ctx, startupTimeout)
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("database unreachable at startup; serving trusted origins until it recovers", "error", err)
	} else {
		logger.Info("database connection established")
	}
	cancelPing()

	projects := repo.NewProjectRepo(pool)
	logs := repo.NewLogRepo(pool)

	a.authz = origin.New(projects, origin.Options{
		StaticOrigins: cfg.Origins.Trusted,
		Strategy:      cfg.Origins.Strategy,
		WriteBack:     cfg.Origins.WriteBack,
		LookupTimeout: cfg.Origins.LookupTimeout,
		LookupRate:    rate.Limit(cfg.Origins.LookupRate),
		LookupBurst:   cfg.Origins.LookupBurst,
	}, logger)
	a.loader = &storeLoader{
		authz:   a.authz,
		migrate: func(ctx context.Context) error { return migrate(ctx, pool) },
		logger:  logger,
	}

	// The first load finishes before the listener opens so the first request
	// sees every registered origin. A failure leaves the trusted origins in
	// place and the refresher retries on its schedule.
	loadCtx, cancelLoad := context.WithTimeout(ctx, startupTimeout)
	_ = a.loader.Load(loadCtx)
	cancelLoad()

	a.refresher, err = origin.NewRefresher(a.loader, cfg.Origins.RefreshSchedule, startupTimeout, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		a.rdb = redis.NewClient(opts)
		a.broadcaster = origin.NewBroadcaster(a.rdb, cfg.Origins.RefreshChannel, logger)
	}
	trigger := origin.NewTrigger(a.loader, a.broadcaster, logger)

	deps := handler.Deps{
		Projects:      service.NewProjectService(projects, trigger, logger),
		Logs:          service.NewLogService(projects, logs),
		Reloader:      trigger,
		Origins:       a.authz,
		Admins:        cfg.Auth.AdminSubjects,
		ReloadLimiter: rate.NewLimiter(rate.Every(cfg.Origins.ReloadInterval), 1),
		OpenAPI:       spec.OpenAPI,
		Logger:        logger,
	}
	users, err := idp.NewClient(ctx, idp.Config{
		Domain:       cfg.Auth0.Domain,
		ClientID:     cfg.Auth0.ClientID,
		ClientSecret: cfg.Auth0.ClientSecret,
		Audience:     cfg.Auth0.ManagementAudience,
	})
	switch {
	case err == nil:
		deps.Users = users
	case errors.Is(err, idp.ErrNotConfigured):
		logger.Warn("Auth0 management credentials not set; /api/addUser disabled")
	default:
		a.close()
		return nil, fmt.Errorf("identity provider client: %w", err)
	}

	verifier := auth.NewVerifier(ctx, auth.Config{
		IssuerURL:     cfg.Auth.IssuerURL,
		Audience:      cfg.Auth.Audience,
		UsernameClaim: cfg.Auth.UsernameClaim,
		EmailClaim:    cfg.Auth.EmailClaim,
	})

	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. CORS sits outside routing so preflights for any
	// path are answered before chi matches a method.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(a.authz))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(deps).Routes(r, middleware.NewAuthHandler(verifier, logger))
	a.handler = r
	return a, nil
}

// start launches the refresher and, when Redis is configured, the broadcast
// listener. Workers run until stop is called or ctx ends.
func (a *app) start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.refresher.Start()

	if a.broadcaster == nil {
		return
	}
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		if err := a.broadcaster.Listen(ctx, a.loader, nil); err != nil {
			a.logger.Error("origin refresh listener stopped", "error", err)
		}
	}()
}

// stop halts the background workers, waiting up to ctx for a running reload.
func (a *app) stop(ctx context.Context) {
	a.refresher.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
	}
	a.workers.Wait()
}

// close releases the connections opened by newApp.
func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	a.pool.Close()
}

// storeLoader applies pending migrations before loading origins until one
// migration run succeeds, so a database that was down at startup is brought
// up to date by the first scheduled reload that reaches it.
type storeLoader struct {
	authz   origin.Loader
	migrate func(ctx context.Context) error
	logger  *slog.Logger

	mu       sync.Mutex
	migrated bool
}

func (l *storeLoader) Load(ctx context.Context) error {
	l.mu.Lock()
	if !l.migrated {
		if err := l.migrate(ctx); err != nil {
			l.logger.Error("failed to apply migrations; will retry on next reload", "error", err)
		} else {
			l.migrated = true
		}
	}
	l.mu.Unlock()

	return l.authz.Load(ctx)
}

// migrate applies pending goose migrations through a database/sql handle
// borrowed from the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "migrations applied", "count", len(results))
	return nil
}
