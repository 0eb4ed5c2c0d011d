// Package handler implements the HTTP handlers for the Logger API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, log.go, project.go, ...) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/service"
)

// ProjectServicer defines the project operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type ProjectServicer interface {
	Create(ctx context.Context, owner domain.Identity, name string, origins []string) (domain.Project, error)
	ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Project, int64, error)
	ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error)
	UpdateOrigins(ctx context.Context, owner domain.Identity, id uuid.UUID, origins []string) (domain.Project, error)
}

// LogServicer defines the log operations the handlers depend on.
type LogServicer interface {
	Ingest(ctx context.Context, req service.IngestRequest) (domain.Log, error)
	ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Log, int64, error)
	ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error)
}

// UserCreator creates users at the identity provider. *idp.Client satisfies it.
type UserCreator interface {
	CreateUser(ctx context.Context, u domain.NewUser) (json.RawMessage, error)
}

// OriginReloader rebuilds the allowed-origin snapshot. *origin.Trigger
// satisfies it.
type OriginReloader interface {
	Refresh(ctx context.Context) error
}

// OriginLister exposes the current allowed-origin snapshot.
// *origin.Authorizer satisfies it.
type OriginLister interface {
	Origins() []string
}

// Server holds the dependencies of every handler.
type Server struct {
	projects ProjectServicer
	logs     LogServicer
	users    UserCreator
	reloader OriginReloader
	origins  OriginLister
	admins   map[string]struct{}
	reloads  *rate.Limiter
	openAPI  []byte
	validate *validator.Validate
	logger   *slog.Logger
}

// Deps lists the Server's collaborators. Users and Reloader may be nil, in
// which case their routes answer 503.
type Deps struct {
	Projects ProjectServicer
	Logs     LogServicer
	Users    UserCreator
	Reloader OriginReloader
	Origins  OriginLister

	// Admins are the identity subjects allowed on /api/admin routes.
	Admins []string
	// ReloadLimiter throttles manual origin reloads. Nil means unlimited.
	ReloadLimiter *rate.Limiter

	OpenAPI []byte
	Logger  *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	admins := make(map[string]struct{}, len(d.Admins))
	for _, sub := range d.Admins {
		admins[sub] = struct{}{}
	}

	return &Server{
		projects: d.Projects,
		logs:     d.Logs,
		users:    d.Users,
		reloader: d.Reloader,
		origins:  d.Origins,
		admins:   admins,
		reloads:  d.ReloadLimiter,
		openAPI:  d.OpenAPI,
		validate: validate,
		logger:   logger.With("component", "handler"),
	}
}

// Routes registers every endpoint on r. requireAuth guards the routes that
// need a verified identity.
func (s *Server) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Post("/log", s.CreateLog)
		r.Post("/addUser", s.AddUser)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/addProject", s.AddProject)
			r.Put("/projects/{id}/origins", s.UpdateProjectOrigins)
			r.Get("/myProjects", s.ListMyProjects)
			r.Get("/allProjects", s.ListAllProjects)
			r.Get("/myLogs", s.ListMyLogs)
			r.Get("/allLogs", s.ListAllLogs)
			r.Post("/admin/origins/reload", s.ReloadOrigins)
		})
	})
}
