// Package service contains the business logic for the Logger API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/origin"
	"github.com/loggerapp/logger-api/internal/repo"
)

// OriginRefresher reloads the allowed-origin snapshot after project origins
// change. origin.Trigger satisfies it.
type OriginRefresher interface {
	Refresh(ctx context.Context) error
}

// apiKeyBytes is the amount of randomness in a project API key (32 hex chars).
const apiKeyBytes = 16

// ProjectService implements business logic for Project operations.
type ProjectService struct {
	projects  repo.ProjectRepo
	refresher OriginRefresher
	logger    *slog.Logger
}

// NewProjectService constructs a ProjectService. refresher may be nil, in
// which case origin changes are picked up by the next scheduled reload.
func NewProjectService(projects repo.ProjectRepo, refresher OriginRefresher, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		projects:  projects,
		refresher: refresher,
		logger:    logger.With("component", "service.project"),
	}
}

// Create validates the input, generates an API key, and persists a project
// owned by owner. The allowed-origin snapshot is refreshed afterwards; a
// refresh failure is logged and does not fail the request.
// Returns domain.ErrValidation if the name is blank or any origin is malformed.
func (s *ProjectService) Create(ctx context.Context, owner domain.Identity, name string, origins []string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	origins, err := normalizeOrigins(origins)
	if err != nil {
		return domain.Project{}, err
	}

	key, err := newAPIKey()
	if err != nil {
		return domain.Project{}, fmt.Errorf("service.ProjectService.Create: %w", err)
	}

	created, err := s.projects.Create(ctx, domain.Project{
		Name:          name,
		Origins:       origins,
		OwnerID:       owner.Subject,
		OwnerUsername: owner.Username,
		OwnerEmail:    owner.Email,
		APIKey:        key,
	})
	if err != nil {
		return domain.Project{}, fmt.Errorf("service.ProjectService.Create: %w", err)
	}

	s.refreshOrigins(ctx)
	return created, nil
}

// ListMine returns one page of the projects owned by owner, newest first.
func (s *ProjectService) ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Project, int64, error) {
	projects, total, err := s.projects.ListByOwner(ctx, owner.Subject, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ProjectService.ListMine: %w", err)
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, total, nil
}

// ListAll returns one page of every project, newest first.
func (s *ProjectService) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error) {
	projects, total, err := s.projects.ListAll(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ProjectService.ListAll: %w", err)
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, total, nil
}

// UpdateOrigins replaces the origin list of a project owned by owner and
// refreshes the allowed-origin snapshot.
// Returns domain.ErrNotFound if the project does not exist,
// domain.ErrForbidden if owner does not own it, and domain.ErrValidation if
// any origin is malformed.
func (s *ProjectService) UpdateOrigins(ctx context.Context, owner domain.Identity, id uuid.UUID, origins []string) (domain.Project, error) {
	origins, err := normalizeOrigins(origins)
	if err != nil {
		return domain.Project{}, err
	}

	current, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return domain.Project{}, fmt.Errorf("service.ProjectService.UpdateOrigins: %w", err)
	}
	if current.OwnerID != owner.Subject {
		return domain.Project{}, fmt.Errorf("service.ProjectService.UpdateOrigins: %w", domain.ErrForbidden)
	}

	updated, err := s.projects.UpdateOrigins(ctx, id, origins)
	if err != nil {
		return domain.Project{}, fmt.Errorf("service.ProjectService.UpdateOrigins: %w", err)
	}

	s.refreshOrigins(ctx)
	return updated, nil
}

func (s *ProjectService) refreshOrigins(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("origin refresh after project change failed", "error", err)
	}
}

// normalizeOrigins validates every origin and drops duplicates, keeping the
// first occurrence. A nil input yields an empty slice.
func normalizeOrigins(origins []string) ([]string, error) {
	out := make([]string, 0, len(origins))
	seen := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if err := origin.ValidateOrigin(o); err != nil {
			return nil, fmt.Errorf("%w: invalid origin %q", domain.ErrValidation, o)
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out, nil
}

func newAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
