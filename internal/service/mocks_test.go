package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/repo"
	"github.com/loggerapp/logger-api/internal/service"
)

// ---- mock repos ------------------------------------------------------------

// mockProjectRepo is a hand-written test double for repo.ProjectRepo.
type mockProjectRepo struct {
	create                func(ctx context.Context, p domain.Project) (domain.Project, error)
	getByID               func(ctx context.Context, id uuid.UUID) (domain.Project, error)
	getByAPIKey           func(ctx context.Context, apiKey string) (domain.Project, error)
	listByOwner           func(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Project, int64, error)
	listAll               func(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error)
	updateOrigins         func(ctx context.Context, id uuid.UUID, origins []string) (domain.Project, error)
	listAllProjectOrigins func(ctx context.Context) ([]domain.ProjectOrigins, error)
	findProjectByOrigin   func(ctx context.Context, origin string) (domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	return m.create(ctx, p)
}
func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	return m.getByID(ctx, id)
}
func (m *mockProjectRepo) GetByAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	return m.getByAPIKey(ctx, apiKey)
}
func (m *mockProjectRepo) ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Project, int64, error) {
	return m.listByOwner(ctx, ownerID, p)
}
func (m *mockProjectRepo) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error) {
	return m.listAll(ctx, p)
}
func (m *mockProjectRepo) UpdateOrigins(ctx context.Context, id uuid.UUID, origins []string) (domain.Project, error) {
	return m.updateOrigins(ctx, id, origins)
}
func (m *mockProjectRepo) ListAllProjectOrigins(ctx context.Context) ([]domain.ProjectOrigins, error) {
	return m.listAllProjectOrigins(ctx)
}
func (m *mockProjectRepo) FindProjectByOrigin(ctx context.Context, origin string) (domain.Project, error) {
	return m.findProjectByOrigin(ctx, origin)
}

// compile-time check: mockProjectRepo must satisfy repo.ProjectRepo.
var _ repo.ProjectRepo = (*mockProjectRepo)(nil)

// mockLogRepo is a hand-written test double for repo.LogRepo.
type mockLogRepo struct {
	create      func(ctx context.Context, l domain.Log) (domain.Log, error)
	listByOwner func(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Log, int64, error)
	listAll     func(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error)
}

func (m *mockLogRepo) Create(ctx context.Context, l domain.Log) (domain.Log, error) {
	return m.create(ctx, l)
}
func (m *mockLogRepo) ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Log, int64, error) {
	return m.listByOwner(ctx, ownerID, p)
}
func (m *mockLogRepo) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error) {
	return m.listAll(ctx, p)
}

var _ repo.LogRepo = (*mockLogRepo)(nil)

// mockRefresher counts Refresh calls and returns err.
type mockRefresher struct {
	calls atomic.Int32
	err   error
}

func (m *mockRefresher) Refresh(ctx context.Context) error {
	m.calls.Add(1)
	return m.err
}

var _ service.OriginRefresher = (*mockRefresher)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
