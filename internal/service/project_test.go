package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/service"
)

var alice = domain.Identity{Subject: "auth0|alice", Username: "alice", Email: "alice@example.com"}

func newProjectService(r *mockProjectRepo, ref *mockRefresher) *service.ProjectService {
	if ref == nil {
		return service.NewProjectService(r, nil, discardLogger())
	}
	return service.NewProjectService(r, ref, discardLogger())
}

// ---- Create ----------------------------------------------------------------

func TestProjectService_Create_OK(t *testing.T) {
	var stored domain.Project
	ref := &mockRefresher{}
	svc := newProjectService(&mockProjectRepo{
		create: func(_ context.Context, p domain.Project) (domain.Project, error) {
			stored = p
			p.ID = uuid.New()
			return p, nil
		},
	}, ref)

	got, err := svc.Create(context.Background(), alice, "  shop  ",
		[]string{"https://shop.example.com", "http://localhost:5173", "https://shop.example.com"})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "shop", stored.Name)
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:5173"}, stored.Origins, "duplicates dropped")
	assert.Equal(t, alice.Subject, stored.OwnerID)
	assert.Equal(t, alice.Username, stored.OwnerUsername)
	assert.Equal(t, alice.Email, stored.OwnerEmail)
	assert.Regexp(t, `^[0-9a-f]{32}$`, stored.APIKey)
	assert.Equal(t, int32(1), ref.calls.Load(), "origins refreshed after create")
}

func TestProjectService_Create_APIKeysDiffer(t *testing.T) {
	var keys []string
	svc := newProjectService(&mockProjectRepo{
		create: func(_ context.Context, p domain.Project) (domain.Project, error) {
			keys = append(keys, p.APIKey)
			return p, nil
		},
	}, nil)

	for range 2 {
		_, err := svc.Create(context.Background(), alice, "shop", nil)
		require.NoError(t, err)
	}
	assert.NotEqual(t, keys[0], keys[1])
}

func TestProjectService_Create_BlankName(t *testing.T) {
	svc := newProjectService(&mockProjectRepo{}, nil)

	_, err := svc.Create(context.Background(), alice, "   ", nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProjectService_Create_MalformedOrigin(t *testing.T) {
	ref := &mockRefresher{}
	svc := newProjectService(&mockProjectRepo{}, ref)

	for _, bad := range []string{"shop.example.com", "https://shop.example.com/", "ftp://shop.example.com", ""} {
		_, err := svc.Create(context.Background(), alice, "shop", []string{bad})
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
	assert.Zero(t, ref.calls.Load(), "nothing persisted, nothing refreshed")
}

func TestProjectService_Create_RefreshFailureIgnored(t *testing.T) {
	ref := &mockRefresher{err: errors.New("store unavailable")}
	svc := newProjectService(&mockProjectRepo{
		create: func(_ context.Context, p domain.Project) (domain.Project, error) { return p, nil },
	}, ref)

	_, err := svc.Create(context.Background(), alice, "shop", []string{"https://shop.example.com"})

	require.NoError(t, err)
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestProjectService_Create_RepoError(t *testing.T) {
	dbErr := errors.New("connection refused")
	ref := &mockRefresher{}
	svc := newProjectService(&mockProjectRepo{
		create: func(context.Context, domain.Project) (domain.Project, error) { return domain.Project{}, dbErr },
	}, ref)

	_, err := svc.Create(context.Background(), alice, "shop", nil)

	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, ref.calls.Load())
}

// ---- List ------------------------------------------------------------------

func TestProjectService_ListMine_ScopedToOwner(t *testing.T) {
	var gotOwner string
	svc := newProjectService(&mockProjectRepo{
		listByOwner: func(_ context.Context, ownerID string, p domain.PaginationParams) ([]domain.Project, int64, error) {
			gotOwner = ownerID
			return nil, 0, nil
		},
	}, nil)

	got, total, err := svc.ListMine(context.Background(), alice, domain.PaginationParams{Page: 1, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, alice.Subject, gotOwner)
	assert.NotNil(t, got, "nil from repo becomes empty slice")
	assert.Zero(t, total)
}

func TestProjectService_ListAll(t *testing.T) {
	want := []domain.Project{{ID: uuid.New()}, {ID: uuid.New()}}
	svc := newProjectService(&mockProjectRepo{
		listAll: func(context.Context, domain.PaginationParams) ([]domain.Project, int64, error) {
			return want, 12, nil
		},
	}, nil)

	got, total, err := svc.ListAll(context.Background(), domain.PaginationParams{Page: 1, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(12), total)
}

// ---- UpdateOrigins ---------------------------------------------------------

func TestProjectService_UpdateOrigins_OK(t *testing.T) {
	id := uuid.New()
	ref := &mockRefresher{}
	var stored []string
	svc := newProjectService(&mockProjectRepo{
		getByID: func(context.Context, uuid.UUID) (domain.Project, error) {
			return domain.Project{ID: id, OwnerID: alice.Subject}, nil
		},
		updateOrigins: func(_ context.Context, _ uuid.UUID, origins []string) (domain.Project, error) {
			stored = origins
			return domain.Project{ID: id, OwnerID: alice.Subject, Origins: origins}, nil
		},
	}, ref)

	got, err := svc.UpdateOrigins(context.Background(), alice, id,
		[]string{"https://a.example.com", "https://a.example.com", "https://b.example.com"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, stored)
	assert.Equal(t, stored, got.Origins)
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestProjectService_UpdateOrigins_NotOwner(t *testing.T) {
	ref := &mockRefresher{}
	svc := newProjectService(&mockProjectRepo{
		getByID: func(context.Context, uuid.UUID) (domain.Project, error) {
			return domain.Project{OwnerID: "auth0|mallory"}, nil
		},
	}, ref)

	_, err := svc.UpdateOrigins(context.Background(), alice, uuid.New(), []string{"https://a.example.com"})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, ref.calls.Load())
}

func TestProjectService_UpdateOrigins_NotFound(t *testing.T) {
	svc := newProjectService(&mockProjectRepo{
		getByID: func(context.Context, uuid.UUID) (domain.Project, error) {
			return domain.Project{}, domain.ErrNotFound
		},
	}, nil)

	_, err := svc.UpdateOrigins(context.Background(), alice, uuid.New(), nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_UpdateOrigins_MalformedOrigin(t *testing.T) {
	svc := newProjectService(&mockProjectRepo{}, nil)

	_, err := svc.UpdateOrigins(context.Background(), alice, uuid.New(), []string{"https://a.example.com/path"})

	assert.ErrorIs(t, err, domain.ErrValidation)
}
