package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/loggerapp/logger-api/internal/auth"
	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/handler"
	"github.com/loggerapp/logger-api/internal/service"
)

// ---- mock services ---------------------------------------------------------

// mockProjectServicer is a test double for handler.ProjectServicer.
// Set only the method fields your test needs.
type mockProjectServicer struct {
	create        func(ctx context.Context, owner domain.Identity, name string, origins []string) (domain.Project, error)
	listMine      func(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Project, int64, error)
	listAll       func(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error)
	updateOrigins func(ctx context.Context, owner domain.Identity, id uuid.UUID, origins []string) (domain.Project, error)
}

func (m *mockProjectServicer) Create(ctx context.Context, owner domain.Identity, name string, origins []string) (domain.Project, error) {
	return m.create(ctx, owner, name, origins)
}
func (m *mockProjectServicer) ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Project, int64, error) {
	return m.listMine(ctx, owner, p)
}
func (m *mockProjectServicer) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error) {
	return m.listAll(ctx, p)
}
func (m *mockProjectServicer) UpdateOrigins(ctx context.Context, owner domain.Identity, id uuid.UUID, origins []string) (domain.Project, error) {
	return m.updateOrigins(ctx, owner, id, origins)
}

// compile-time check: mockProjectServicer must satisfy handler.ProjectServicer.
var _ handler.ProjectServicer = (*mockProjectServicer)(nil)

// mockLogServicer is a test double for handler.LogServicer.
type mockLogServicer struct {
	ingest   func(ctx context.Context, req service.IngestRequest) (domain.Log, error)
	listMine func(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Log, int64, error)
	listAll  func(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error)
}

func (m *mockLogServicer) Ingest(ctx context.Context, req service.IngestRequest) (domain.Log, error) {
	return m.ingest(ctx, req)
}
func (m *mockLogServicer) ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Log, int64, error) {
	return m.listMine(ctx, owner, p)
}
func (m *mockLogServicer) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error) {
	return m.listAll(ctx, p)
}

var _ handler.LogServicer = (*mockLogServicer)(nil)

// mockUserCreator is a test double for handler.UserCreator.
type mockUserCreator struct {
	createUser func(ctx context.Context, u domain.NewUser) (json.RawMessage, error)
}

func (m *mockUserCreator) CreateUser(ctx context.Context, u domain.NewUser) (json.RawMessage, error) {
	return m.createUser(ctx, u)
}

var _ handler.UserCreator = (*mockUserCreator)(nil)

// mockReloader is a test double for handler.OriginReloader and
// handler.OriginLister.
type mockReloader struct {
	refresh func(ctx context.Context) error
	origins []string
}

func (m *mockReloader) Refresh(ctx context.Context) error { return m.refresh(ctx) }
func (m *mockReloader) Origins() []string                 { return m.origins }

var (
	_ handler.OriginReloader = (*mockReloader)(nil)
	_ handler.OriginLister   = (*mockReloader)(nil)
)

// ---- helpers ---------------------------------------------------------------

var alice = domain.Identity{Subject: "auth0|alice", Username: "alice", Email: "alice@example.com"}

// fakeAuth stands in for the bearer-token middleware: "Bearer alice" is
// accepted, anything else is 401.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), alice)))
	})
}

// newRouter wires a Server into a chi router the same way newApp does.
func newRouter(d handler.Deps) http.Handler {
	d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	handler.NewServer(d).Routes(r, fakeAuth)
	return r
}

// do sends a request through h. A non-nil body is JSON-encoded unless it is
// already a string.
func do(t *testing.T, h http.Handler, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var asAlice = map[string]string{"Authorization": "Bearer alice"}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
