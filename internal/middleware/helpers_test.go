package middleware_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/origin"
)

// projectOriginStore is a single-project origin.Store.
type projectOriginStore struct {
	origins []string
}

func (s *projectOriginStore) ListAllProjectOrigins(context.Context) ([]domain.ProjectOrigins, error) {
	return []domain.ProjectOrigins{{ProjectID: uuid.New(), Origins: s.origins}}, nil
}

func (s *projectOriginStore) FindProjectByOrigin(context.Context, string) (domain.Project, error) {
	return domain.Project{}, domain.ErrNotFound
}

var _ origin.Store = (*projectOriginStore)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
