package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loggerapp/logger-api/internal/domain"
	"github.com/loggerapp/logger-api/internal/repo"
)

// LogService implements log ingestion and retrieval.
type LogService struct {
	projects repo.ProjectRepo
	logs     repo.LogRepo
}

// NewLogService constructs a LogService backed by the provided repos.
func NewLogService(projects repo.ProjectRepo, logs repo.LogRepo) *LogService {
	return &LogService{projects: projects, logs: logs}
}

// IngestRequest is one log entry submitted by a client application.
// Origin is the request's Origin header, empty when absent.
type IngestRequest struct {
	APIKey        string
	Origin        string
	Message       string
	SeverityLevel string
}

// Ingest stores a log entry for the project identified by the API key.
// Returns domain.ErrValidation if the origin or message is missing,
// domain.ErrInvalidAPIKey if no project carries the key, and
// domain.ErrOriginNotAllowed if the origin is not registered on that project.
func (s *LogService) Ingest(ctx context.Context, req IngestRequest) (domain.Log, error) {
	if req.Origin == "" {
		return domain.Log{}, fmt.Errorf("%w: origin header is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.Log{}, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	project, err := s.projects.GetByAPIKey(ctx, req.APIKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Log{}, fmt.Errorf("service.LogService.Ingest: %w", domain.ErrInvalidAPIKey)
		}
		return domain.Log{}, fmt.Errorf("service.LogService.Ingest: %w", err)
	}
	if !project.HasOrigin(req.Origin) {
		return domain.Log{}, fmt.Errorf("service.LogService.Ingest: %w", domain.ErrOriginNotAllowed)
	}

	created, err := s.logs.Create(ctx, domain.Log{
		ProjectID:     project.ID,
		Message:       req.Message,
		SeverityLevel: req.SeverityLevel,
	})
	if err != nil {
		return domain.Log{}, fmt.Errorf("service.LogService.Ingest: %w", err)
	}
	return created, nil
}

// ListMine returns one page of logs from the projects owned by owner.
func (s *LogService) ListMine(ctx context.Context, owner domain.Identity, p domain.PaginationParams) ([]domain.Log, int64, error) {
	logs, total, err := s.logs.ListByOwner(ctx, owner.Subject, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.LogService.ListMine: %w", err)
	}
	if logs == nil {
		logs = []domain.Log{}
	}
	return logs, total, nil
}

// ListAll returns one page of logs across every project.
func (s *LogService) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error) {
	logs, total, err := s.logs.ListAll(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.LogService.ListAll: %w", err)
	}
	if logs == nil {
		logs = []domain.Log{}
	}
	return logs, total, nil
}
