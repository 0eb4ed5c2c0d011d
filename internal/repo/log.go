package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/loggerapp/logger-api/internal/domain"
)

// LogRepo defines the persistence operations for ingested Logs.
type LogRepo interface {
	// Create inserts a log entry for an existing project and returns it with
	// id and created_at populated. Returns domain.ErrNotFound if the project
	// no longer exists.
	Create(ctx context.Context, l domain.Log) (domain.Log, error)

	// ListByOwner returns one page of logs from projects owned by ownerID,
	// newest first, with ProjectName populated, plus the total count.
	ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Log, int64, error)

	// ListAll returns one page of logs across all projects, newest first.
	ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error)
}

// pgLogRepo is the Postgres implementation of LogRepo.
type pgLogRepo struct {
	db db
}

// NewLogRepo constructs a LogRepo backed by the provided db connection.
func NewLogRepo(db db) LogRepo {
	return &pgLogRepo{db: db}
}

// Create inserts a new log row. The project name is filled from the same
// statement so the returned value matches what the list endpoints show.
func (r *pgLogRepo) Create(ctx context.Context, l domain.Log) (domain.Log, error) {
	const q = `
		WITH inserted AS (
			INSERT INTO logs (project_id, message, severity_level)
			VALUES (@project_id, @message, @severity_level)
			RETURNING id, project_id, message, severity_level, created_at
		)
		SELECT i.id, i.project_id, p.name, i.message, i.severity_level, i.created_at
		FROM inserted i
		JOIN projects p ON p.id = i.project_id`

	args := pgx.NamedArgs{
		"project_id":     l.ProjectID,
		"message":        l.Message,
		"severity_level": l.SeverityLevel,
	}

	result, err := scanLog(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Log{}, fmt.Errorf("repo.LogRepo.Create: project: %w", domain.ErrNotFound)
		}
		return domain.Log{}, fmt.Errorf("repo.LogRepo.Create: %w", err)
	}
	return result, nil
}

// ListByOwner joins logs to their project to filter by owner.
func (r *pgLogRepo) ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Log, int64, error) {
	const q = `
		SELECT l.id, l.project_id, p.name, l.message, l.severity_level, l.created_at
		FROM logs l
		JOIN projects p ON p.id = l.project_id
		WHERE p.owner_id = @owner_id
		ORDER BY l.created_at DESC, l.id
		LIMIT @limit OFFSET @offset`
	const countQ = `
		SELECT COUNT(*)
		FROM logs l
		JOIN projects p ON p.id = l.project_id
		WHERE p.owner_id = @owner_id`

	args := pgx.NamedArgs{"owner_id": ownerID, "limit": p.Limit, "offset": p.Offset()}
	logs, err := r.list(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListByOwner: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"owner_id": ownerID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListByOwner: count: %w", err)
	}
	return logs, total, nil
}

// ListAll returns logs from every project.
func (r *pgLogRepo) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Log, int64, error) {
	const q = `
		SELECT l.id, l.project_id, p.name, l.message, l.severity_level, l.created_at
		FROM logs l
		JOIN projects p ON p.id = l.project_id
		ORDER BY l.created_at DESC, l.id
		LIMIT @limit OFFSET @offset`

	logs, err := r.list(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListAll: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.LogRepo.ListAll: count: %w", err)
	}
	return logs, total, nil
}

func (r *pgLogRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Log, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return logs, nil
}

// scanLog maps a single database row into a domain.Log.
func scanLog(s scanner) (domain.Log, error) {
	var (
		l       domain.Log
		id, pid pgtype.UUID
	)
	if err := s.Scan(&id, &pid, &l.ProjectName, &l.Message, &l.SeverityLevel, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Log{}, domain.ErrNotFound
		}
		return domain.Log{}, err
	}
	l.ID = uuid.UUID(id.Bytes)
	l.ProjectID = uuid.UUID(pid.Bytes)
	return l, nil
}
