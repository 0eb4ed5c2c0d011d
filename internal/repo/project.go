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

// ProjectRepo defines the persistence operations for Projects.
// It also satisfies origin.Store, which reads origins for CORS decisions.
type ProjectRepo interface {
	// Create inserts a new project and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	// Returns domain.ErrValidation if the API key collides with an existing one.
	Create(ctx context.Context, p domain.Project) (domain.Project, error)

	// GetByID retrieves a single project by its UUID primary key.
	// Returns domain.ErrNotFound if no project with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error)

	// GetByAPIKey retrieves the project owning apiKey.
	// Returns domain.ErrNotFound if no project carries that key.
	GetByAPIKey(ctx context.Context, apiKey string) (domain.Project, error)

	// ListByOwner returns one page of the owner's projects, newest first,
	// and the owner's total project count.
	ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Project, int64, error)

	// ListAll returns one page of all projects, newest first, and the total count.
	ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error)

	// UpdateOrigins replaces the origin list of a project.
	// Returns domain.ErrNotFound if no project with that ID exists.
	UpdateOrigins(ctx context.Context, id uuid.UUID, origins []string) (domain.Project, error)

	// ListAllProjectOrigins returns the origin list of every project.
	ListAllProjectOrigins(ctx context.Context) ([]domain.ProjectOrigins, error)

	// FindProjectByOrigin returns a project whose origin list contains origin
	// exactly. Returns domain.ErrNotFound if none does.
	FindProjectByOrigin(ctx context.Context, origin string) (domain.Project, error)
}

// pgProjectRepo is the Postgres implementation of ProjectRepo.
type pgProjectRepo struct {
	db db
}

// NewProjectRepo constructs a ProjectRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewProjectRepo(db db) ProjectRepo {
	return &pgProjectRepo{db: db}
}

const projectColumns = `id, name, origins, owner_id, owner_username, owner_email, api_key, created_at, updated_at`

// Create inserts a new project row and returns the full persisted record.
func (r *pgProjectRepo) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	const q = `
		INSERT INTO projects (name, origins, owner_id, owner_username, owner_email, api_key)
		VALUES (@name, @origins, @owner_id, @owner_username, @owner_email, @api_key)
		RETURNING ` + projectColumns

	args := pgx.NamedArgs{
		"name":           p.Name,
		"origins":        nonNil(p.Origins),
		"owner_id":       p.OwnerID,
		"owner_username": p.OwnerUsername,
		"owner_email":    p.OwnerEmail,
		"api_key":        p.APIKey,
	}

	result, err := scanProject(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Project{}, fmt.Errorf("repo.ProjectRepo.Create: %w: api key already in use", domain.ErrValidation)
		}
		return domain.Project{}, fmt.Errorf("repo.ProjectRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a project by primary key.
func (r *pgProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id = @id`

	result, err := scanProject(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Project{}, fmt.Errorf("repo.ProjectRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByAPIKey retrieves a project by its unique API key.
func (r *pgProjectRepo) GetByAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE api_key = @api_key`

	result, err := scanProject(r.db.QueryRow(ctx, q, pgx.NamedArgs{"api_key": apiKey}))
	if err != nil {
		return domain.Project{}, fmt.Errorf("repo.ProjectRepo.GetByAPIKey: %w", err)
	}
	return result, nil
}

// ListByOwner returns the owner's projects ordered by created_at descending.
// COUNT(*) OVER () yields the total before LIMIT/OFFSET in the same query.
func (r *pgProjectRepo) ListByOwner(ctx context.Context, ownerID string, p domain.PaginationParams) ([]domain.Project, int64, error) {
	q := `
		SELECT ` + projectColumns + `, COUNT(*) OVER () AS total
		FROM projects
		WHERE owner_id = @owner_id
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{"owner_id": ownerID, "limit": p.Limit, "offset": p.Offset()}
	projects, total, err := r.listPaged(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ProjectRepo.ListByOwner: %w", err)
	}
	if len(projects) == 0 {
		// The window count is unavailable on an empty page.
		total, err = r.count(ctx, `SELECT COUNT(*) FROM projects WHERE owner_id = @owner_id`, pgx.NamedArgs{"owner_id": ownerID})
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ProjectRepo.ListByOwner: count: %w", err)
		}
	}
	return projects, total, nil
}

// ListAll returns all projects ordered by created_at descending.
func (r *pgProjectRepo) ListAll(ctx context.Context, p domain.PaginationParams) ([]domain.Project, int64, error) {
	q := `
		SELECT ` + projectColumns + `, COUNT(*) OVER () AS total
		FROM projects
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	projects, total, err := r.listPaged(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ProjectRepo.ListAll: %w", err)
	}
	if len(projects) == 0 {
		total, err = r.count(ctx, `SELECT COUNT(*) FROM projects`, pgx.NamedArgs{})
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ProjectRepo.ListAll: count: %w", err)
		}
	}
	return projects, total, nil
}

// UpdateOrigins overwrites a project's origins and bumps updated_at.
func (r *pgProjectRepo) UpdateOrigins(ctx context.Context, id uuid.UUID, origins []string) (domain.Project, error) {
	const q = `
		UPDATE projects
		SET origins    = @origins,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + projectColumns

	result, err := scanProject(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "origins": nonNil(origins)}))
	if err != nil {
		return domain.Project{}, fmt.Errorf("repo.ProjectRepo.UpdateOrigins: %w", err)
	}
	return result, nil
}

// ListAllProjectOrigins reads only the id and origins columns of every project.
func (r *pgProjectRepo) ListAllProjectOrigins(ctx context.Context) ([]domain.ProjectOrigins, error) {
	const q = `SELECT id, origins FROM projects`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ProjectRepo.ListAllProjectOrigins: %w", err)
	}
	defer rows.Close()

	out := []domain.ProjectOrigins{}
	for rows.Next() {
		var (
			id      pgtype.UUID
			origins []string
		)
		if err := rows.Scan(&id, &origins); err != nil {
			return nil, fmt.Errorf("repo.ProjectRepo.ListAllProjectOrigins: scan: %w", err)
		}
		out = append(out, domain.ProjectOrigins{ProjectID: uuid.UUID(id.Bytes), Origins: origins})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ProjectRepo.ListAllProjectOrigins: rows: %w", err)
	}
	return out, nil
}

// FindProjectByOrigin uses array containment so the GIN index on origins
// serves the lookup.
func (r *pgProjectRepo) FindProjectByOrigin(ctx context.Context, origin string) (domain.Project, error) {
	q := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE origins @> ARRAY[@origin::text]
		LIMIT 1`

	result, err := scanProject(r.db.QueryRow(ctx, q, pgx.NamedArgs{"origin": origin}))
	if err != nil {
		return domain.Project{}, fmt.Errorf("repo.ProjectRepo.FindProjectByOrigin: %w", err)
	}
	return result, nil
}

func (r *pgProjectRepo) listPaged(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Project, int64, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		projects = []domain.Project{}
		total    int64
	)
	for rows.Next() {
		p, err := scanProjectWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}
	return projects, total, nil
}

func (r *pgProjectRepo) count(ctx context.Context, q string, args pgx.NamedArgs) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, q, args).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// scanProject maps a single database row into a domain.Project.
func scanProject(s scanner) (domain.Project, error) {
	return scanProjectWithTotal(s, nil)
}

// scanProjectWithTotal also scans a trailing window-count column into total
// when total is non-nil.
func scanProjectWithTotal(s scanner, total *int64) (domain.Project, error) {
	var (
		p  domain.Project
		id pgtype.UUID
	)
	dest := []any{&id, &p.Name, &p.Origins, &p.OwnerID, &p.OwnerUsername, &p.OwnerEmail, &p.APIKey, &p.CreatedAt, &p.UpdatedAt}
	if total != nil {
		dest = append(dest, total)
	}

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	if p.Origins == nil {
		p.Origins = []string{}
	}
	return p, nil
}

// nonNil turns a nil slice into an empty one so Postgres stores '{}' rather
// than NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
