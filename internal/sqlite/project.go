package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/agencyops/internal/domain/project"
	"github.com/rpggio/agencyops/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, client_id, name, description, status, is_retainer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		proj.ID,
		proj.ClientID,
		proj.Name,
		proj.Description,
		proj.Status,
		proj.IsRetainer,
		proj.CreatedAt.UTC(),
	)
	return translate(err, "create project")
}

// Get retrieves a live project by ID with its members
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	f := live("").add("id = ?", id)
	query := `SELECT id, client_id, name, description, status, is_retainer, created_at FROM projects` + f.where()

	var proj project.Project
	err := r.db.QueryRowContext(ctx, query, f.args...).Scan(
		&proj.ID,
		&proj.ClientID,
		&proj.Name,
		&proj.Description,
		&proj.Status,
		&proj.IsRetainer,
		&proj.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project members: %w", err)
	}
	defer rows.Close()

	proj.Members = []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		proj.Members = append(proj.Members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return &proj, nil
}

// List returns live projects with task counts
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	f := live("p")
	if opts.ClientID != "" {
		f.add("p.client_id = ?", opts.ClientID)
	}
	if opts.MemberID != "" {
		f.add("p.id IN (SELECT project_id FROM project_members WHERE user_id = ?)", opts.MemberID)
	}

	query := `
		SELECT
			p.id,
			p.client_id,
			p.name,
			p.status,
			p.is_retainer,
			p.created_at,
			COUNT(t.id) AS task_count,
			COUNT(CASE WHEN t.status NOT IN ('done', 'abandoned') THEN t.id END) AS open_tasks
		FROM projects p
		LEFT JOIN tasks t ON t.project_id = p.id AND t.is_deleted = 0` + f.where() + `
		GROUP BY p.id, p.client_id, p.name, p.status, p.is_retainer, p.created_at
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	summaries := []project.Summary{}
	for rows.Next() {
		var summary project.Summary
		err := rows.Scan(
			&summary.ID,
			&summary.ClientID,
			&summary.Name,
			&summary.Status,
			&summary.IsRetainer,
			&summary.CreatedAt,
			&summary.TaskCount,
			&summary.OpenTasks,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return summaries, nil
}

// AddMember adds a user to a project team. Adding an existing member is a no-op.
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)`, projectID, userID)
	return translate(err, "add project member")
}

// IsMember reports whether the user belongs to the project team
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}
