package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/task"
	"github.com/rpggio/agencyops/internal/repository"
)

// TaskRepository implements task.Repository for SQLite
type TaskRepository struct {
	db *DB
	q  querier
	tx bool
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, q: db}
}

const taskColumns = `
	t.id, t.title, t.description, t.status, t.priority, t.is_focus,
	t.project_id, t.client_id, t.site_id, t.assignee_id,
	t.is_billable, t.is_retainer_work, t.is_support, t.billing_amount, t.billing_target,
	t.energy_estimate, t.mystery_factor, t.battery_impact, t.estimated_minutes,
	t.notes, t.requirements, t.invoiced,
	t.started_at, t.completed_at, t.due_date, t.created_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*task.Task, error) {
	var t task.Task
	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.IsFocus,
		&t.ProjectID, &t.ClientID, &t.SiteID, &t.AssigneeID,
		&t.IsBillable, &t.IsRetainerWork, &t.IsSupport, &t.BillingAmount, &t.BillingTarget,
		&t.EnergyEstimate, &t.MysteryFactor, &t.BatteryImpact, &t.EstimatedMinutes,
		&t.Notes, &t.Requirements, &t.Invoiced,
		&t.StartedAt, &t.CompletedAt, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (
			id, title, description, status, priority, is_focus,
			project_id, client_id, site_id, assignee_id,
			is_billable, is_retainer_work, is_support, billing_amount, billing_target,
			energy_estimate, mystery_factor, battery_impact, estimated_minutes,
			notes, requirements, invoiced,
			started_at, completed_at, due_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.q.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.IsFocus,
		t.ProjectID, t.ClientID, t.SiteID, t.AssigneeID,
		t.IsBillable, t.IsRetainerWork, t.IsSupport, t.BillingAmount, t.BillingTarget,
		t.EnergyEstimate, t.MysteryFactor, t.BatteryImpact, t.EstimatedMinutes,
		t.Notes, t.Requirements, t.Invoiced,
		utc(t.StartedAt), utc(t.CompletedAt), utc(t.DueDate), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return translate(err, "create task")
}

// Get retrieves a live task with its dependency references
func (r *TaskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	f := live("t").add("t.id = ?", id)
	t, err := scanTask(r.q.QueryRowContext(ctx, "SELECT"+taskColumns+" FROM tasks t"+f.where(), f.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if t.BlockedBy, err = r.refs(ctx, `
		SELECT b.id, b.title, b.status FROM task_dependencies d
		JOIN tasks b ON b.id = d.blocker_id AND b.is_deleted = 0
		WHERE d.task_id = ? ORDER BY b.created_at, b.id`, id); err != nil {
		return nil, err
	}
	if t.Blocking, err = r.refs(ctx, `
		SELECT t.id, t.title, t.status FROM task_dependencies d
		JOIN tasks t ON t.id = d.task_id AND t.is_deleted = 0
		WHERE d.blocker_id = ? ORDER BY t.created_at, t.id`, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) refs(ctx context.Context, query, id string) ([]task.Ref, error) {
	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task references: %w", err)
	}
	defer rows.Close()

	refs := []task.Ref{}
	for rows.Next() {
		var ref task.Ref
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Status); err != nil {
			return nil, fmt.Errorf("failed to scan task reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// List returns live tasks matching opts, most urgent first
func (r *TaskRepository) List(ctx context.Context, opts task.ListOptions) ([]task.Task, error) {
	f := live("t")
	if opts.ProjectID != "" {
		f.add("t.project_id = ?", opts.ProjectID)
	}
	if opts.ClientID != "" {
		f.add("(t.client_id = ? OR t.project_id IN (SELECT id FROM projects WHERE client_id = ?))", opts.ClientID, opts.ClientID)
	}
	if opts.AssigneeID != "" {
		f.add("t.assignee_id = ?", opts.AssigneeID)
	}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		f.in("t.status", statuses)
	}
	if opts.VisibleTo != "" {
		f.add(`((t.project_id IS NULL AND t.assignee_id = ?)
			OR t.project_id IN (SELECT project_id FROM project_members WHERE user_id = ?))`,
			opts.VisibleTo, opts.VisibleTo)
	}

	query := "SELECT" + taskColumns + " FROM tasks t" + f.where() +
		" ORDER BY t.priority ASC, t.due_date IS NULL, t.due_date ASC, t.created_at ASC"
	query, args := page(query, f.args, opts.Limit, opts.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Update writes every mutable column of a live task
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	query := `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, priority = ?, is_focus = ?,
			assignee_id = ?, is_billable = ?, is_retainer_work = ?, is_support = ?,
			billing_amount = ?, billing_target = ?, energy_estimate = ?, mystery_factor = ?,
			battery_impact = ?, estimated_minutes = ?, notes = ?, requirements = ?, invoiced = ?,
			started_at = ?, completed_at = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`
	res, err := r.q.ExecContext(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.IsFocus,
		t.AssigneeID, t.IsBillable, t.IsRetainerWork, t.IsSupport,
		t.BillingAmount, t.BillingTarget, t.EnergyEstimate, t.MysteryFactor,
		t.BatteryImpact, t.EstimatedMinutes, t.Notes, t.Requirements, t.Invoiced,
		utc(t.StartedAt), utc(t.CompletedAt), utc(t.DueDate), t.UpdatedAt.UTC(),
		t.ID,
	)
	return expectOne(res, err, "update task")
}

// SoftDelete marks a task deleted
func (r *TaskRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return softDelete(ctx, r.q, "tasks", id, at)
}

// ListDependents returns the live tasks blocked by blockerID, each with its
// live blockers that are not done.
func (r *TaskRepository) ListDependents(ctx context.Context, blockerID string) ([]task.Dependent, error) {
	query := `
		SELECT t.id, t.status, b.id
		FROM task_dependencies d
		JOIN tasks t ON t.id = d.task_id AND t.is_deleted = 0
		LEFT JOIN task_dependencies d2 ON d2.task_id = t.id
		LEFT JOIN tasks b ON b.id = d2.blocker_id AND b.is_deleted = 0 AND b.status <> 'done'
		WHERE d.blocker_id = ?
		ORDER BY t.created_at, t.id
	`
	rows, err := r.q.QueryContext(ctx, query, blockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependents: %w", err)
	}
	defer rows.Close()

	var deps []task.Dependent
	index := map[string]int{}
	for rows.Next() {
		var (
			id      string
			status  task.Status
			blocker sql.NullString
		)
		if err := rows.Scan(&id, &status, &blocker); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		i, ok := index[id]
		if !ok {
			i = len(deps)
			index[id] = i
			deps = append(deps, task.Dependent{ID: id, Status: status})
		}
		if blocker.Valid {
			deps[i].IncompleteBlockers = append(deps[i].IncompleteBlockers, blocker.String)
		}
	}
	return deps, rows.Err()
}

// SetStatuses moves the listed live tasks to `to` when their current status
// is one of `from`.
func (r *TaskRepository) SetStatuses(ctx context.Context, ids []string, from []task.Status, to task.Status, at time.Time) (int64, error) {
	if len(ids) == 0 || len(from) == 0 {
		return 0, nil
	}
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	f := live("").in("id", ids).in("status", statuses)
	args := append([]any{to, at.UTC()}, f.args...)

	res, err := r.q.ExecContext(ctx, "UPDATE tasks SET status = ?, updated_at = ?"+f.where(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to set task statuses: %w", err)
	}
	return res.RowsAffected()
}

// AddDependency records that taskID is blocked by blockerID
func (r *TaskRepository) AddDependency(ctx context.Context, taskID, blockerID string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO task_dependencies (task_id, blocker_id, created_at) VALUES (?, ?, ?)`,
		taskID, blockerID, time.Now().UTC())
	return translate(err, "add dependency")
}

// RemoveDependency deletes the edge
func (r *TaskRepository) RemoveDependency(ctx context.Context, taskID, blockerID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ? AND blocker_id = ?`, taskID, blockerID)
	return expectOne(res, err, "remove dependency")
}

// BlockerIDs lists the live blockers of a task
func (r *TaskRepository) BlockerIDs(ctx context.Context, taskID string) ([]string, error) {
	return r.ids(ctx, `
		SELECT b.id FROM task_dependencies d
		JOIN tasks b ON b.id = d.blocker_id AND b.is_deleted = 0
		WHERE d.task_id = ?`, taskID)
}

// IncompleteBlockers lists the live blockers of a task that are not done
func (r *TaskRepository) IncompleteBlockers(ctx context.Context, taskID string) ([]string, error) {
	return r.ids(ctx, `
		SELECT b.id FROM task_dependencies d
		JOIN tasks b ON b.id = d.blocker_id AND b.is_deleted = 0
		WHERE d.task_id = ? AND b.status <> 'done'`, taskID)
}

func (r *TaskRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TimeSpent sums the minutes of live entries logged against a task
func (r *TaskRepository) TimeSpent(ctx context.Context, taskID string) (int, error) {
	var minutes int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration), 0) FROM time_entries WHERE task_id = ? AND is_deleted = 0`,
		taskID).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to sum time entries: %w", err)
	}
	return minutes, nil
}

// HourlyRate resolves the hourly rate of the task's client, through its
// project when it has one.
func (r *TaskRepository) HourlyRate(ctx context.Context, taskID string) (*float64, error) {
	var rate sql.NullFloat64
	err := r.q.QueryRowContext(ctx, `
		SELECT c.hourly_rate
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		LEFT JOIN clients c ON c.id = COALESCE(p.client_id, t.client_id)
		WHERE t.id = ? AND t.is_deleted = 0`, taskID).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hourly rate: %w", err)
	}
	if !rate.Valid {
		return nil, nil
	}
	return &rate.Float64, nil
}

// InTx runs fn against a repository bound to one transaction. Nested calls
// reuse the outer transaction.
func (r *TaskRepository) InTx(ctx context.Context, fn func(task.Repository) error) error {
	if r.tx {
		return fn(r)
	}
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&TaskRepository{db: r.db, q: tx, tx: true})
	})
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
