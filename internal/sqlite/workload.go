package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/workload"
)

// WorkloadRepository implements workload.Repository for SQLite
type WorkloadRepository struct {
	db *DB
}

// NewWorkloadRepository creates a new WorkloadRepository
func NewWorkloadRepository(db *DB) *WorkloadRepository {
	return &WorkloadRepository{db: db}
}

// Entries returns finished live entries, newest first. The project falls back
// to the task's, and the client to the task's when there is no project.
func (r *WorkloadRepository) Entries(ctx context.Context, opts workload.EntryFilter) ([]workload.EntryRow, error) {
	f := live("te").add("te.is_running = 0")
	if opts.From != nil {
		f.add("te.started_at >= ?", opts.From.UTC())
	}
	if opts.To != nil {
		f.add("te.started_at <= ?", opts.To.UTC())
	}
	if opts.UserID != "" {
		f.add("te.user_id = ?", opts.UserID)
	}
	if opts.ProjectID != "" {
		f.add("p.id = ?", opts.ProjectID)
	}
	if opts.ClientID != "" {
		f.add("c.id = ?", opts.ClientID)
	}

	query := `
		SELECT te.id, te.user_id, u.name, te.task_id, t.title, p.id, p.name, c.id, c.name,
			te.description, te.started_at, te.ended_at, te.duration, te.is_billable
		FROM time_entries te
		JOIN users u ON u.id = te.user_id
		LEFT JOIN tasks t ON t.id = te.task_id
		LEFT JOIN projects p ON p.id = COALESCE(te.project_id, t.project_id)
		LEFT JOIN clients c ON c.id = COALESCE(p.client_id, t.client_id)` + f.where() + `
		ORDER BY te.started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load report entries: %w", err)
	}
	defer rows.Close()

	entries := []workload.EntryRow{}
	for rows.Next() {
		var e workload.EntryRow
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.TaskID, &e.TaskTitle, &e.ProjectID, &e.ProjectName,
			&e.ClientID, &e.ClientName, &e.Description, &e.StartedAt, &e.EndedAt, &e.Duration, &e.IsBillable); err != nil {
			return nil, fmt.Errorf("failed to scan report entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ActiveMembers returns active users ordered by name
func (r *WorkloadRepository) ActiveMembers(ctx context.Context) ([]workload.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_hours_per_week FROM users WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []workload.Member
	for rows.Next() {
		var m workload.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.TargetHoursPerWeek); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AssignedTasks returns live assigned tasks with their logged minutes
func (r *WorkloadRepository) AssignedTasks(ctx context.Context) ([]workload.AssignedTask, error) {
	f := live("t").add("t.assignee_id IS NOT NULL")
	query := `
		SELECT t.assignee_id, t.status, t.energy_estimate, t.mystery_factor, t.estimated_minutes,
			COALESCE((SELECT SUM(te.duration) FROM time_entries te WHERE te.task_id = t.id AND te.is_deleted = 0), 0)
		FROM tasks t` + f.where()

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned tasks: %w", err)
	}
	defer rows.Close()

	var tasks []workload.AssignedTask
	for rows.Next() {
		var t workload.AssignedTask
		if err := rows.Scan(&t.AssigneeID, &t.Status, &t.EnergyEstimate, &t.MysteryFactor, &t.EstimatedMinutes,
			&t.LoggedMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan assigned task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DueTasks returns live open assigned tasks due in [from, to]
func (r *WorkloadRepository) DueTasks(ctx context.Context, from, to time.Time) ([]workload.DueTask, error) {
	f := live("t").
		add("t.status NOT IN ('done', 'abandoned')").
		add("t.due_date >= ? AND t.due_date <= ?", from.UTC(), to.UTC())
	query := `
		SELECT t.id, t.title, t.assignee_id, u.name, t.due_date, p.name
		FROM tasks t
		JOIN users u ON u.id = t.assignee_id
		LEFT JOIN projects p ON p.id = t.project_id AND p.is_deleted = 0` + f.where() + `
		ORDER BY t.due_date, t.id`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []workload.DueTask
	for rows.Next() {
		var t workload.DueTask
		if err := rows.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.AssigneeName, &t.DueDate, &t.ProjectName); err != nil {
			return nil, fmt.Errorf("failed to scan due task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimDueNotice records a notice once per task, user and day.
func (r *WorkloadRepository) ClaimDueNotice(ctx context.Context, taskID, userID, day string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO task_due_notices (task_id, user_id, day, sent_at) VALUES (?, ?, ?, ?)`,
		taskID, userID, day, at.UTC())
	if err != nil {
		return false, translate(err, "record due notice")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseDueNotice forgets a recorded notice.
func (r *WorkloadRepository) ReleaseDueNotice(ctx context.Context, taskID, userID, day string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM task_due_notices WHERE task_id = ? AND user_id = ? AND day = ?`,
		taskID, userID, day)
	return translate(err, "release due notice")
}
