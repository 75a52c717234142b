package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/retainer"
)

// RetainerRepository implements retainer.Repository for SQLite
type RetainerRepository struct {
	db *DB
}

// NewRetainerRepository creates a new RetainerRepository
func NewRetainerRepository(db *DB) *RetainerRepository {
	return &RetainerRepository{db: db}
}

// ownedBy matches tasks of a client: through a live project, or directly
// when the task has no project.
const ownedBy = `((t.project_id IS NOT NULL AND p.client_id = ?) OR (t.project_id IS NULL AND t.client_id = ?))`

// LoggedEntries returns billable entries started in [start, end] on the
// client's tasks.
func (r *RetainerRepository) LoggedEntries(ctx context.Context, clientID string, start, end time.Time) ([]retainer.LoggedEntry, error) {
	f := live("te", "t").
		add("te.is_billable = 1").
		add("te.started_at >= ? AND te.started_at <= ?", start.UTC(), end.UTC()).
		add(ownedBy, clientID, clientID)

	query := `
		SELECT te.duration, t.id, t.title, t.project_id, p.name, COALESCE(p.is_retainer, 0),
			t.completed_at, t.is_retainer_work, t.is_support, t.invoiced, t.billing_amount
		FROM time_entries te
		JOIN tasks t ON t.id = te.task_id
		LEFT JOIN projects p ON p.id = t.project_id AND p.is_deleted = 0` + f.where() + `
		ORDER BY te.started_at`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load retainer time entries: %w", err)
	}
	defer rows.Close()

	var entries []retainer.LoggedEntry
	for rows.Next() {
		var e retainer.LoggedEntry
		if err := rows.Scan(&e.Duration, &e.TaskID, &e.Title, &e.ProjectID, &e.ProjectName, &e.ProjectIsRetainer,
			&e.CompletedAt, &e.IsRetainerWork, &e.IsSupport, &e.Invoiced, &e.BillingAmount); err != nil {
			return nil, fmt.Errorf("failed to scan retainer time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ScheduledTasks returns the client's open tasks due in [start, end].
func (r *RetainerRepository) ScheduledTasks(ctx context.Context, clientID string, start, end time.Time) ([]retainer.OpenTask, error) {
	return r.openTasks(ctx, clientID, "t.due_date >= ? AND t.due_date <= ?", start.UTC(), end.UTC())
}

// UnscheduledTasks returns the client's open tasks with no due date.
func (r *RetainerRepository) UnscheduledTasks(ctx context.Context, clientID string) ([]retainer.OpenTask, error) {
	return r.openTasks(ctx, clientID, "t.due_date IS NULL")
}

func (r *RetainerRepository) openTasks(ctx context.Context, clientID, dueCond string, dueArgs ...any) ([]retainer.OpenTask, error) {
	f := live("t").
		add("t.status NOT IN ('done', 'abandoned')").
		add(ownedBy, clientID, clientID).
		add(dueCond, dueArgs...)

	query := `
		SELECT t.id, t.title, t.project_id, p.name, COALESCE(p.is_retainer, 0), t.due_date, t.status,
			t.assignee_id, u.name, t.energy_estimate, t.mystery_factor,
			t.is_retainer_work, t.is_support, t.billing_amount
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id AND p.is_deleted = 0
		LEFT JOIN users u ON u.id = t.assignee_id` + f.where() + `
		ORDER BY t.due_date, t.created_at`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []retainer.OpenTask
	for rows.Next() {
		var t retainer.OpenTask
		if err := rows.Scan(&t.ID, &t.Title, &t.ProjectID, &t.ProjectName, &t.ProjectIsRetainer, &t.DueDate, &t.Status,
			&t.AssigneeID, &t.AssigneeName, &t.EnergyEstimate, &t.MysteryFactor,
			&t.IsRetainerWork, &t.IsSupport, &t.BillingAmount); err != nil {
			return nil, fmt.Errorf("failed to scan open task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimAlert records an alert once per client, month and threshold.
func (r *RetainerRepository) ClaimAlert(ctx context.Context, clientID, month string, threshold int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO retainer_alerts (client_id, month, threshold, sent_at) VALUES (?, ?, ?, ?)`,
		clientID, month, threshold, at.UTC())
	if err != nil {
		return false, translate(err, "record retainer alert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseAlert forgets a recorded alert.
func (r *RetainerRepository) ReleaseAlert(ctx context.Context, clientID, month string, threshold int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM retainer_alerts WHERE client_id = ? AND month = ? AND threshold = ?`,
		clientID, month, threshold)
	return translate(err, "release retainer alert")
}
