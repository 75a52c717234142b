package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/timeentry"
	"github.com/rpggio/agencyops/internal/repository"
)

// TimeEntryRepository implements timeentry.Repository for SQLite
type TimeEntryRepository struct {
	db *DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository
func NewTimeEntryRepository(db *DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

const timeEntryColumns = `id, user_id, task_id, project_id, description, started_at, ended_at,
	duration, is_running, is_billable, created_at`

func scanTimeEntry(s rowScanner) (*timeentry.Entry, error) {
	var e timeentry.Entry
	err := s.Scan(&e.ID, &e.UserID, &e.TaskID, &e.ProjectID, &e.Description, &e.StartedAt, &e.EndedAt,
		&e.Duration, &e.IsRunning, &e.IsBillable, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a time entry
func (r *TimeEntryRepository) Create(ctx context.Context, e *timeentry.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO time_entries (`+timeEntryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TaskID, e.ProjectID, e.Description, e.StartedAt.UTC(), utc(e.EndedAt),
		e.Duration, e.IsRunning, e.IsBillable, e.CreatedAt.UTC())
	return translate(err, "create time entry")
}

// Get retrieves a live time entry
func (r *TimeEntryRepository) Get(ctx context.Context, id string) (*timeentry.Entry, error) {
	f := live("").add("id = ?", id)
	e, err := scanTimeEntry(r.db.QueryRowContext(ctx, "SELECT "+timeEntryColumns+" FROM time_entries"+f.where(), f.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// List returns live entries, newest first
func (r *TimeEntryRepository) List(ctx context.Context, opts timeentry.ListOptions) ([]timeentry.Entry, error) {
	f := live("")
	if opts.UserID != "" {
		f.add("user_id = ?", opts.UserID)
	}
	if opts.TaskID != "" {
		f.add("task_id = ?", opts.TaskID)
	}
	if opts.From != nil {
		f.add("started_at >= ?", opts.From.UTC())
	}
	if opts.To != nil {
		f.add("started_at <= ?", opts.To.UTC())
	}
	query, args := page("SELECT "+timeEntryColumns+" FROM time_entries"+f.where()+" ORDER BY started_at DESC",
		f.args, opts.Limit, opts.Offset)
	return r.list(ctx, query, args...)
}

// Running returns the user's live running timers
func (r *TimeEntryRepository) Running(ctx context.Context, userID string) ([]timeentry.Entry, error) {
	f := live("").add("user_id = ?", userID).add("is_running = 1")
	return r.list(ctx, "SELECT "+timeEntryColumns+" FROM time_entries"+f.where(), f.args...)
}

func (r *TimeEntryRepository) list(ctx context.Context, query string, args ...any) ([]timeentry.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := []timeentry.Entry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Stop closes a running entry
func (r *TimeEntryRepository) Stop(ctx context.Context, id string, endedAt time.Time, duration int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE time_entries SET ended_at = ?, duration = ?, is_running = 0
		WHERE id = ? AND is_running = 1 AND is_deleted = 0`,
		endedAt.UTC(), duration, id)
	return expectOne(res, err, "stop time entry")
}

// SoftDelete marks an entry deleted
func (r *TimeEntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return softDelete(ctx, r.db, "time_entries", id, at)
}

// TaskProject returns the project of a live task, nil for ad-hoc tasks
func (r *TimeEntryRepository) TaskProject(ctx context.Context, taskID string) (*string, error) {
	var projectID sql.NullString
	f := live("").add("id = ?", taskID)
	err := r.db.QueryRowContext(ctx, "SELECT project_id FROM tasks"+f.where(), f.args...).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task project: %w", err)
	}
	if !projectID.Valid {
		return nil, nil
	}
	return &projectID.String, nil
}
