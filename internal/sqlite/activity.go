package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/agencyops/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	query := `
		INSERT INTO activity_log (
			entity_type, entity_id, user_id, action, field, old_value, new_value, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.EntityType,
		entry.EntityID,
		entry.UserID,
		entry.Action,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	entry.CreatedAt = createdAt

	return nil
}

// List retrieves activity entries, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	f := &filter{}
	if opts.EntityType != "" {
		f.add("entity_type = ?", opts.EntityType)
	}
	if opts.EntityID != "" {
		f.add("entity_id = ?", opts.EntityID)
	}
	if opts.UserID != nil {
		f.add("user_id = ?", *opts.UserID)
	}
	if opts.Action != nil {
		f.add("action = ?", *opts.Action)
	}

	query := `
		SELECT id, entity_type, entity_id, user_id, action, field, old_value, new_value, created_at
		FROM activity_log` + f.where() + " ORDER BY created_at DESC, id DESC"
	query, args := page(query, f.args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var entry activity.Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.UserID,
			&entry.Action,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}
