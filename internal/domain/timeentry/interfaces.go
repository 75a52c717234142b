package timeentry

import (
	"context"
	"time"

	"github.com/rpggio/agencyops/internal/auth"
)

// ListOptions filters time entry listings.
type ListOptions struct {
	UserID string
	TaskID string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository provides persistence for time entries. Reads skip soft-deleted rows.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Stop(ctx context.Context, id string, endedAt time.Time, duration int) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Running(ctx context.Context, userID string) ([]Entry, error)
	// TaskProject resolves the project of a live task; nil for ad-hoc tasks.
	TaskProject(ctx context.Context, taskID string) (*string, error)
}

// Tasks is the task side of time tracking: entries may only reference tasks
// the caller can see, and starting a timer marks the task as being worked on.
type Tasks interface {
	CheckAccess(ctx context.Context, actor auth.Context, taskID string) error
	StartWork(ctx context.Context, actor auth.Context, taskID string) error
}
