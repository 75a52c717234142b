package task

import (
	"context"
	"time"

	"github.com/rpggio/agencyops/internal/domain/activity"
)

// Repository provides persistence for tasks and their dependency edges.
// Reads only ever return live (not soft-deleted) tasks.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, opts ListOptions) ([]Task, error)
	Update(ctx context.Context, t *Task) error
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// ListDependents returns the tasks whose blocked_by set contains blockerID.
	ListDependents(ctx context.Context, blockerID string) ([]Dependent, error)
	// SetStatuses moves the listed tasks to status `to`, touching only rows
	// whose current status is in `from`. It returns the number of rows changed.
	SetStatuses(ctx context.Context, ids []string, from []Status, to Status, at time.Time) (int64, error)

	AddDependency(ctx context.Context, taskID, blockerID string) error
	RemoveDependency(ctx context.Context, taskID, blockerID string) error
	BlockerIDs(ctx context.Context, taskID string) ([]string, error)
	IncompleteBlockers(ctx context.Context, taskID string) ([]string, error)

	TimeSpent(ctx context.Context, taskID string) (int, error)
	HourlyRate(ctx context.Context, taskID string) (*float64, error)

	// InTx runs fn against a repository bound to a single transaction.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// MembershipChecker answers project membership for tech visibility rules.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.Entry) error
}

// Recorder receives status change counters.
type Recorder interface {
	RecordTransition(from, to string)
	RecordCascade(kind string, affected int)
}
