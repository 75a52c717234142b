package workload

import (
	"context"
	"time"
)

// Repository reads the time and task data behind the workload reports, and
// records sent due-soon notices.
type Repository interface {
	// Entries returns live finished entries matching the filter, newest first.
	Entries(ctx context.Context, f EntryFilter) ([]EntryRow, error)
	// ActiveMembers returns active users ordered by name.
	ActiveMembers(ctx context.Context) ([]Member, error)
	// AssignedTasks returns every live task with an assignee.
	AssignedTasks(ctx context.Context) ([]AssignedTask, error)

	// DueTasks returns live open tasks with an assignee due in [from, to].
	DueTasks(ctx context.Context, from, to time.Time) ([]DueTask, error)
	// ClaimDueNotice records a notice. It returns false when the task and
	// user were already noticed that day.
	ClaimDueNotice(ctx context.Context, taskID, userID, day string, at time.Time) (bool, error)
	// ReleaseDueNotice forgets a claimed notice so the next run retries it.
	ReleaseDueNotice(ctx context.Context, taskID, userID, day string) error
}

// DueNotifier delivers due-soon notices.
type DueNotifier interface {
	NotifyTaskDueSoon(ctx context.Context, t DueTask) error
}
